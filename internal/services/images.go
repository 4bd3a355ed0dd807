package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"linebot-assistant/internal/cache"
)

const translatePromptFormat = "請將以下的圖片描述翻譯成適合 AI 繪圖模型的英文提示詞，補上畫質與風格細節，只輸出英文提示詞本身：%s"

const redrawInstruction = "請根據這張圖片重新繪製一個更精緻的版本，保留原本的構圖與主體，提升細節、光影與質感。"

type imageModel interface {
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	RedrawImage(ctx context.Context, data []byte, mimeType, instruction string) ([]byte, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type imageHost interface {
	UploadImage(ctx context.Context, data []byte) (string, error)
}

// ImageService runs the image flows: describing uploads, rendering prompts,
// and redrawing uploads. Results that are safe to reuse sit in an LRU cache
// keyed by content or prompt hash, and concurrent identical requests are
// collapsed to one upstream call.
type ImageService struct {
	model    imageModel
	host     imageHost
	cache    *cache.Cache
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewImageService wires the pipeline. host may be nil when no image hosting
// is configured; generation and redraw then report a config error.
func NewImageService(model imageModel, host imageHost, resultCache *cache.Cache, cacheTTL time.Duration) *ImageService {
	return &ImageService{model: model, host: host, cache: resultCache, cacheTTL: cacheTTL}
}

// Analyze describes the uploaded image. Identical images hit the cache.
func (s *ImageService) Analyze(ctx context.Context, data []byte) (string, error) {
	key := "analyze:" + hashBytes(data)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var description string
		err := WithRetry(ctx, "image analysis", func() error {
			var callErr error
			description, callErr = s.model.AnalyzeImage(ctx, data, http.DetectContentType(data))
			return callErr
		})
		if err != nil {
			return "", err
		}
		s.cache.Set(key, description, s.cacheTTL)
		return description, nil
	})
	if err != nil {
		return "", fmt.Errorf("analyze image: %w", err)
	}
	return result.(string), nil
}

// Generate renders prompt and returns a public image URL. The prompt is
// first translated into an English drawing prompt, which the render model
// handles far better than Chinese.
func (s *ImageService) Generate(ctx context.Context, prompt string) (string, error) {
	if s.host == nil {
		return "", fmt.Errorf("generate image: no image host configured")
	}
	key := "draw:" + hashString(prompt)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		english, err := s.model.GenerateText(ctx, fmt.Sprintf(translatePromptFormat, prompt))
		if err != nil || english == "" {
			english = prompt
		}

		var imageData []byte
		err = WithRetry(ctx, "image generation", func() error {
			var callErr error
			imageData, callErr = s.model.GenerateImage(ctx, english)
			return callErr
		})
		if err != nil {
			return "", err
		}

		imageURL, err := s.host.UploadImage(ctx, imageData)
		if err != nil {
			return "", err
		}
		s.cache.Set(key, imageURL, s.cacheTTL)
		return imageURL, nil
	})
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	return result.(string), nil
}

// Redraw produces an enhanced variant of the uploaded image and returns its
// public URL. Variants are intentionally not cached; users expect a fresh
// rendering each time.
func (s *ImageService) Redraw(ctx context.Context, data []byte) (string, error) {
	if s.host == nil {
		return "", fmt.Errorf("redraw image: no image host configured")
	}

	var imageData []byte
	err := WithRetry(ctx, "image redraw", func() error {
		var callErr error
		imageData, callErr = s.model.RedrawImage(ctx, data, http.DetectContentType(data), redrawInstruction)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("redraw image: %w", err)
	}

	imageURL, err := s.host.UploadImage(ctx, imageData)
	if err != nil {
		return "", fmt.Errorf("redraw image: %w", err)
	}
	return imageURL, nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashString(s string) string {
	return hashBytes([]byte(s))
}
