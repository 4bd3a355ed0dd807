package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"linebot-assistant/internal/models"
)

const chatSystemPrompt = "你是一位親切的 LINE 智慧助理，請一律使用繁體中文回答，語氣自然、簡潔。" +
	"回答請控制在三百字以內，不要使用 Markdown 符號。"

const analyzeImagePrompt = "請用繁體中文描述這張圖片的內容，包含主體、場景與值得注意的細節，控制在兩百字以內。"

// GeminiService wraps the Gemini client for chat, structured output,
// image understanding, and image generation.
type GeminiService struct {
	client     *genai.Client
	textModel  string
	imageModel string
	editModel  string
}

// NewGeminiService dials the Gemini API with the given key and model names.
func NewGeminiService(ctx context.Context, apiKey, textModel, imageModel, editModel string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	log.Printf("✅ Gemini client initialized (text=%s, image=%s)", textModel, imageModel)
	return &GeminiService{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
		editModel:  editModel,
	}, nil
}

// Chat continues a conversation. History is oldest first; the new user text
// goes last.
func (s *GeminiService) Chat(ctx context.Context, history []models.ChatTurn, userText string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == models.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(userText, genai.RoleUser))

	resp, err := s.client.Models.GenerateContent(ctx, s.textModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(chatSystemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}
	return CleanModelText(resp.Text()), nil
}

// GenerateText runs a one-shot prompt with no history.
func (s *GeminiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.textModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return CleanModelText(resp.Text()), nil
}

// GenerateJSON runs a prompt in JSON response mode and returns the raw
// payload for the caller to parse.
func (s *GeminiService) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.textModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini json: %w", err)
	}
	return stripCodeFences(resp.Text()), nil
}

// AnalyzeImage describes an uploaded image in Traditional Chinese.
func (s *GeminiService) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(analyzeImagePrompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := s.client.Models.GenerateContent(ctx, s.textModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini analyze image: %w", err)
	}
	return CleanModelText(resp.Text()), nil
}

// GenerateImage renders prompt with the Imagen model and returns the raw
// image bytes.
func (s *GeminiService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := s.client.Models.GenerateImages(ctx, s.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate image: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("gemini generate image: empty response")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// RedrawImage feeds the source image plus an instruction to the multimodal
// edit model and returns the first image part of the answer.
func (s *GeminiService) RedrawImage(ctx context.Context, data []byte, mimeType, instruction string) ([]byte, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(instruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := s.client.Models.GenerateContent(ctx, s.editModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini redraw image: %w", err)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini redraw image: no image in response")
}

// CleanModelText trims whitespace and markdown fences that models sometimes
// wrap answers in.
func CleanModelText(text string) string {
	return strings.TrimSpace(stripCodeFences(text))
}

// stripCodeFences removes a surrounding ``` block, with or without a
// language tag, and leaves anything else alone.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
