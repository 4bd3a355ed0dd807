package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultNewsBaseURL = "https://newsapi.org/v2"

// Headline is one news item.
type Headline struct {
	Title  string
	URL    string
	Source string
}

// NewsService fetches Taiwan top headlines from NewsAPI.
type NewsService struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
}

// NewsOption customizes a NewsService.
type NewsOption func(*NewsService)

func WithNewsBaseURL(base string) NewsOption {
	return func(s *NewsService) { s.baseURL = base }
}

func WithNewsHTTPClient(client *http.Client) NewsOption {
	return func(s *NewsService) { s.client = client }
}

// NewNewsService builds the client. pageSize caps how many headlines one
// request returns.
func NewNewsService(apiKey string, pageSize int, opts ...NewsOption) *NewsService {
	if pageSize <= 0 {
		pageSize = 5
	}
	s := &NewsService{
		apiKey:   apiKey,
		baseURL:  defaultNewsBaseURL,
		pageSize: pageSize,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type headlinesResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title  string `json:"title"`
		URL    string `json:"url"`
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// TopHeadlines returns the latest Taiwan headlines, newest first. NewsAPI's
// tw top-headlines feed has been empty for years, so this searches the
// everything index for Chinese articles mentioning Taiwan instead.
func (s *NewsService) TopHeadlines(ctx context.Context) ([]Headline, error) {
	endpoint := fmt.Sprintf("%s/everything?q=%s&language=zh&sortBy=publishedAt&pageSize=%d&apiKey=%s",
		s.baseURL, url.QueryEscape("台灣"), s.pageSize, s.apiKey)
	var raw headlinesResponse
	if err := fetchJSON(ctx, s.client, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("headlines: %w", err)
	}
	if raw.Status != "ok" {
		return nil, fmt.Errorf("headlines: unexpected status %q", raw.Status)
	}
	headlines := make([]Headline, 0, len(raw.Articles))
	for _, a := range raw.Articles {
		if a.Title == "" {
			continue
		}
		headlines = append(headlines, Headline{Title: stripSourceSuffix(a.Title), URL: a.URL, Source: a.Source.Name})
	}
	return headlines, nil
}

// stripSourceSuffix drops the " - Publisher" tail NewsAPI appends to most
// titles.
func stripSourceSuffix(title string) string {
	if i := strings.LastIndex(title, " - "); i > 0 {
		return title[:i]
	}
	return title
}
