package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURL returns the first http(s) link in text, or "" when there is
// none.
func ExtractURL(text string) string {
	return urlPattern.FindString(text)
}

// IsYouTubeURL reports whether raw points at YouTube, which serves no
// readable article text.
func IsYouTubeURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.TrimPrefix(parsed.Hostname(), "www."), "m.")
	return host == "youtube.com" || host == "youtu.be"
}

const defaultWebMaxChars = 50000

// WebService downloads pages and strips them to readable text for
// summarization.
type WebService struct {
	client   *http.Client
	maxChars int
}

// WebOption customizes a WebService.
type WebOption func(*WebService)

func WithWebHTTPClient(client *http.Client) WebOption {
	return func(s *WebService) { s.client = client }
}

func WithWebMaxChars(n int) WebOption {
	return func(s *WebService) { s.maxChars = n }
}

// NewWebService builds the page fetcher.
func NewWebService(opts ...WebOption) *WebService {
	s := &WebService{
		client:   &http.Client{Timeout: 15 * time.Second},
		maxChars: defaultWebMaxChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchReadable downloads pageURL and returns its visible text, truncated to
// the service's character cap.
func (s *WebService) FetchReadable(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; linebot-assistant/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, URL: pageURL, Body: string(body)}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}

	text := collapseWhitespace(visibleText(doc))
	if text == "" {
		return "", &NotFoundError{What: "readable text in " + pageURL}
	}
	runes := []rune(text)
	if len(runes) > s.maxChars {
		text = string(runes[:s.maxChars])
	}
	return text, nil
}

var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"iframe": true, "svg": true, "nav": true,
	"header": true, "footer": true, "form": true,
}

// visibleText walks the DOM collecting text nodes outside chrome and
// non-content tags.
func visibleText(node *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return sb.String()
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
