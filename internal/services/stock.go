package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultFinnhubBaseURL = "https://finnhub.io/api/v1"

// StockQuote is one real-time quote from Finnhub, paired with the company
// profile when Finnhub knows it.
type StockQuote struct {
	Symbol        string
	Name          string
	Currency      string
	Current       float64
	Change        float64
	ChangePercent float64
	High          float64
	Low           float64
	Open          float64
	PrevClose     float64
}

// StockService queries Finnhub for US equity quotes.
type StockService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// StockOption customizes a StockService.
type StockOption func(*StockService)

func WithStockBaseURL(base string) StockOption {
	return func(s *StockService) { s.baseURL = base }
}

func WithStockHTTPClient(client *http.Client) StockOption {
	return func(s *StockService) { s.client = client }
}

// NewStockService builds the client with the given API key.
func NewStockService(apiKey string, opts ...StockOption) *StockService {
	s := &StockService{
		apiKey:  apiKey,
		baseURL: defaultFinnhubBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
}

type profileResponse struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// Quote fetches the latest price for symbol, plus the company profile for a
// readable display name. Finnhub answers all-zero for unknown tickers, which
// is reported as not found. A missing profile is not fatal.
func (s *StockService) Quote(ctx context.Context, symbol string) (*StockQuote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s", s.baseURL, url.QueryEscape(symbol), s.apiKey)
	var raw quoteResponse
	if err := fetchJSON(ctx, s.client, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if raw.Current == 0 && raw.PrevClose == 0 {
		return nil, &NotFoundError{What: "symbol " + symbol}
	}

	quote := &StockQuote{
		Symbol:        symbol,
		Current:       raw.Current,
		Change:        raw.Change,
		ChangePercent: raw.ChangePercent,
		High:          raw.High,
		Low:           raw.Low,
		Open:          raw.Open,
		PrevClose:     raw.PrevClose,
	}

	profileEndpoint := fmt.Sprintf("%s/stock/profile2?symbol=%s&token=%s", s.baseURL, url.QueryEscape(symbol), s.apiKey)
	var profile profileResponse
	if err := fetchJSON(ctx, s.client, profileEndpoint, &profile); err != nil {
		log.Printf("⚠️ Company profile lookup failed for %s: %v", symbol, err)
	} else {
		quote.Name = profile.Name
		quote.Currency = profile.Currency
	}
	return quote, nil
}
