package services

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const defaultCurrencyBaseURL = "https://open.er-api.com/v6"

// CurrencyService converts amounts via the open.er-api.com daily rates. The
// endpoint needs no API key.
type CurrencyService struct {
	baseURL string
	client  *http.Client
}

// CurrencyOption customizes a CurrencyService.
type CurrencyOption func(*CurrencyService)

func WithCurrencyBaseURL(base string) CurrencyOption {
	return func(s *CurrencyService) { s.baseURL = base }
}

func WithCurrencyHTTPClient(client *http.Client) CurrencyOption {
	return func(s *CurrencyService) { s.client = client }
}

// NewCurrencyService builds the client.
func NewCurrencyService(opts ...CurrencyOption) *CurrencyService {
	s := &CurrencyService{
		baseURL: defaultCurrencyBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ratesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// Convert turns amount in the from currency into the to currency and also
// returns the unit rate used.
func (s *CurrencyService) Convert(ctx context.Context, amount float64, from, to string) (float64, float64, error) {
	endpoint := fmt.Sprintf("%s/latest/%s", s.baseURL, from)
	var raw ratesResponse
	if err := fetchJSON(ctx, s.client, endpoint, &raw); err != nil {
		if HTTPStatusCode(err) == http.StatusNotFound {
			return 0, 0, &NotFoundError{What: "currency " + from}
		}
		return 0, 0, fmt.Errorf("rates for %s: %w", from, err)
	}
	if raw.Result != "success" {
		return 0, 0, &NotFoundError{What: "currency " + from}
	}
	rate, ok := raw.Rates[to]
	if !ok {
		return 0, 0, &NotFoundError{What: "currency " + to}
	}
	return amount * rate, rate, nil
}
