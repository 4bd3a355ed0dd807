package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const defaultWeatherBaseURL = "https://api.openweathermap.org"

// WeatherReport is the current conditions for one resolved city.
type WeatherReport struct {
	City        string
	Description string
	Temp        float64
	FeelsLike   float64
	Humidity    int
	WindSpeed   float64
}

// DailyForecast summarizes one day of the five-day outlook.
type DailyForecast struct {
	Date        time.Time
	Description string
	Icon        string
	MinTemp     float64
	MaxTemp     float64
}

// IconURL returns the OpenWeatherMap icon image for the day.
func (f DailyForecast) IconURL() string {
	return fmt.Sprintf("https://openweathermap.org/img/wn/%s@2x.png", f.Icon)
}

// WeatherService queries OpenWeatherMap. City names are geocoded first, so
// users can ask in Chinese.
type WeatherService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	loc     *time.Location
}

// WeatherOption customizes a WeatherService.
type WeatherOption func(*WeatherService)

// WithWeatherBaseURL points the service at a different API host, mostly for
// tests.
func WithWeatherBaseURL(base string) WeatherOption {
	return func(s *WeatherService) { s.baseURL = base }
}

// WithWeatherHTTPClient swaps the HTTP client.
func WithWeatherHTTPClient(client *http.Client) WeatherOption {
	return func(s *WeatherService) { s.client = client }
}

// NewWeatherService builds the client with the given API key.
func NewWeatherService(apiKey string, opts ...WeatherOption) *WeatherService {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	s := &WeatherService{
		apiKey:  apiKey,
		baseURL: defaultWeatherBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		loc:     loc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type geocodeEntry struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
}

type weatherCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentWeatherResponse struct {
	Weather []weatherCondition `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type forecastResponse struct {
	List []struct {
		Dt      int64              `json:"dt"`
		Weather []weatherCondition `json:"weather"`
		Main    struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
	} `json:"list"`
}

// Current returns present conditions for city.
func (s *WeatherService) Current(ctx context.Context, city string) (*WeatherReport, error) {
	lat, lon, resolved, err := s.geocode(ctx, city)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/data/2.5/weather?lat=%f&lon=%f&units=metric&lang=zh_tw&appid=%s",
		s.baseURL, lat, lon, s.apiKey)
	var current currentWeatherResponse
	if err := fetchJSON(ctx, s.client, endpoint, &current); err != nil {
		return nil, fmt.Errorf("current weather for %s: %w", city, err)
	}
	report := &WeatherReport{
		City:      resolved,
		Temp:      current.Main.Temp,
		FeelsLike: current.Main.FeelsLike,
		Humidity:  current.Main.Humidity,
		WindSpeed: current.Wind.Speed,
	}
	if len(current.Weather) > 0 {
		report.Description = current.Weather[0].Description
	}
	return report, nil
}

// Forecast returns up to five daily summaries, today first.
func (s *WeatherService) Forecast(ctx context.Context, city string) (string, []DailyForecast, error) {
	lat, lon, resolved, err := s.geocode(ctx, city)
	if err != nil {
		return "", nil, err
	}

	endpoint := fmt.Sprintf("%s/data/2.5/forecast?lat=%f&lon=%f&units=metric&lang=zh_tw&appid=%s",
		s.baseURL, lat, lon, s.apiKey)
	var raw forecastResponse
	if err := fetchJSON(ctx, s.client, endpoint, &raw); err != nil {
		return "", nil, fmt.Errorf("forecast for %s: %w", city, err)
	}

	// The API returns 3-hour slots; fold them into per-day min/max and take
	// the slot nearest noon for the description.
	type dayAgg struct {
		forecast DailyForecast
		bestGap  time.Duration
	}
	days := make(map[string]*dayAgg)
	for _, slot := range raw.List {
		at := time.Unix(slot.Dt, 0).In(s.loc)
		key := at.Format("2006-01-02")
		noon := time.Date(at.Year(), at.Month(), at.Day(), 12, 0, 0, 0, s.loc)
		gap := at.Sub(noon)
		if gap < 0 {
			gap = -gap
		}

		agg, ok := days[key]
		if !ok {
			agg = &dayAgg{
				forecast: DailyForecast{
					Date:    time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, s.loc),
					MinTemp: slot.Main.TempMin,
					MaxTemp: slot.Main.TempMax,
				},
				bestGap: time.Duration(1<<62 - 1),
			}
			days[key] = agg
		}
		if slot.Main.TempMin < agg.forecast.MinTemp {
			agg.forecast.MinTemp = slot.Main.TempMin
		}
		if slot.Main.TempMax > agg.forecast.MaxTemp {
			agg.forecast.MaxTemp = slot.Main.TempMax
		}
		if len(slot.Weather) > 0 && gap < agg.bestGap {
			agg.forecast.Description = slot.Weather[0].Description
			agg.forecast.Icon = slot.Weather[0].Icon
			agg.bestGap = gap
		}
	}

	out := make([]DailyForecast, 0, len(days))
	for _, agg := range days {
		out = append(out, agg.forecast)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if len(out) > 5 {
		out = out[:5]
	}
	return resolved, out, nil
}

// geocode resolves a city name to coordinates. An empty result means the
// city is unknown, which is terminal.
func (s *WeatherService) geocode(ctx context.Context, city string) (float64, float64, string, error) {
	endpoint := fmt.Sprintf("%s/geo/1.0/direct?q=%s&limit=1&appid=%s",
		s.baseURL, url.QueryEscape(city), s.apiKey)
	var entries []geocodeEntry
	if err := fetchJSON(ctx, s.client, endpoint, &entries); err != nil {
		return 0, 0, "", fmt.Errorf("geocode %s: %w", city, err)
	}
	if len(entries) == 0 {
		return 0, 0, "", &NotFoundError{What: "city " + city}
	}
	resolved := entries[0].Name
	if zh, ok := entries[0].LocalNames["zh"]; ok && zh != "" {
		resolved = zh
	}
	return entries[0].Lat, entries[0].Lon, resolved, nil
}
