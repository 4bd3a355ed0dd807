package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig holds every tunable the bot reads from the environment.
type AppConfig struct {
	Port string `env:"PORT" envDefault:"8080"`

	LineChannelSecret string `env:"LINE_CHANNEL_SECRET"`
	LineChannelToken  string `env:"LINE_CHANNEL_TOKEN"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	TextModel    string `env:"GEMINI_TEXT_MODEL" envDefault:"gemini-2.5-flash"`
	ImageModel   string `env:"GEMINI_IMAGE_MODEL" envDefault:"imagen-3.0-generate-002"`
	EditModel    string `env:"GEMINI_EDIT_MODEL" envDefault:"gemini-2.0-flash-preview-image-generation"`

	OpenWeatherAPIKey string `env:"OPENWEATHER_API_KEY"`
	FinnhubAPIKey     string `env:"FINNHUB_API_KEY"`
	NewsAPIKey        string `env:"NEWS_API_KEY"`
	CloudinaryURL     string `env:"CLOUDINARY_URL"`

	HistoryMax      int           `env:"CHAT_HISTORY_MAX" envDefault:"20"`
	HistoryTTL      time.Duration `env:"CHAT_HISTORY_TTL" envDefault:"2h"`
	PendingQueryTTL time.Duration `env:"PENDING_QUERY_TTL" envDefault:"5m"`
	TaskTTL         time.Duration `env:"TASK_RECORD_TTL" envDefault:"10m"`
	TaskTimeout     time.Duration `env:"TASK_TIMEOUT" envDefault:"5m"`

	Workers   int `env:"TASK_WORKERS" envDefault:"4"`
	QueueSize int `env:"TASK_QUEUE_SIZE" envDefault:"64"`

	CacheCapacity int           `env:"CACHE_CAPACITY" envDefault:"1000"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	MaxSearchResults int           `env:"MAX_SEARCH_RESULTS" envDefault:"5"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
}

// Load parses the environment into an AppConfig. godotenv runs first in main,
// so .env values are already part of the environment by the time this is
// called.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return cfg, nil
}
