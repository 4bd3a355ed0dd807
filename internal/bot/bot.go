package bot

import (
	"context"
	"errors"
	"log"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"linebot-assistant/internal/models"
	"linebot-assistant/internal/services"
	"linebot-assistant/internal/storage"
	"linebot-assistant/internal/tasks"
)

// Messenger sends replies and pushes through the LINE Messaging API and
// downloads uploaded content.
type Messenger interface {
	Reply(replyToken string, messages ...messaging_api.MessageInterface) error
	ReplyText(replyToken, text string) error
	Push(userID string, messages ...messaging_api.MessageInterface) error
	PushText(userID, text string) error
	MessageContent(messageID string) ([]byte, error)
}

// Classifier resolves free text into intents and answers place searches.
type Classifier interface {
	ClassifyIntent(ctx context.Context, text string) models.Intent
	SearchPlaces(ctx context.Context, query string, lat, lng float64, address string) ([]models.Place, error)
}

// Chatter is the conversational model surface.
type Chatter interface {
	Chat(ctx context.Context, history []models.ChatTurn, userText string) (string, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImagePipeline runs the three image flows.
type ImagePipeline interface {
	Analyze(ctx context.Context, data []byte) (string, error)
	Generate(ctx context.Context, prompt string) (string, error)
	Redraw(ctx context.Context, data []byte) (string, error)
}

// WeatherProvider answers current conditions and the five-day outlook.
type WeatherProvider interface {
	Current(ctx context.Context, city string) (*services.WeatherReport, error)
	Forecast(ctx context.Context, city string) (string, []services.DailyForecast, error)
}

// StockProvider answers ticker quotes.
type StockProvider interface {
	Quote(ctx context.Context, symbol string) (*services.StockQuote, error)
}

// NewsProvider answers top headlines.
type NewsProvider interface {
	TopHeadlines(ctx context.Context) ([]services.Headline, error)
}

// CurrencyProvider converts between currencies.
type CurrencyProvider interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, float64, error)
}

// PageFetcher downloads a page as readable text.
type PageFetcher interface {
	FetchReadable(ctx context.Context, pageURL string) (string, error)
}

// TaskSubmitter queues background work.
type TaskSubmitter interface {
	Submit(userID, kind string, work func(ctx context.Context) (string, error)) (string, error)
}

// Config wires the bot's dependencies.
type Config struct {
	Store      storage.Store
	Messenger  Messenger
	Classifier Classifier
	Chatter    Chatter
	Images     ImagePipeline
	Weather    WeatherProvider
	Stocks     StockProvider
	News       NewsProvider
	Currency   CurrencyProvider
	Pages      PageFetcher
	Executor   TaskSubmitter
}

// Bot routes inbound LINE events to handlers. Quick answers go out on the
// reply token; anything that calls a slow upstream is queued and delivered
// by push. Routing itself never fails: handler errors end in a logged line
// or a polite message, never a webhook error.
type Bot struct {
	store      storage.Store
	messenger  Messenger
	classifier Classifier
	chatter    Chatter
	images     ImagePipeline
	weather    WeatherProvider
	stocks     StockProvider
	news       NewsProvider
	currency   CurrencyProvider
	pages      PageFetcher
	executor   TaskSubmitter
	table      *RoutingTable
}

// New builds a bot with the default routing table.
func New(cfg Config) *Bot {
	return &Bot{
		store:      cfg.Store,
		messenger:  cfg.Messenger,
		classifier: cfg.Classifier,
		chatter:    cfg.Chatter,
		images:     cfg.Images,
		weather:    cfg.Weather,
		stocks:     cfg.Stocks,
		news:       cfg.News,
		currency:   cfg.Currency,
		pages:      cfg.Pages,
		executor:   cfg.Executor,
		table:      DefaultRoutingTable(),
	}
}

// Outcome describes how one inbound event was settled, mainly for tests and
// logs.
type Outcome struct {
	Intent models.IntentKind
	TaskID string
	Async  bool
}

func (b *Bot) reply(replyToken string, messages ...messaging_api.MessageInterface) {
	if err := b.messenger.Reply(replyToken, messages...); err != nil {
		log.Printf("⚠️ Reply failed: %v", err)
	}
}

func (b *Bot) replyText(replyToken, text string) {
	if err := b.messenger.ReplyText(replyToken, text); err != nil {
		log.Printf("⚠️ Reply failed: %v", err)
	}
}

// submit queues work and answers on the reply token only when the queue is
// full, keeping the token available for handlers that want to ack first.
func (b *Bot) submit(msg models.InboundMessage, kind string, work func(ctx context.Context) (string, error)) Outcome {
	taskID, err := b.executor.Submit(msg.UserID, kind, work)
	if err != nil {
		if errors.Is(err, tasks.ErrQueueFull) {
			log.Printf("⚠️ Task queue full, refusing %s for %s", kind, msg.UserID)
		} else {
			log.Printf("❌ Could not queue %s for %s: %v", kind, msg.UserID, err)
		}
		b.replyText(msg.ReplyToken, busyReply)
		return Outcome{}
	}
	return Outcome{TaskID: taskID, Async: true}
}
