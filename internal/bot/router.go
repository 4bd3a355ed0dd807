package bot

import (
	"context"
	"fmt"
	"log"

	"linebot-assistant/internal/models"
	"linebot-assistant/internal/services"
)

// HandleTextMessage routes one inbound text message. Resolution order: URL
// detection, then the routing table, then the AI classifier. The webhook has
// already been acknowledged by the time this runs, so nothing here returns
// an error; problems end as logged lines or polite replies.
func (b *Bot) HandleTextMessage(ctx context.Context, msg models.InboundMessage) Outcome {
	intent := b.resolveIntent(ctx, msg.Text)
	log.Printf("💬 %s → %s", msg.UserID, intent.Kind)
	return b.dispatch(ctx, msg, intent)
}

func (b *Bot) resolveIntent(ctx context.Context, text string) models.Intent {
	if link := services.ExtractURL(text); link != "" {
		return models.Intent{Kind: models.IntentSummarizeURL, URL: link}
	}
	if kind, arg, ok := b.table.Match(text); ok {
		return intentFromRule(kind, arg)
	}
	return b.classifier.ClassifyIntent(ctx, text)
}

func intentFromRule(kind models.IntentKind, arg string) models.Intent {
	switch kind {
	case models.IntentDraw:
		return models.Intent{Kind: kind, Prompt: arg}
	case models.IntentTodoAdd, models.IntentTodoComplete:
		return models.Intent{Kind: kind, Todo: arg}
	default:
		return models.Intent{Kind: kind}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg models.InboundMessage, intent models.Intent) Outcome {
	var outcome Outcome
	switch intent.Kind {
	case models.IntentHelp:
		outcome = b.handleHelp(msg)
	case models.IntentClearMemory:
		outcome = b.handleClearMemory(msg)
	case models.IntentTodoAdd:
		outcome = b.handleTodoAdd(msg, intent.Todo)
	case models.IntentTodoList:
		outcome = b.handleTodoList(msg)
	case models.IntentTodoComplete:
		outcome = b.handleTodoComplete(msg, intent.Todo)
	case models.IntentImageOptions:
		outcome = b.handleImageOptions(msg)
	case models.IntentWeatherNewsOptions:
		outcome = b.handleInfoOptions(msg)
	case models.IntentAnalyzeMode:
		outcome = b.handleSetMode(msg, models.ModeAwaitingAnalysisImage, analyzeModeReply)
	case models.IntentRedrawMode:
		outcome = b.handleSetMode(msg, models.ModeAwaitingBaseImage, redrawModeReply)
	case models.IntentCalendar:
		outcome = b.handleCalendar(msg, intent.Event)
	case models.IntentWeather:
		outcome = b.handleWeather(msg, intent.Weather)
	case models.IntentStock:
		outcome = b.handleStock(msg, intent.Stock)
	case models.IntentNews:
		outcome = b.handleNews(msg)
	case models.IntentCurrency:
		outcome = b.handleCurrency(msg, intent.Currency)
	case models.IntentTranslation:
		outcome = b.handleTranslation(msg, intent.Translation)
	case models.IntentNearbySearch:
		outcome = b.handleNearbySearch(msg, intent.Nearby)
	case models.IntentDraw:
		outcome = b.handleDraw(msg, intent.Prompt)
	case models.IntentSummarizeURL:
		outcome = b.handleSummarizeURL(msg, intent.URL)
	default:
		outcome = b.handleChat(msg, intent.Text)
	}
	outcome.Intent = intent.Kind
	return outcome
}

// HandleImageMessage settles an uploaded image according to the user's
// pending input mode. Without a mode the bot explains the choices instead of
// guessing.
func (b *Bot) HandleImageMessage(ctx context.Context, msg models.InboundMessage) Outcome {
	mode, err := b.store.TakeMode(msg.UserID)
	if err != nil {
		log.Printf("⚠️ Could not read input mode for %s: %v", msg.UserID, err)
	}

	switch mode {
	case models.ModeAwaitingAnalysisImage:
		outcome := b.handleAnalyzeImage(msg)
		outcome.Intent = models.IntentAnalyzeMode
		return outcome
	case models.ModeAwaitingBaseImage:
		outcome := b.handleRedrawImage(msg)
		outcome.Intent = models.IntentRedrawMode
		return outcome
	default:
		b.reply(msg.ReplyToken, imageNoModePrompt())
		return Outcome{Intent: models.IntentImageOptions}
	}
}

// defaultNearbyKeyword is searched when a location arrives with no staged
// query.
const defaultNearbyKeyword = "餐廳"

// HandleLocationMessage stores the position and runs the nearby search that
// was waiting on it, falling back to a restaurant search when none was
// staged.
func (b *Bot) HandleLocationMessage(ctx context.Context, loc models.InboundLocation) Outcome {
	stored := models.StoredLocation{Latitude: loc.Latitude, Longitude: loc.Longitude, Address: loc.Address}
	if err := b.store.SetLocation(loc.UserID, stored); err != nil {
		log.Printf("⚠️ Could not save location for %s: %v", loc.UserID, err)
	}

	query, err := b.store.TakePendingQuery(loc.UserID)
	if err != nil {
		log.Printf("⚠️ Could not read pending query for %s: %v", loc.UserID, err)
	}
	if query == "" {
		query = defaultNearbyKeyword
	}

	b.replyText(loc.ReplyToken, fmt.Sprintf(locationAckFormat, query))
	msg := models.InboundMessage{UserID: loc.UserID, ReplyToken: loc.ReplyToken}
	outcome := b.submitNearbySearch(msg, query, stored)
	outcome.Intent = models.IntentNearbySearch
	return outcome
}
