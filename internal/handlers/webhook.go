package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"linebot-assistant/internal/bot"
	"linebot-assistant/internal/models"
)

// WebhookHandler receives LINE platform callbacks.
type WebhookHandler struct {
	bot *bot.Bot
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(b *bot.Bot) *WebhookHandler {
	return &WebhookHandler{bot: b}
}

// HandleLineWebhook dispatches every event in the callback. The platform
// retries deliveries that do not get a 2xx, so the handler acknowledges
// unconditionally; per-event problems are dealt with inside the bot.
func (h *WebhookHandler) HandleLineWebhook(c *fiber.Ctx) error {
	var callback webhook.CallbackRequest
	if err := json.Unmarshal(c.Body(), &callback); err != nil {
		log.Printf("⚠️ Ignoring malformed webhook payload: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	for _, event := range callback.Events {
		h.dispatchEvent(context.Background(), event)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) dispatchEvent(ctx context.Context, event webhook.EventInterface) {
	switch ev := event.(type) {
	case webhook.MessageEvent:
		h.dispatchMessage(ctx, ev)
	case webhook.PostbackEvent:
		h.dispatchPostback(ctx, ev)
	default:
		log.Printf("🤷 Ignoring event type %T", event)
	}
}

func (h *WebhookHandler) dispatchMessage(ctx context.Context, messageEvent webhook.MessageEvent) {
	userID := sourceUserID(messageEvent.Source)
	if userID == "" {
		log.Println("⚠️ Message event without a user id, skipping")
		return
	}

	switch content := messageEvent.Message.(type) {
	case webhook.TextMessageContent:
		h.bot.HandleTextMessage(ctx, models.InboundMessage{
			UserID:     userID,
			ReplyToken: messageEvent.ReplyToken,
			MessageID:  content.Id,
			Text:       content.Text,
			ReceivedAt: time.Now(),
		})
	case webhook.ImageMessageContent:
		h.bot.HandleImageMessage(ctx, models.InboundMessage{
			UserID:     userID,
			ReplyToken: messageEvent.ReplyToken,
			MessageID:  content.Id,
			ReceivedAt: time.Now(),
		})
	case webhook.LocationMessageContent:
		h.bot.HandleLocationMessage(ctx, models.InboundLocation{
			UserID:     userID,
			ReplyToken: messageEvent.ReplyToken,
			Latitude:   content.Latitude,
			Longitude:  content.Longitude,
			Address:    content.Address,
		})
	default:
		log.Printf("🤷 Ignoring message type %T", content)
	}
}

// dispatchPostback routes menu taps through the same pipeline as typed text,
// with the action data standing in for the message body.
func (h *WebhookHandler) dispatchPostback(ctx context.Context, postbackEvent webhook.PostbackEvent) {
	userID := sourceUserID(postbackEvent.Source)
	if userID == "" {
		log.Println("⚠️ Postback event without a user id, skipping")
		return
	}
	if postbackEvent.Postback == nil || postbackEvent.Postback.Data == "" {
		log.Println("⚠️ Postback event without data, skipping")
		return
	}

	h.bot.HandleTextMessage(ctx, models.InboundMessage{
		UserID:     userID,
		ReplyToken: postbackEvent.ReplyToken,
		Text:       postbackEvent.Postback.Data,
		ReceivedAt: time.Now(),
	})
}

// sourceUserID extracts the sender regardless of chat type. Group and room
// events carry the member who spoke.
func sourceUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

// For exercising the router without the LINE platform
type TestMessagePayload struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// HandleTestMessage routes a message as if it arrived from LINE (for development)
func (h *WebhookHandler) HandleTestMessage(c *fiber.Ctx) error {
	var payload TestMessagePayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}
	if payload.UserID == "" || payload.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and text are required",
		})
	}

	log.Printf("🧪 Test message from %s: %s", payload.UserID, payload.Text)

	outcome := h.bot.HandleTextMessage(c.Context(), models.InboundMessage{
		UserID:     payload.UserID,
		ReplyToken: "test-reply-token",
		MessageID:  "test-message-id",
		Text:       payload.Text,
		ReceivedAt: time.Now(),
	})

	return c.JSON(fiber.Map{
		"intent":  outcome.Intent,
		"task_id": outcome.TaskID,
		"async":   outcome.Async,
	})
}
