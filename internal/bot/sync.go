package bot

import (
	"fmt"
	"log"
	"time"

	"linebot-assistant/internal/models"
	"linebot-assistant/internal/services"
	"linebot-assistant/internal/storage"
)

// The handlers in this file finish inside the webhook request and answer on
// the reply token.

func (b *Bot) handleHelp(msg models.InboundMessage) Outcome {
	b.reply(msg.ReplyToken, helpMessage())
	return Outcome{}
}

func (b *Bot) handleClearMemory(msg models.InboundMessage) Outcome {
	if err := b.store.ClearHistory(msg.UserID); err != nil {
		log.Printf("❌ Could not clear history for %s: %v", msg.UserID, err)
		b.replyText(msg.ReplyToken, clearFailedReply)
		return Outcome{}
	}
	b.replyText(msg.ReplyToken, clearDoneReply)
	return Outcome{}
}

func (b *Bot) handleTodoAdd(msg models.InboundMessage, item string) Outcome {
	count, err := b.store.AddTodo(msg.UserID, item)
	if err != nil {
		log.Printf("❌ Could not add todo for %s: %v", msg.UserID, err)
		b.replyText(msg.ReplyToken, stateUnavailableReply)
		return Outcome{}
	}
	b.replyText(msg.ReplyToken, fmt.Sprintf(todoAddedFormat, item, count))
	return Outcome{}
}

func (b *Bot) handleTodoList(msg models.InboundMessage) Outcome {
	items, err := b.store.Todos(msg.UserID)
	if err != nil {
		log.Printf("❌ Could not list todos for %s: %v", msg.UserID, err)
		b.replyText(msg.ReplyToken, stateUnavailableReply)
		return Outcome{}
	}
	if len(items) == 0 {
		b.replyText(msg.ReplyToken, todoEmptyReply)
		return Outcome{}
	}
	b.replyText(msg.ReplyToken, formatTodoList(items))
	return Outcome{}
}

func (b *Bot) handleTodoComplete(msg models.InboundMessage, ref string) Outcome {
	done, err := b.store.CompleteTodo(msg.UserID, ref)
	if storage.IsNotFound(err) {
		b.replyText(msg.ReplyToken, fmt.Sprintf(todoMissingFormat, ref))
		return Outcome{}
	}
	if err != nil {
		log.Printf("❌ Could not complete todo for %s: %v", msg.UserID, err)
		b.replyText(msg.ReplyToken, stateUnavailableReply)
		return Outcome{}
	}
	b.replyText(msg.ReplyToken, fmt.Sprintf(todoDoneFormat, done))
	return Outcome{}
}

func (b *Bot) handleImageOptions(msg models.InboundMessage) Outcome {
	b.reply(msg.ReplyToken, imageOptionsMessage())
	return Outcome{}
}

func (b *Bot) handleInfoOptions(msg models.InboundMessage) Outcome {
	b.reply(msg.ReplyToken, infoOptionsMessage())
	return Outcome{}
}

func (b *Bot) handleSetMode(msg models.InboundMessage, mode, confirmation string) Outcome {
	if err := b.store.SetMode(msg.UserID, mode); err != nil {
		log.Printf("❌ Could not set input mode for %s: %v", msg.UserID, err)
		b.replyText(msg.ReplyToken, stateUnavailableReply)
		return Outcome{}
	}
	b.replyText(msg.ReplyToken, confirmation)
	return Outcome{}
}

// handleCalendar needs no upstream call, so the link is built and replied
// right away.
func (b *Bot) handleCalendar(msg models.InboundMessage, draft *models.EventDraft) Outcome {
	if draft == nil || draft.Title == "" || draft.Start.IsZero() {
		b.replyText(msg.ReplyToken, calendarUnclearReply)
		return Outcome{}
	}
	event := *draft
	if event.End.IsZero() {
		event.End = event.Start.Add(time.Hour)
	}
	link := services.GoogleCalendarEventURL(event)
	b.replyText(msg.ReplyToken, fmt.Sprintf(calendarFormat, event.Title, services.FormatEventTime(event.Start), link))
	return Outcome{}
}
