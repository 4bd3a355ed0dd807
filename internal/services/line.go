package services

import (
	"fmt"
	"io"
	"log"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// LineService wraps the LINE Messaging API client for replies, pushes, and
// message content downloads.
type LineService struct {
	api  *messaging_api.MessagingApiAPI
	blob *messaging_api.MessagingApiBlobAPI
}

// NewLineService creates the messaging and blob clients from the channel
// access token.
func NewLineService(channelToken string) (*LineService, error) {
	if channelToken == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_TOKEN is not set")
	}
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	log.Println("✅ LINE messaging client initialized")
	return &LineService{api: api, blob: blob}, nil
}

// Reply answers the event that produced replyToken. Each token is valid once
// and only briefly, so failures are not retried.
func (s *LineService) Reply(replyToken string, messages ...messaging_api.MessageInterface) error {
	_, err := s.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// ReplyText answers with a single plain text message.
func (s *LineService) ReplyText(replyToken, text string) error {
	return s.Reply(replyToken, messaging_api.TextMessage{Text: text})
}

// Push sends messages to a user outside the reply window.
func (s *LineService) Push(userID string, messages ...messaging_api.MessageInterface) error {
	_, err := s.api.PushMessage(&messaging_api.PushMessageRequest{
		To:       userID,
		Messages: messages,
	}, "")
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

// PushText sends a single plain text message to a user.
func (s *LineService) PushText(userID, text string) error {
	return s.Push(userID, messaging_api.TextMessage{Text: text})
}

// MessageContent downloads the binary payload of an uploaded message, such
// as an image the user sent.
func (s *LineService) MessageContent(messageID string) ([]byte, error) {
	resp, err := s.blob.GetMessageContent(messageID)
	if err != nil {
		return nil, fmt.Errorf("fetch message content: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: "line message content " + messageID, Body: string(body)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read message content: %w", err)
	}
	return data, nil
}
