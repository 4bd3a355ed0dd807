package models

import "time"

// InboundMessage is one normalized webhook event handed to the router. It is
// built per event and discarded once routing completes.
type InboundMessage struct {
	UserID     string
	ReplyToken string
	MessageID  string
	Text       string
	ReceivedAt time.Time
}

// InboundLocation is a shared-position event.
type InboundLocation struct {
	UserID     string
	ReplyToken string
	Latitude   float64
	Longitude  float64
	Address    string
}
