package services

import (
	"net/url"
	"time"

	"linebot-assistant/internal/models"
)

const (
	calendarRenderURL    = "https://www.google.com/calendar/render"
	calendarEventDetails = "此活動由您的 LINE Bot 助理建立。"
)

// GoogleCalendarEventURL builds a prefilled event-creation link the user can
// open to add the draft to their own calendar. Times are encoded in UTC as
// the render endpoint expects.
func GoogleCalendarEventURL(draft models.EventDraft) string {
	const stamp = "20060102T150405Z"
	dates := draft.Start.UTC().Format(stamp) + "/" + draft.End.UTC().Format(stamp)

	details := draft.Description
	if details == "" {
		details = calendarEventDetails
	}

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", draft.Title)
	params.Set("dates", dates)
	params.Set("details", details)
	params.Set("sf", "true")
	params.Set("output", "xml")
	return calendarRenderURL + "?" + params.Encode()
}

// FormatEventTime renders a start time for confirmation messages in Taipei
// local time.
func FormatEventTime(t time.Time) string {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	return t.In(loc).Format("2006/01/02 15:04")
}
