package services

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linebot-assistant/internal/models"
)

func TestGoogleCalendarEventURL(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	draft := models.EventDraft{
		Title:       "牙醫回診",
		Start:       time.Date(2025, 6, 2, 14, 0, 0, 0, loc),
		End:         time.Date(2025, 6, 2, 15, 0, 0, 0, loc),
		Description: "記得帶健保卡",
	}

	link := GoogleCalendarEventURL(draft)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "www.google.com", parsed.Host)
	query := parsed.Query()
	assert.Equal(t, "TEMPLATE", query.Get("action"))
	assert.Equal(t, "牙醫回診", query.Get("text"))
	assert.Equal(t, "20250602T060000Z/20250602T070000Z", query.Get("dates"))
	assert.Equal(t, "記得帶健保卡", query.Get("details"))
	assert.Equal(t, "true", query.Get("sf"))
	assert.Equal(t, "xml", query.Get("output"))
}

func TestGoogleCalendarEventURLDefaultsDetails(t *testing.T) {
	draft := models.EventDraft{
		Title: "開會",
		Start: time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC),
	}

	parsed, err := url.Parse(GoogleCalendarEventURL(draft))
	require.NoError(t, err)
	assert.Equal(t, "此活動由您的 LINE Bot 助理建立。", parsed.Query().Get("details"))
}

func TestFormatEventTimeUsesTaipeiClock(t *testing.T) {
	at := time.Date(2025, 6, 2, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025/06/02 14:30", FormatEventTime(at))
}
