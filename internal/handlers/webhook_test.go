package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linebot-assistant/internal/bot"
	"linebot-assistant/internal/models"
	"linebot-assistant/internal/storage"
)

type fakeMessenger struct {
	mu         sync.Mutex
	replies    []string
	replyTexts []string
	pushTexts  []string
}

func (m *fakeMessenger) Reply(replyToken string, messages ...messaging_api.MessageInterface) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replyToken)
	return nil
}

func (m *fakeMessenger) ReplyText(replyToken, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replyToken)
	m.replyTexts = append(m.replyTexts, text)
	return nil
}

func (m *fakeMessenger) Push(userID string, messages ...messaging_api.MessageInterface) error {
	return nil
}

func (m *fakeMessenger) PushText(userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushTexts = append(m.pushTexts, text)
	return nil
}

func (m *fakeMessenger) MessageContent(messageID string) ([]byte, error) {
	return []byte("img"), nil
}

func (m *fakeMessenger) replyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

// stubSubmitter accepts every task without running it, keeping webhook tests
// on the request path only.
type stubSubmitter struct{}

func (stubSubmitter) Submit(userID, kind string, work func(ctx context.Context) (string, error)) (string, error) {
	return "task_test", nil
}

func newWebhookApp(t *testing.T) (*fiber.App, *fakeMessenger, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore(storage.DefaultOptions())
	messenger := &fakeMessenger{}
	b := bot.New(bot.Config{Store: store, Messenger: messenger, Executor: stubSubmitter{}})
	handler := NewWebhookHandler(b)

	app := fiber.New()
	app.Post("/webhook/line", handler.HandleLineWebhook)
	app.Post("/test/message", handler.HandleTestMessage)
	return app, messenger, store
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, payload
}

func TestWebhookDispatchesTextMessage(t *testing.T) {
	app, messenger, _ := newWebhookApp(t)

	body := `{
		"destination": "Udest",
		"events": [{
			"type": "message",
			"mode": "active",
			"timestamp": 1718000000000,
			"replyToken": "rtoken-1",
			"source": {"type": "user", "userId": "user-1"},
			"message": {"type": "text", "id": "mid-1", "text": "功能說明"}
		}]
	}`
	status, _ := postJSON(t, app, "/webhook/line", body)

	assert.Equal(t, fiber.StatusOK, status)
	require.Equal(t, 1, messenger.replyCount())
	assert.Equal(t, "rtoken-1", messenger.replies[0])
}

func TestWebhookAcksMalformedPayload(t *testing.T) {
	app, messenger, _ := newWebhookApp(t)

	status, _ := postJSON(t, app, "/webhook/line", `{"events": [{"type"`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Zero(t, messenger.replyCount())
}

func TestWebhookIgnoresNonMessageEvents(t *testing.T) {
	app, messenger, _ := newWebhookApp(t)

	body := `{
		"destination": "Udest",
		"events": [{
			"type": "follow",
			"mode": "active",
			"timestamp": 1718000000000,
			"replyToken": "rtoken-1",
			"source": {"type": "user", "userId": "user-1"}
		}]
	}`
	status, _ := postJSON(t, app, "/webhook/line", body)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Zero(t, messenger.replyCount())
}

func TestWebhookStoresSharedLocation(t *testing.T) {
	app, messenger, store := newWebhookApp(t)

	body := `{
		"destination": "Udest",
		"events": [{
			"type": "message",
			"mode": "active",
			"timestamp": 1718000000000,
			"replyToken": "rtoken-2",
			"source": {"type": "group", "groupId": "G1", "userId": "user-2"},
			"message": {
				"type": "location",
				"id": "mid-2",
				"address": "台北市信義區",
				"latitude": 25.033,
				"longitude": 121.5654
			}
		}]
	}`
	status, _ := postJSON(t, app, "/webhook/line", body)

	assert.Equal(t, fiber.StatusOK, status)
	require.Equal(t, 1, messenger.replyCount())
	assert.Equal(t, "rtoken-2", messenger.replies[0])
	assert.Contains(t, messenger.replyTexts[0], "餐廳")

	loc, err := store.Location("user-2")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.InDelta(t, 25.033, loc.Latitude, 0.0001)
	assert.Equal(t, "台北市信義區", loc.Address)
}

func TestWebhookRoutesPostbackData(t *testing.T) {
	app, messenger, _ := newWebhookApp(t)

	body := `{
		"destination": "Udest",
		"events": [{
			"type": "postback",
			"mode": "active",
			"timestamp": 1718000000000,
			"replyToken": "rtoken-3",
			"source": {"type": "user", "userId": "user-3"},
			"postback": {"data": "功能說明"}
		}]
	}`
	status, _ := postJSON(t, app, "/webhook/line", body)

	assert.Equal(t, fiber.StatusOK, status)
	require.Equal(t, 1, messenger.replyCount())
	assert.Equal(t, "rtoken-3", messenger.replies[0])
}

func TestTestMessageRejectsMissingFields(t *testing.T) {
	app, _, _ := newWebhookApp(t)

	status, _ := postJSON(t, app, "/test/message", `{"user_id": "user-1"}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestTestMessageReportsOutcome(t *testing.T) {
	app, _, _ := newWebhookApp(t)

	status, payload := postJSON(t, app, "/test/message", `{"user_id": "user-1", "text": "功能說明"}`)

	require.Equal(t, fiber.StatusOK, status)
	var out struct {
		Intent string `json:"intent"`
		Async  bool   `json:"async"`
	}
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, string(models.IntentHelp), out.Intent)
	assert.False(t, out.Async)
}

func TestTaskStatus(t *testing.T) {
	store := storage.NewMemoryStore(storage.DefaultOptions())
	require.NoError(t, store.CreateTask(&models.TaskRecord{
		TaskID:    "task_abc12345",
		UserID:    "user-1",
		Kind:      "weather",
		Status:    models.TaskSuccess,
		Result:    "臺北 晴 30.0°C",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}))

	app := fiber.New()
	app.Get("/api/tasks/:id", NewTaskHandler(store).Status)

	req := httptest.NewRequest("GET", "/api/tasks/task_abc12345", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		TaskID string `json:"task_id"`
		Kind   string `json:"kind"`
		Status string `json:"status"`
		Result string `json:"result"`
	}
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, "task_abc12345", out.TaskID)
	assert.Equal(t, "weather", out.Kind)
	assert.Equal(t, models.TaskSuccess, out.Status)
	assert.Equal(t, "臺北 晴 30.0°C", out.Result)
}

func TestTaskStatusNotFound(t *testing.T) {
	store := storage.NewMemoryStore(storage.DefaultOptions())

	app := fiber.New()
	app.Get("/api/tasks/:id", NewTaskHandler(store).Status)

	req := httptest.NewRequest("GET", "/api/tasks/task_missing", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
