package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linebot-assistant/internal/models"
)

func newTestStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(Options{HistoryMax: 4, HistoryTTL: time.Hour, PendingQueryTTL: 5 * time.Minute, TaskTTL: 10 * time.Minute})
	s.now = func() time.Time { return current }
	return s, &current
}

func TestAppendHistoryKeepsNewestTurns(t *testing.T) {
	s, _ := newTestStore(t)

	for i := 0; i < 6; i++ {
		err := s.AppendHistory("user-1",
			models.ChatTurn{Role: models.RoleUser, Text: fmt.Sprintf("q%d", i)},
		)
		require.NoError(t, err)
	}

	turns, err := s.History("user-1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "q2", turns[0].Text)
	assert.Equal(t, "q5", turns[3].Text)
}

func TestHistoryExpiresAfterTTL(t *testing.T) {
	s, now := newTestStore(t)

	require.NoError(t, s.AppendHistory("user-1", models.ChatTurn{Role: models.RoleUser, Text: "hi"}))
	*now = now.Add(2 * time.Hour)

	turns, err := s.History("user-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAppendAfterExpiryStartsFresh(t *testing.T) {
	s, now := newTestStore(t)

	require.NoError(t, s.AppendHistory("user-1", models.ChatTurn{Role: models.RoleUser, Text: "old"}))
	*now = now.Add(2 * time.Hour)
	require.NoError(t, s.AppendHistory("user-1", models.ChatTurn{Role: models.RoleUser, Text: "new"}))

	turns, err := s.History("user-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "new", turns[0].Text)
}

func TestTakePendingQueryIsSingleUse(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SetPendingQuery("user-1", "咖啡廳"))

	q, err := s.TakePendingQuery("user-1")
	require.NoError(t, err)
	assert.Equal(t, "咖啡廳", q)

	q, err = s.TakePendingQuery("user-1")
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestTakePendingQueryExpires(t *testing.T) {
	s, now := newTestStore(t)

	require.NoError(t, s.SetPendingQuery("user-1", "拉麵"))
	*now = now.Add(6 * time.Minute)

	q, err := s.TakePendingQuery("user-1")
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestTakeModeClearsIt(t *testing.T) {
	s, now := newTestStore(t)

	require.NoError(t, s.SetMode("user-1", models.ModeAwaitingAnalysisImage))
	*now = now.Add(24 * time.Hour)

	mode, err := s.TakeMode("user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeAwaitingAnalysisImage, mode)

	mode, err = s.TakeMode("user-1")
	require.NoError(t, err)
	assert.Empty(t, mode)
}

func TestLocationRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SetLocation("user-1", models.StoredLocation{Latitude: 25.03, Longitude: 121.56, Address: "台北市"}))

	loc, err := s.Location("user-1")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, "台北市", loc.Address)

	loc, err = s.Location("user-2")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestCompleteTodoByIndexAndText(t *testing.T) {
	s, _ := newTestStore(t)

	for _, item := range []string{"買牛奶", "繳電費", "回信"} {
		_, err := s.AddTodo("user-1", item)
		require.NoError(t, err)
	}

	done, err := s.CompleteTodo("user-1", "2")
	require.NoError(t, err)
	assert.Equal(t, "繳電費", done)

	done, err = s.CompleteTodo("user-1", "回信")
	require.NoError(t, err)
	assert.Equal(t, "回信", done)

	items, err := s.Todos("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"買牛奶"}, items)

	_, err = s.CompleteTodo("user-1", "不存在的事")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestTaskRecordLifecycle(t *testing.T) {
	s, now := newTestStore(t)

	rec := &models.TaskRecord{TaskID: "task_abc12345", UserID: "user-1", Kind: "weather", Status: models.TaskPending}
	require.NoError(t, s.CreateTask(rec))

	require.NoError(t, s.UpdateTaskStatus("task_abc12345", models.TaskSuccess, "sunny", ""))

	got, err := s.GetTask("task_abc12345")
	require.NoError(t, err)
	assert.Equal(t, models.TaskSuccess, got.Status)
	assert.Equal(t, "sunny", got.Result)

	*now = now.Add(11 * time.Minute)
	_, err = s.GetTask("task_abc12345")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestPurgeExpiredSweepsEverything(t *testing.T) {
	s, now := newTestStore(t)

	require.NoError(t, s.AppendHistory("user-1", models.ChatTurn{Role: models.RoleUser, Text: "hi"}))
	require.NoError(t, s.SetPendingQuery("user-1", "公園"))
	require.NoError(t, s.CreateTask(&models.TaskRecord{TaskID: "task_gone", UserID: "user-1", Kind: "news", Status: models.TaskPending}))
	_, err := s.AddTodo("user-1", "買牛奶")
	require.NoError(t, err)

	*now = now.Add(3 * time.Hour)

	removed, err := s.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	turns, err := s.History("user-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
