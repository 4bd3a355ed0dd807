package jobs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linebot-assistant/internal/models"
	"linebot-assistant/internal/storage"
)

// countingStore records how often the job sweeps.
type countingStore struct {
	storage.Store
	mu     sync.Mutex
	sweeps int
}

func (s *countingStore) PurgeExpired() (int64, error) {
	s.mu.Lock()
	s.sweeps++
	s.mu.Unlock()
	return s.Store.PurgeExpired()
}

func (s *countingStore) sweepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweeps
}

func TestCleanupSweepsPeriodically(t *testing.T) {
	store := &countingStore{Store: storage.NewMemoryStore(storage.DefaultOptions())}
	require.NoError(t, store.CreateTask(&models.TaskRecord{
		TaskID:    "task_stale",
		UserID:    "user-1",
		Kind:      "weather",
		Status:    models.TaskSuccess,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, store.CreateTask(&models.TaskRecord{
		TaskID:    "task_fresh",
		UserID:    "user-1",
		Kind:      "news",
		Status:    models.TaskRunning,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}))

	job := NewCleanupJob(store, 10*time.Millisecond)
	job.Start()
	defer job.Stop()

	require.Eventually(t, func() bool {
		return store.sweepCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	// The stale record is gone, the live one survives the sweep.
	_, err := store.GetTask("task_stale")
	assert.True(t, storage.IsNotFound(err))
	fresh, err := store.GetTask("task_fresh")
	require.NoError(t, err)
	assert.Equal(t, models.TaskRunning, fresh.Status)
}

func TestCleanupStopIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore(storage.DefaultOptions())
	job := NewCleanupJob(store, time.Hour)

	job.Start()
	job.Stop()
	job.Stop()
}
