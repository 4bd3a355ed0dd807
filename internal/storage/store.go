package storage

import (
	"errors"
	"sync"
	"time"

	"linebot-assistant/internal/models"
)

var (
	storeInstance Store
	storeMu       sync.RWMutex
)

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeMu.Lock()
	defer storeMu.Unlock()
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return storeInstance
}

// Options carries the retention policy both backends share.
type Options struct {
	HistoryMax      int
	HistoryTTL      time.Duration
	PendingQueryTTL time.Duration
	TaskTTL         time.Duration
}

// DefaultOptions mirrors the production retention policy.
func DefaultOptions() Options {
	return Options{
		HistoryMax:      20,
		HistoryTTL:      2 * time.Hour,
		PendingQueryTTL: 5 * time.Minute,
		TaskTTL:         10 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.HistoryMax <= 0 {
		o.HistoryMax = def.HistoryMax
	}
	if o.HistoryTTL <= 0 {
		o.HistoryTTL = def.HistoryTTL
	}
	if o.PendingQueryTTL <= 0 {
		o.PendingQueryTTL = def.PendingQueryTTL
	}
	if o.TaskTTL <= 0 {
		o.TaskTTL = def.TaskTTL
	}
	return o
}

// Store defines the interface for conversation-state and task persistence.
// Every write refreshes the TTL of what it touches; reads never return
// expired values. Implementations must be safe for concurrent use.
type Store interface {
	// Chat history. AppendHistory trims to the newest HistoryMax turns
	// before persisting and replaces the stored list in one write.
	History(userID string) ([]models.ChatTurn, error)
	AppendHistory(userID string, turns ...models.ChatTurn) error
	ClearHistory(userID string) error

	// Location memory.
	SetLocation(userID string, loc models.StoredLocation) error
	Location(userID string) (*models.StoredLocation, error)

	// Pending nearby-search query. Take removes what it returns; a second
	// Take comes back empty.
	SetPendingQuery(userID, query string) error
	TakePendingQuery(userID string) (string, error)

	// Input mode for the next image upload. Take semantics as above.
	SetMode(userID, mode string) error
	TakeMode(userID string) (string, error)

	// Todo list. CompleteTodo accepts a 1-based index or the exact item
	// text and returns the removed item.
	AddTodo(userID, item string) (int, error)
	Todos(userID string) ([]string, error)
	CompleteTodo(userID, ref string) (string, error)

	// Background task records.
	CreateTask(rec *models.TaskRecord) error
	GetTask(taskID string) (*models.TaskRecord, error)
	UpdateTaskStatus(taskID, status, result, errText string) error

	// PurgeExpired removes everything past its TTL and reports how many
	// records were dropped.
	PurgeExpired() (int64, error)
}

type notFoundError struct{ what string }

func (e *notFoundError) Error() string { return e.what + " not found" }

// IsNotFound reports whether err marks an absent or expired record.
func IsNotFound(err error) bool {
	var nf *notFoundError
	return errors.As(err, &nf)
}
