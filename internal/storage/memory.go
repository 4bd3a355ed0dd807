package storage

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"linebot-assistant/internal/models"
)

type historyEntry struct {
	turns     []models.ChatTurn
	expiresAt time.Time
}

type locationEntry struct {
	loc       models.StoredLocation
	expiresAt time.Time
}

type stringEntry struct {
	value     string
	expiresAt time.Time
}

type todoEntry struct {
	items     []string
	expiresAt time.Time
}

// MemoryStore keeps all conversation state in process memory. Used for tests
// and USE_MEMORY_STORE deployments; everything is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	opts Options

	histories map[string]*historyEntry
	locations map[string]*locationEntry
	pending   map[string]*stringEntry
	modes     map[string]string
	todos     map[string]*todoEntry
	tasks     map[string]*models.TaskRecord

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:      opts.withDefaults(),
		histories: make(map[string]*historyEntry),
		locations: make(map[string]*locationEntry),
		pending:   make(map[string]*stringEntry),
		modes:     make(map[string]string),
		todos:     make(map[string]*todoEntry),
		tasks:     make(map[string]*models.TaskRecord),
		now:       time.Now,
	}
}

// History returns the user's stored turns, oldest first.
func (s *MemoryStore) History(userID string) ([]models.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.histories[userID]
	if !ok {
		return nil, nil
	}
	if s.expired(ent.expiresAt) {
		delete(s.histories, userID)
		return nil, nil
	}
	out := make([]models.ChatTurn, len(ent.turns))
	copy(out, ent.turns)
	return out, nil
}

// AppendHistory adds turns, trims to the newest HistoryMax entries, and
// refreshes the TTL.
func (s *MemoryStore) AppendHistory(userID string, turns ...models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []models.ChatTurn
	if ent, ok := s.histories[userID]; ok && !s.expired(ent.expiresAt) {
		current = ent.turns
	}
	merged := append(current, turns...)
	if len(merged) > s.opts.HistoryMax {
		merged = merged[len(merged)-s.opts.HistoryMax:]
	}
	kept := make([]models.ChatTurn, len(merged))
	copy(kept, merged)
	s.histories[userID] = &historyEntry{turns: kept, expiresAt: s.now().Add(s.opts.HistoryTTL)}
	return nil
}

// ClearHistory forgets the conversation.
func (s *MemoryStore) ClearHistory(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, userID)
	return nil
}

// SetLocation remembers the user's position.
func (s *MemoryStore) SetLocation(userID string, loc models.StoredLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[userID] = &locationEntry{loc: loc, expiresAt: s.now().Add(s.opts.HistoryTTL)}
	return nil
}

// Location returns the stored position, or nil when absent or expired.
func (s *MemoryStore) Location(userID string) (*models.StoredLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.locations[userID]
	if !ok {
		return nil, nil
	}
	if s.expired(ent.expiresAt) {
		delete(s.locations, userID)
		return nil, nil
	}
	loc := ent.loc
	return &loc, nil
}

// SetPendingQuery stages a nearby-search term until a location arrives.
func (s *MemoryStore) SetPendingQuery(userID, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = &stringEntry{value: query, expiresAt: s.now().Add(s.opts.PendingQueryTTL)}
	return nil
}

// TakePendingQuery returns and removes the staged term.
func (s *MemoryStore) TakePendingQuery(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.pending[userID]
	if !ok {
		return "", nil
	}
	delete(s.pending, userID)
	if s.expired(ent.expiresAt) {
		return "", nil
	}
	return ent.value, nil
}

// SetMode marks what the next image upload is for.
func (s *MemoryStore) SetMode(userID, mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[userID] = mode
	return nil
}

// TakeMode returns and clears the current mode.
func (s *MemoryStore) TakeMode(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := s.modes[userID]
	delete(s.modes, userID)
	return mode, nil
}

// AddTodo appends an item and returns the new list length.
func (s *MemoryStore) AddTodo(userID, item string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.freshTodos(userID)
	items = append(items, item)
	s.todos[userID] = &todoEntry{items: items, expiresAt: s.now().Add(s.opts.HistoryTTL)}
	return len(items), nil
}

// Todos lists the user's open items.
func (s *MemoryStore) Todos(userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.freshTodos(userID)
	out := make([]string, len(items))
	copy(out, items)
	return out, nil
}

// CompleteTodo removes the item addressed by a 1-based index or by its exact
// text and returns it.
func (s *MemoryStore) CompleteTodo(userID, ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.freshTodos(userID)
	idx := resolveTodoIndex(items, ref)
	if idx < 0 {
		return "", &notFoundError{what: "todo item"}
	}
	done := items[idx]
	items = append(items[:idx], items[idx+1:]...)
	if len(items) == 0 {
		delete(s.todos, userID)
	} else {
		s.todos[userID] = &todoEntry{items: items, expiresAt: s.now().Add(s.opts.HistoryTTL)}
	}
	return done, nil
}

// CreateTask stores a fresh task record.
func (s *MemoryStore) CreateTask(rec *models.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = s.now().Add(s.opts.TaskTTL)
	}
	clone := *rec
	s.tasks[rec.TaskID] = &clone
	return nil
}

// GetTask returns the record for taskID while it lives.
func (s *MemoryStore) GetTask(taskID string) (*models.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[taskID]
	if !ok || s.expired(rec.ExpiresAt) {
		delete(s.tasks, taskID)
		return nil, &notFoundError{what: "task " + taskID}
	}
	clone := *rec
	return &clone, nil
}

// UpdateTaskStatus transitions a task and records its outcome.
func (s *MemoryStore) UpdateTaskStatus(taskID, status, result, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[taskID]
	if !ok {
		return &notFoundError{what: "task " + taskID}
	}
	rec.Status = status
	rec.Result = result
	rec.ErrorText = errText
	return nil
}

// PurgeExpired drops every entry past its TTL.
func (s *MemoryStore) PurgeExpired() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, ent := range s.histories {
		if s.expired(ent.expiresAt) {
			delete(s.histories, id)
			removed++
		}
	}
	for id, ent := range s.locations {
		if s.expired(ent.expiresAt) {
			delete(s.locations, id)
			removed++
		}
	}
	for id, ent := range s.pending {
		if s.expired(ent.expiresAt) {
			delete(s.pending, id)
			removed++
		}
	}
	for id, ent := range s.todos {
		if s.expired(ent.expiresAt) {
			delete(s.todos, id)
			removed++
		}
	}
	for id, rec := range s.tasks {
		if s.expired(rec.ExpiresAt) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) expired(at time.Time) bool {
	return !s.now().Before(at)
}

// freshTodos returns the live slice for userID, dropping it when expired.
// Callers must hold the lock.
func (s *MemoryStore) freshTodos(userID string) []string {
	ent, ok := s.todos[userID]
	if !ok {
		return nil
	}
	if s.expired(ent.expiresAt) {
		delete(s.todos, userID)
		return nil
	}
	return ent.items
}

// resolveTodoIndex maps ref (a 1-based index or exact item text) to a slice
// index, or -1.
func resolveTodoIndex(items []string, ref string) int {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(items) {
			return n - 1
		}
		return -1
	}
	for i, item := range items {
		if item == ref {
			return i
		}
	}
	return -1
}
