package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"linebot-assistant/internal/models"
)

// DatabaseStore persists conversation state in Postgres via GORM. Rows past
// their expires_at are treated as absent and hard-deleted lazily; the cleanup
// job sweeps the rest.
type DatabaseStore struct {
	db   *gorm.DB
	opts Options
	now  func() time.Time
}

// NewDatabaseStore wraps an open GORM handle.
func NewDatabaseStore(db *gorm.DB, opts Options) *DatabaseStore {
	return &DatabaseStore{db: db, opts: opts.withDefaults(), now: time.Now}
}

func upsertByUser(columns ...string) clause.Expression {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
	}
}

func (s *DatabaseStore) History(userID string) ([]models.ChatTurn, error) {
	var row models.ChatHistory
	err := s.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if s.expired(row.ExpiresAt) {
		s.db.Unscoped().Where("user_id = ?", userID).Delete(&models.ChatHistory{})
		return nil, nil
	}
	return decodeTurns(row.Turns)
}

func (s *DatabaseStore) AppendHistory(userID string, turns ...models.ChatTurn) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var row models.ChatHistory
		var current []models.ChatTurn
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load history: %w", err)
		}
		if err == nil && !s.expired(row.ExpiresAt) {
			if current, err = decodeTurns(row.Turns); err != nil {
				return err
			}
		}

		merged := append(current, turns...)
		if len(merged) > s.opts.HistoryMax {
			merged = merged[len(merged)-s.opts.HistoryMax:]
		}
		encoded, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}

		fresh := models.ChatHistory{
			UserID:    userID,
			Turns:     string(encoded),
			ExpiresAt: s.now().Add(s.opts.HistoryTTL),
		}
		if err := tx.Clauses(upsertByUser("turns", "expires_at")).Create(&fresh).Error; err != nil {
			return fmt.Errorf("save history: %w", err)
		}
		return nil
	})
}

func (s *DatabaseStore) ClearHistory(userID string) error {
	if err := s.db.Unscoped().Where("user_id = ?", userID).Delete(&models.ChatHistory{}).Error; err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *DatabaseStore) SetLocation(userID string, loc models.StoredLocation) error {
	row := models.UserLocation{
		UserID:    userID,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Address:   loc.Address,
		ExpiresAt: s.now().Add(s.opts.HistoryTTL),
	}
	if err := s.db.Clauses(upsertByUser("latitude", "longitude", "address", "expires_at")).Create(&row).Error; err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}

func (s *DatabaseStore) Location(userID string) (*models.StoredLocation, error) {
	var row models.UserLocation
	err := s.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	if s.expired(row.ExpiresAt) {
		s.db.Unscoped().Where("user_id = ?", userID).Delete(&models.UserLocation{})
		return nil, nil
	}
	return &models.StoredLocation{Latitude: row.Latitude, Longitude: row.Longitude, Address: row.Address}, nil
}

func (s *DatabaseStore) SetPendingQuery(userID, query string) error {
	row := models.PendingQuery{
		UserID:    userID,
		Query:     query,
		ExpiresAt: s.now().Add(s.opts.PendingQueryTTL),
	}
	if err := s.db.Clauses(upsertByUser("query", "expires_at")).Create(&row).Error; err != nil {
		return fmt.Errorf("save pending query: %w", err)
	}
	return nil
}

func (s *DatabaseStore) TakePendingQuery(userID string) (string, error) {
	var query string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row models.PendingQuery
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load pending query: %w", err)
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.PendingQuery{}).Error; err != nil {
			return fmt.Errorf("consume pending query: %w", err)
		}
		if !s.expired(row.ExpiresAt) {
			query = row.Query
		}
		return nil
	})
	return query, err
}

func (s *DatabaseStore) SetMode(userID, mode string) error {
	row := models.InputMode{UserID: userID, Mode: mode}
	if err := s.db.Clauses(upsertByUser("mode")).Create(&row).Error; err != nil {
		return fmt.Errorf("save input mode: %w", err)
	}
	return nil
}

func (s *DatabaseStore) TakeMode(userID string) (string, error) {
	var mode string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row models.InputMode
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load input mode: %w", err)
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.InputMode{}).Error; err != nil {
			return fmt.Errorf("consume input mode: %w", err)
		}
		mode = row.Mode
		return nil
	})
	return mode, err
}

func (s *DatabaseStore) AddTodo(userID, item string) (int, error) {
	var count int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		items, err := s.loadTodos(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
		if err != nil {
			return err
		}
		items = append(items, item)
		count = len(items)
		return s.saveTodos(tx, userID, items)
	})
	return count, err
}

func (s *DatabaseStore) Todos(userID string) ([]string, error) {
	return s.loadTodos(s.db, userID)
}

func (s *DatabaseStore) CompleteTodo(userID, ref string) (string, error) {
	var done string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		items, err := s.loadTodos(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
		if err != nil {
			return err
		}
		idx := resolveTodoIndex(items, ref)
		if idx < 0 {
			return &notFoundError{what: "todo item"}
		}
		done = items[idx]
		items = append(items[:idx], items[idx+1:]...)
		if len(items) == 0 {
			return tx.Unscoped().Where("user_id = ?", userID).Delete(&models.TodoList{}).Error
		}
		return s.saveTodos(tx, userID, items)
	})
	return done, err
}

func (s *DatabaseStore) CreateTask(rec *models.TaskRecord) error {
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = s.now().Add(s.opts.TaskTTL)
	}
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("create task record: %w", err)
	}
	return nil
}

func (s *DatabaseStore) GetTask(taskID string) (*models.TaskRecord, error) {
	var rec models.TaskRecord
	err := s.db.Where("task_id = ?", taskID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &notFoundError{what: "task " + taskID}
	}
	if err != nil {
		return nil, fmt.Errorf("load task record: %w", err)
	}
	if s.expired(rec.ExpiresAt) {
		s.db.Unscoped().Where("task_id = ?", taskID).Delete(&models.TaskRecord{})
		return nil, &notFoundError{what: "task " + taskID}
	}
	return &rec, nil
}

func (s *DatabaseStore) UpdateTaskStatus(taskID, status, result, errText string) error {
	res := s.db.Model(&models.TaskRecord{}).Where("task_id = ?", taskID).Updates(map[string]interface{}{
		"status":     status,
		"result":     result,
		"error_text": errText,
	})
	if res.Error != nil {
		return fmt.Errorf("update task record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &notFoundError{what: "task " + taskID}
	}
	return nil
}

func (s *DatabaseStore) PurgeExpired() (int64, error) {
	cutoff := s.now()
	var removed int64
	for _, target := range []interface{}{
		&models.ChatHistory{},
		&models.UserLocation{},
		&models.PendingQuery{},
		&models.TodoList{},
		&models.TaskRecord{},
	} {
		res := s.db.Unscoped().Where("expires_at <= ?", cutoff).Delete(target)
		if res.Error != nil {
			return removed, fmt.Errorf("purge expired rows: %w", res.Error)
		}
		removed += res.RowsAffected
	}
	return removed, nil
}

func (s *DatabaseStore) expired(at time.Time) bool {
	return !s.now().Before(at)
}

func (s *DatabaseStore) loadTodos(tx *gorm.DB, userID string) ([]string, error) {
	var row models.TodoList
	err := tx.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load todos: %w", err)
	}
	if s.expired(row.ExpiresAt) {
		tx.Unscoped().Where("user_id = ?", userID).Delete(&models.TodoList{})
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}
	return items, nil
}

func (s *DatabaseStore) saveTodos(tx *gorm.DB, userID string, items []string) error {
	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode todos: %w", err)
	}
	row := models.TodoList{
		UserID:    userID,
		Items:     string(encoded),
		ExpiresAt: s.now().Add(s.opts.HistoryTTL),
	}
	if err := tx.Clauses(upsertByUser("items", "expires_at")).Create(&row).Error; err != nil {
		return fmt.Errorf("save todos: %w", err)
	}
	return nil
}

func decodeTurns(raw string) ([]models.ChatTurn, error) {
	if raw == "" {
		return nil, nil
	}
	var turns []models.ChatTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return turns, nil
}
