package models

import (
	"time"

	"gorm.io/gorm"
)

// Background task statuses. A record is terminal once it leaves
// pending/running.
const (
	TaskPending = "pending"
	TaskRunning = "running"
	TaskSuccess = "success"
	TaskFailed  = "failed"
)

// TaskRecord tracks one background work item for status polling. Records are
// short-lived; the cleanup job reclaims them after ExpiresAt.
type TaskRecord struct {
	gorm.Model
	TaskID    string    `gorm:"uniqueIndex;not null" json:"task_id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Result    string    `json:"result,omitempty"`
	ErrorText string    `json:"error,omitempty"`
	ExpiresAt time.Time `gorm:"index" json:"-"`
}
