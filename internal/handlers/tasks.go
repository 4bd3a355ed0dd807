package handlers

import (
	"github.com/gofiber/fiber/v2"

	"linebot-assistant/internal/storage"
)

// TaskHandler serves background task status lookups.
type TaskHandler struct {
	store storage.Store
}

// NewTaskHandler creates the task handler.
func NewTaskHandler(store storage.Store) *TaskHandler {
	return &TaskHandler{store: store}
}

// Status returns the current state of one task. Expired records read as
// not found, same as ids that never existed.
func (h *TaskHandler) Status(c *fiber.Ctx) error {
	taskID := c.Params("id")

	task, err := h.store.GetTask(taskID)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Task not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load task",
		})
	}

	return c.JSON(fiber.Map{
		"task_id":    task.TaskID,
		"kind":       task.Kind,
		"status":     task.Status,
		"result":     task.Result,
		"error":      task.ErrorText,
		"created_at": task.CreatedAt,
		"expires_at": task.ExpiresAt,
	})
}
