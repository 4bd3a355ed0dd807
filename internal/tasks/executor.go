package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"linebot-assistant/internal/models"
)

// ErrQueueFull is returned by Submit when every worker is busy and the
// backlog is at capacity. Callers should tell the user to try again instead
// of blocking the webhook.
var ErrQueueFull = errors.New("task queue is full")

// failureNotice is the only failure text users ever see from the executor.
const failureNotice = "抱歉，處理您的請求時發生錯誤，請稍後再試。"

type taskStore interface {
	CreateTask(rec *models.TaskRecord) error
	UpdateTaskStatus(taskID, status, result, errText string) error
}

type notifier interface {
	PushText(userID, text string) error
}

// task is one queued unit of work. Work returns a short result summary for
// the task record; it is responsible for pushing its own success messages.
type task struct {
	id     string
	userID string
	kind   string
	work   func(ctx context.Context) (string, error)
}

// Executor runs background work on a fixed pool of workers with a bounded
// queue. Execution is at most once and not durable: accepted work that is
// lost to a crash is never replayed. Each task gets its own timeout, and
// every failure, including timeout and panic, ends with one generic push to
// the user.
type Executor struct {
	store    taskStore
	notifier notifier
	timeout  time.Duration
	workers  int

	queue    chan task
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewExecutor sizes the pool. workers and queueSize are clamped to at least
// one.
func NewExecutor(store taskStore, n notifier, workers, queueSize int, timeout time.Duration) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Executor{
		store:    store,
		notifier: n,
		timeout:  timeout,
		workers:  workers,
		queue:    make(chan task, queueSize),
	}
}

// Start launches the worker pool.
func (e *Executor) Start() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.workerLoop()
	}
	log.Printf("🚀 Task executor started with %d workers (queue %d)", e.workers, cap(e.queue))
}

// Stop closes intake, drains whatever is already queued, and waits for
// in-flight work to finish.
func (e *Executor) Stop() {
	e.stopOnce.Do(func() {
		close(e.queue)
		e.wg.Wait()
		log.Println("⏹️ Task executor stopped")
	})
}

// Submit records a pending task and enqueues it. When the queue is full the
// record is immediately marked failed and ErrQueueFull comes back, so the
// caller can answer inside the webhook reply window.
func (e *Executor) Submit(userID, kind string, work func(ctx context.Context) (string, error)) (string, error) {
	taskID := "task_" + uuid.New().String()[:8]
	rec := &models.TaskRecord{
		TaskID: taskID,
		UserID: userID,
		Kind:   kind,
		Status: models.TaskPending,
	}
	if err := e.store.CreateTask(rec); err != nil {
		return "", fmt.Errorf("record task: %w", err)
	}

	select {
	case e.queue <- task{id: taskID, userID: userID, kind: kind, work: work}:
		log.Printf("📦 Task %s (%s) queued for %s", taskID, kind, userID)
		return taskID, nil
	default:
		if err := e.store.UpdateTaskStatus(taskID, models.TaskFailed, "", "queue full"); err != nil {
			log.Printf("⚠️ Could not mark %s failed: %v", taskID, err)
		}
		return "", ErrQueueFull
	}
}

// Queued reports how many tasks wait in the backlog.
func (e *Executor) Queued() int {
	return len(e.queue)
}

// Workers reports the pool size.
func (e *Executor) Workers() int {
	return e.workers
}

func (e *Executor) workerLoop() {
	defer e.wg.Done()
	for t := range e.queue {
		e.run(t)
	}
}

func (e *Executor) run(t task) {
	if err := e.store.UpdateTaskStatus(t.id, models.TaskRunning, "", ""); err != nil {
		log.Printf("⚠️ Could not mark %s running: %v", t.id, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	started := time.Now()
	result, err := e.execute(ctx, t)
	elapsed := time.Since(started).Round(time.Millisecond)

	if err != nil {
		log.Printf("❌ Task %s (%s) failed after %v: %v", t.id, t.kind, elapsed, err)
		if updateErr := e.store.UpdateTaskStatus(t.id, models.TaskFailed, "", err.Error()); updateErr != nil {
			log.Printf("⚠️ Could not mark %s failed: %v", t.id, updateErr)
		}
		if e.notifier != nil {
			if pushErr := e.notifier.PushText(t.userID, failureNotice); pushErr != nil {
				log.Printf("⚠️ Could not notify %s about task %s: %v", t.userID, t.id, pushErr)
			}
		}
		return
	}

	log.Printf("✅ Task %s (%s) finished in %v", t.id, t.kind, elapsed)
	if updateErr := e.store.UpdateTaskStatus(t.id, models.TaskSuccess, result, ""); updateErr != nil {
		log.Printf("⚠️ Could not mark %s succeeded: %v", t.id, updateErr)
	}
}

// execute runs the work in its own goroutine so the timeout holds even when
// the work ignores its context. Panics surface as errors.
func (e *Executor) execute(ctx context.Context, t task) (string, error) {
	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		result, err := t.work(ctx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return "", fmt.Errorf("task %s: %w", t.id, ctx.Err())
	}
}
