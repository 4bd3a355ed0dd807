package jobs

import (
	"log"
	"time"

	"linebot-assistant/internal/storage"
)

// CleanupJob periodically reclaims expired conversation state and task
// records. The stores also expire entries lazily on read; this sweep keeps
// rows for users who never come back from piling up.
type CleanupJob struct {
	store     storage.Store
	interval  time.Duration
	stop      chan struct{}
	isRunning bool
}

// NewCleanupJob creates a new cleanup job scheduler
func NewCleanupJob(store storage.Store, interval time.Duration) *CleanupJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CleanupJob{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (j *CleanupJob) Start() {
	if j.isRunning {
		log.Println("Cleanup job already running")
		return
	}
	j.isRunning = true
	log.Printf("🧹 Cleanup job started (every %v)", j.interval)
	go j.run()
}

// Stop halts the sweep loop
func (j *CleanupJob) Stop() {
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stop)
	log.Println("⏹️ Cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stop:
			return
		}
	}
}

func (j *CleanupJob) sweep() {
	removed, err := j.store.PurgeExpired()
	if err != nil {
		log.Printf("⚠️ Cleanup sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("🧹 Cleanup removed %d expired records", removed)
	}
}
