package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/coworkr/plugin/ai/cache"
)

// DefaultCleanupInterval is the default interval between cleanup runs.
const DefaultCleanupInterval = 10 * time.Minute

// CleanupJob periodically drops expired history and clarifications from
// backends that do not expire keys on their own.
type CleanupJob struct {
	sweeper  cache.Sweeper
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(sweeper cache.Sweeper, interval time.Duration) *CleanupJob {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupJob{
		sweeper:  sweeper,
		interval: interval,
	}
}

// Start begins the periodic cleanup in a goroutine. It is a no-op when
// already running.
func (j *CleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	j.running = true
	j.stopChan = make(chan struct{})
	j.done = make(chan struct{})

	go j.run(ctx, j.stopChan, j.done)

	slog.Info("session cleanup job started", "interval", j.interval)
}

// Stop stops the cleanup job and waits for it to exit.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopChan)
	done := j.done
	j.running = false
	j.mu.Unlock()

	<-done
	slog.Info("session cleanup job stopped")
}

// RunOnce executes a single cleanup run immediately.
func (j *CleanupJob) RunOnce() int {
	return j.sweeper.CleanupExpired()
}

// IsRunning returns whether the cleanup job is currently running.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *CleanupJob) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if removed := j.RunOnce(); removed > 0 {
				slog.Debug("session cleanup completed", "removed", removed)
			}
		}
	}
}
