package draws

import (
	"context"
	"log"
	"time"
)

// JobProcessor handles background maintenance for draws
type JobProcessor struct {
	service Service
	config  *JobConfig
	done    chan struct{}
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	HoldSweepInterval    time.Duration
	DrawDeadlineInterval time.Duration
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		HoldSweepInterval:    5 * time.Second,  // Release lapsed number holds
		DrawDeadlineInterval: 30 * time.Second, // Finish draws past their deadline
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		service: service,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start starts all background jobs
func (jp *JobProcessor) Start(ctx context.Context) {
	log.Println("Starting draw background jobs...")

	go jp.startHoldSweeper(ctx)
	go jp.startDeadlineWatcher(ctx)

	log.Println("Draw background jobs started")
}

// Stop stops all background jobs
func (jp *JobProcessor) Stop() {
	log.Println("Stopping draw background jobs...")
	close(jp.done)
	log.Println("Draw background jobs stopped")
}

// startHoldSweeper periodically frees expired number holds on the active
// draw. Expiry is also applied lazily on reads, so this only keeps the
// occupancy counters honest between requests.
func (jp *JobProcessor) startHoldSweeper(ctx context.Context) {
	ticker := time.NewTicker(jp.config.HoldSweepInterval)
	defer ticker.Stop()

	log.Printf("Started hold sweeper with %v interval", jp.config.HoldSweepInterval)

	for {
		select {
		case <-ticker.C:
			jp.sweepHolds(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) sweepHolds(ctx context.Context) {
	swept, err := jp.service.SweepActiveDraw(ctx)
	if err != nil {
		log.Printf("Error sweeping expired holds: %v", err)
		return
	}

	if swept > 0 {
		log.Printf("Released %d expired number holds", swept)
	}
}

// startDeadlineWatcher finishes active draws whose EndsAt has passed.
func (jp *JobProcessor) startDeadlineWatcher(ctx context.Context) {
	ticker := time.NewTicker(jp.config.DrawDeadlineInterval)
	defer ticker.Stop()

	log.Printf("Started deadline watcher with %v interval", jp.config.DrawDeadlineInterval)

	for {
		select {
		case <-ticker.C:
			jp.expireDueDraws(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) expireDueDraws(ctx context.Context) {
	expired, err := jp.service.ExpireDueDraws(ctx)
	if err != nil {
		log.Printf("Error expiring overdue draws: %v", err)
		return
	}

	if expired > 0 {
		log.Printf("Finished %d overdue draws", expired)
	}
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"hold_sweep_interval":    jp.config.HoldSweepInterval.String(),
		"draw_deadline_interval": jp.config.DrawDeadlineInterval.String(),
		"status":                 "running",
	}
}
