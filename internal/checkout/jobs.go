package checkout

import (
	"context"
	"log"
	"time"
)

// JobProcessor expires checkout sessions that sat past their deadline
type JobProcessor struct {
	service  Service
	interval time.Duration
	done     chan struct{}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, interval time.Duration) *JobProcessor {
	if interval <= 0 {
		interval = 1 * time.Minute
	}
	return &JobProcessor{
		service:  service,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start starts the background expiry job
func (jp *JobProcessor) Start(ctx context.Context) {
	log.Println("Starting checkout background jobs...")
	go jp.startExpiryProcessor(ctx)
}

// Stop stops the background expiry job
func (jp *JobProcessor) Stop() {
	log.Println("Stopping checkout background jobs...")
	close(jp.done)
}

func (jp *JobProcessor) startExpiryProcessor(ctx context.Context) {
	ticker := time.NewTicker(jp.interval)
	defer ticker.Stop()

	log.Printf("Started stale session processor with %v interval", jp.interval)

	for {
		select {
		case <-ticker.C:
			jp.processStaleSessions(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) processStaleSessions(ctx context.Context) {
	expired, err := jp.service.ExpireStaleSessions(ctx)
	if err != nil {
		log.Printf("Error expiring stale checkout sessions: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("Expired %d stale checkout sessions", expired)
	}
}
