package waitlist

import (
	"context"
	"log"
	"time"
)

// JobProcessor re-queues promoted entries whose accept window lapsed
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

// Start starts the background window-expiry job
func (jp *JobProcessor) Start(ctx context.Context) {
	log.Println("Starting waitlist background jobs...")
	go jp.startWindowProcessor(ctx)
}

// Stop stops the background window-expiry job
func (jp *JobProcessor) Stop() {
	log.Println("Stopping waitlist background jobs...")
	close(jp.done)
}

func (jp *JobProcessor) startWindowProcessor(ctx context.Context) {
	ticker := time.NewTicker(jp.interval)
	defer ticker.Stop()

	log.Printf("Started waitlist window processor with %v interval", jp.interval)

	for {
		select {
		case <-ticker.C:
			jp.processExpiredWindows(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) processExpiredWindows(ctx context.Context) {
	processed, err := jp.service.ExpireWindows(ctx)
	if err != nil {
		log.Printf("Error processing expired waitlist windows: %v", err)
		return
	}
	if processed > 0 {
		log.Printf("Re-queued %d waitlist entries with lapsed accept windows", processed)
	}
}
