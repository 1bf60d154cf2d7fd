package availability

import (
	"context"
	"log"
	"time"
)

// JobProcessor runs the periodic expired-hold sweep. Expired holds are
// also reclaimed lazily on the next write to an occurrence; the sweep
// keeps idle occurrences accurate too.
type JobProcessor struct {
	ledger   Ledger
	interval time.Duration
	done     chan struct{}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(ledger Ledger, interval time.Duration) *JobProcessor {
	if interval <= 0 {
		interval = 1 * time.Minute
	}
	return &JobProcessor{
		ledger:   ledger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start starts the background sweep
func (jp *JobProcessor) Start(ctx context.Context) {
	log.Println("Starting availability background jobs...")
	go jp.startSweeper(ctx)
}

// Stop stops the background sweep
func (jp *JobProcessor) Stop() {
	log.Println("Stopping availability background jobs...")
	close(jp.done)
}

func (jp *JobProcessor) startSweeper(ctx context.Context) {
	ticker := time.NewTicker(jp.interval)
	defer ticker.Stop()

	log.Printf("Started expired hold sweeper with %v interval", jp.interval)

	for {
		select {
		case <-ticker.C:
			jp.sweep(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) sweep(ctx context.Context) {
	reclaimed, err := jp.ledger.SweepExpired(ctx)
	if err != nil {
		log.Printf("Error sweeping expired holds: %v", err)
		return
	}
	if reclaimed > 0 {
		log.Printf("Reclaimed expired holds on %d occurrences", reclaimed)
	}
}
