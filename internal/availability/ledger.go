package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voyago/pkg/cache"
	"voyago/pkg/logger"

	"github.com/google/uuid"
)

// Promoter is notified when confirmed capacity frees up, so queued
// waitlist entries can be offered the freed slots. Implemented by the
// waitlist service; the indirection avoids an import cycle.
type Promoter interface {
	PromoteFreed(ctx context.Context, occurrenceID uuid.UUID, freed int)
}

// Ledger is the single source of truth for seats remaining per
// occurrence. All capacity mutations for one occurrence are serialized;
// different occurrences proceed in parallel.
type Ledger interface {
	InitOccurrence(ctx context.Context, occurrenceID uuid.UUID, capacity int) error
	SetCapacity(ctx context.Context, occurrenceID uuid.UUID, capacity int) error
	Hold(ctx context.Context, occurrenceID, buyerID uuid.UUID, quantity int) (*Hold, error)
	Release(ctx context.Context, holdID uuid.UUID) error
	Confirm(ctx context.Context, holdID uuid.UUID) error
	ReleaseConfirmed(ctx context.Context, occurrenceID uuid.UUID, quantity int) error
	Snapshot(ctx context.Context, occurrenceID uuid.UUID) (*Snapshot, error)
	SweepExpired(ctx context.Context) (int, error)

	SetPromoter(p Promoter)
}

type ledger struct {
	repo     Repository
	cache    cache.Service
	holdTTL  time.Duration
	snapTTL  time.Duration
	log      *logger.Logger
	promoter Promoter

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewLedger creates the availability ledger. cacheSvc may be nil, in
// which case snapshots are always read from the database.
func NewLedger(repo Repository, cacheSvc cache.Service, holdTTL, snapshotTTL time.Duration) Ledger {
	return &ledger{
		repo:    repo,
		cache:   cacheSvc,
		holdTTL: holdTTL,
		snapTTL: snapshotTTL,
		log:     logger.GetDefault(),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetPromoter wires the waitlist promoter after construction
func (l *ledger) SetPromoter(p Promoter) {
	l.promoter = p
}

// lockFor returns the mutex serializing mutations for one occurrence
func (l *ledger) lockFor(occurrenceID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[occurrenceID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[occurrenceID] = lock
	}
	return lock
}

func (l *ledger) InitOccurrence(ctx context.Context, occurrenceID uuid.UUID, capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	record := &AvailabilityRecord{
		OccurrenceID: occurrenceID,
		Capacity:     capacity,
	}
	if err := l.repo.CreateRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to create availability record: %w", err)
	}
	return nil
}

func (l *ledger) SetCapacity(ctx context.Context, occurrenceID uuid.UUID, capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("capacity must not be negative")
	}

	lock := l.lockFor(occurrenceID)
	lock.Lock()

	var freed int
	err := l.repo.Transaction(ctx, func(r Repository) error {
		record, err := r.GetRecordForUpdate(ctx, occurrenceID)
		if err != nil {
			return err
		}
		if err := l.reclaimExpiredLocked(ctx, r, record); err != nil {
			return err
		}
		if capacity < record.Confirmed {
			return ErrCapacityBelowConfirmed
		}
		record.Capacity = capacity
		if err := r.SaveRecord(ctx, record); err != nil {
			return err
		}
		freed = record.Capacity - record.Confirmed - record.Held
		return nil
	})
	lock.Unlock()

	if err != nil {
		return err
	}

	l.invalidateSnapshot(ctx, occurrenceID)
	if l.promoter != nil && freed > 0 {
		l.promoter.PromoteFreed(ctx, occurrenceID, freed)
	}
	return nil
}

func (l *ledger) Hold(ctx context.Context, occurrenceID, buyerID uuid.UUID, quantity int) (*Hold, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	lock := l.lockFor(occurrenceID)
	lock.Lock()
	defer lock.Unlock()

	var hold *Hold
	err := l.repo.Transaction(ctx, func(r Repository) error {
		record, err := r.GetRecordForUpdate(ctx, occurrenceID)
		if err != nil {
			return err
		}

		// Reclaim stale holds before the capacity check so abandoned
		// checkouts can never starve new buyers.
		if err := l.reclaimExpiredLocked(ctx, r, record); err != nil {
			return err
		}

		if record.Confirmed+record.Held+quantity > record.Capacity {
			return ErrCapacityExceeded
		}

		hold = &Hold{
			ID:           uuid.New(),
			OccurrenceID: occurrenceID,
			BuyerID:      buyerID,
			Quantity:     quantity,
			Status:       HoldStatusActive,
			ExpiresAt:    time.Now().Add(l.holdTTL),
		}
		if err := r.CreateHold(ctx, hold); err != nil {
			return fmt.Errorf("failed to create hold: %w", err)
		}

		record.Held += quantity
		return r.SaveRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	l.invalidateSnapshot(ctx, occurrenceID)
	return hold, nil
}

// Release is idempotent: releasing an already released, confirmed or
// expired hold is a no-op.
func (l *ledger) Release(ctx context.Context, holdID uuid.UUID) error {
	hold, err := l.repo.GetHold(ctx, holdID)
	if err != nil {
		if err == ErrHoldNotFound {
			return nil
		}
		return err
	}

	lock := l.lockFor(hold.OccurrenceID)
	lock.Lock()
	defer lock.Unlock()

	err = l.repo.Transaction(ctx, func(r Repository) error {
		current, err := r.GetHold(ctx, holdID)
		if err != nil {
			return err
		}
		if current.Status != HoldStatusActive {
			return nil
		}

		record, err := r.GetRecordForUpdate(ctx, current.OccurrenceID)
		if err != nil {
			return err
		}

		if err := r.UpdateHoldStatus(ctx, holdID, HoldStatusReleased); err != nil {
			return err
		}
		record.Held -= current.Quantity
		if record.Held < 0 {
			l.log.LogInvariantViolation(ctx, "held counter went negative", map[string]interface{}{
				"occurrence_id": current.OccurrenceID.String(),
				"hold_id":       holdID.String(),
			})
			record.Held = 0
		}
		return r.SaveRecord(ctx, record)
	})
	if err != nil {
		return err
	}

	l.invalidateSnapshot(ctx, hold.OccurrenceID)
	return nil
}

// Confirm converts a held reservation into a confirmed one. Confirming
// past the hold expiry fails with ErrHoldExpired; the caller must
// re-hold.
func (l *ledger) Confirm(ctx context.Context, holdID uuid.UUID) error {
	hold, err := l.repo.GetHold(ctx, holdID)
	if err != nil {
		return err
	}

	lock := l.lockFor(hold.OccurrenceID)
	lock.Lock()
	defer lock.Unlock()

	err = l.repo.Transaction(ctx, func(r Repository) error {
		current, err := r.GetHold(ctx, holdID)
		if err != nil {
			return err
		}

		record, err := r.GetRecordForUpdate(ctx, current.OccurrenceID)
		if err != nil {
			return err
		}

		switch current.Status {
		case HoldStatusExpired:
			return ErrHoldExpired
		case HoldStatusActive:
			if current.IsExpired(time.Now()) {
				if err := r.UpdateHoldStatus(ctx, holdID, HoldStatusExpired); err != nil {
					return err
				}
				record.Held -= current.Quantity
				if err := r.SaveRecord(ctx, record); err != nil {
					return err
				}
				return ErrHoldExpired
			}
		default:
			// Confirming a released or already confirmed hold means the
			// caller's state machine is broken.
			l.log.LogInvariantViolation(ctx, "confirm called on non-active hold", map[string]interface{}{
				"hold_id": holdID.String(),
				"status":  string(current.Status),
			})
			return fmt.Errorf("cannot confirm hold in status %s", current.Status)
		}

		if err := r.UpdateHoldStatus(ctx, holdID, HoldStatusConfirmed); err != nil {
			return err
		}
		record.Held -= current.Quantity
		record.Confirmed += current.Quantity
		return r.SaveRecord(ctx, record)
	})
	if err != nil {
		return err
	}

	l.invalidateSnapshot(ctx, hold.OccurrenceID)
	return nil
}

// ReleaseConfirmed frees confirmed capacity after a cancellation or
// refund and triggers waitlist promotion for the occurrence.
func (l *ledger) ReleaseConfirmed(ctx context.Context, occurrenceID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	lock := l.lockFor(occurrenceID)
	lock.Lock()

	err := l.repo.Transaction(ctx, func(r Repository) error {
		record, err := r.GetRecordForUpdate(ctx, occurrenceID)
		if err != nil {
			return err
		}
		if record.Confirmed < quantity {
			l.log.LogInvariantViolation(ctx, "release confirmed exceeds confirmed count", map[string]interface{}{
				"occurrence_id": occurrenceID.String(),
				"confirmed":     record.Confirmed,
				"quantity":      quantity,
			})
			return fmt.Errorf("cannot release %d confirmed seats, only %d confirmed", quantity, record.Confirmed)
		}
		record.Confirmed -= quantity
		return r.SaveRecord(ctx, record)
	})
	lock.Unlock()

	if err != nil {
		return err
	}

	l.invalidateSnapshot(ctx, occurrenceID)
	if l.promoter != nil {
		l.promoter.PromoteFreed(ctx, occurrenceID, quantity)
	}
	return nil
}

func (l *ledger) Snapshot(ctx context.Context, occurrenceID uuid.UUID) (*Snapshot, error) {
	build := func() (*Snapshot, error) {
		record, err := l.repo.GetRecord(ctx, occurrenceID)
		if err != nil {
			return nil, err
		}
		available := record.Capacity - record.Confirmed - record.Held
		if available < 0 {
			available = 0
		}
		return &Snapshot{
			OccurrenceID: record.OccurrenceID,
			Capacity:     record.Capacity,
			Confirmed:    record.Confirmed,
			Held:         record.Held,
			Available:    available,
		}, nil
	}

	if l.cache == nil {
		return build()
	}

	var snap Snapshot
	err := l.cache.GetOrSet(ctx, cache.AvailabilityKey(occurrenceID.String()), l.snapTTL,
		func() (interface{}, error) { return build() }, &snap)
	if err != nil {
		// Cache trouble must not block availability reads
		return build()
	}
	return &snap, nil
}

// SweepExpired reclaims expired holds across occurrences. Returns the
// number of occurrences that had holds reclaimed.
func (l *ledger) SweepExpired(ctx context.Context) (int, error) {
	ids, err := l.repo.OccurrencesWithExpiredHolds(ctx, time.Now(), 100)
	if err != nil {
		return 0, fmt.Errorf("failed to list occurrences with expired holds: %w", err)
	}

	total := 0
	for _, occurrenceID := range ids {
		lock := l.lockFor(occurrenceID)
		lock.Lock()
		err := l.repo.Transaction(ctx, func(r Repository) error {
			record, err := r.GetRecordForUpdate(ctx, occurrenceID)
			if err != nil {
				return err
			}
			before := record.Held
			if err := l.reclaimExpiredLocked(ctx, r, record); err != nil {
				return err
			}
			if record.Held != before {
				total++
				return nil
			}
			return nil
		})
		lock.Unlock()
		if err != nil {
			l.log.ErrorWithContext(ctx, "expired hold sweep failed for occurrence", err, map[string]interface{}{
				"occurrence_id": occurrenceID.String(),
			})
			continue
		}
		l.invalidateSnapshot(ctx, occurrenceID)
	}
	return total, nil
}

// reclaimExpiredLocked expires stale active holds for the record's
// occurrence and returns the held counter to truth. Caller must hold
// both the occurrence mutex and the row lock.
func (l *ledger) reclaimExpiredLocked(ctx context.Context, r Repository, record *AvailabilityRecord) error {
	holds, err := r.ActiveHolds(ctx, record.OccurrenceID)
	if err != nil {
		return err
	}

	now := time.Now()
	changed := false
	for _, hold := range holds {
		if !hold.IsExpired(now) {
			continue
		}
		if err := r.UpdateHoldStatus(ctx, hold.ID, HoldStatusExpired); err != nil {
			return err
		}
		record.Held -= hold.Quantity
		changed = true
	}
	if record.Held < 0 {
		record.Held = 0
	}
	if changed {
		return r.SaveRecord(ctx, record)
	}
	return nil
}

func (l *ledger) invalidateSnapshot(ctx context.Context, occurrenceID uuid.UUID) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, cache.AvailabilityKey(occurrenceID.String())); err != nil {
		l.log.ErrorWithContext(ctx, "failed to invalidate availability snapshot", err, map[string]interface{}{
			"occurrence_id": occurrenceID.String(),
		})
	}
}
