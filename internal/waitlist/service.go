package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voyago/internal/availability"
	"voyago/internal/shared/config"
	"voyago/pkg/logger"

	"github.com/google/uuid"
)

// Service manages per-occurrence waitlist queues and implements
// availability.Promoter: when confirmed capacity frees up, queued
// entries are offered the freed slots in FIFO order.
type Service interface {
	Join(ctx context.Context, buyerID uuid.UUID, req JoinRequest) (*EntryResponse, error)
	Leave(ctx context.Context, entryID, buyerID uuid.UUID) error
	GetStatus(ctx context.Context, occurrenceID, buyerID uuid.UUID) (*EntryResponse, error)
	PromoteFreed(ctx context.Context, occurrenceID uuid.UUID, freed int)
	ExpireWindows(ctx context.Context) (int, error)

	SetNotifier(n Notifier)
}

// Ledger is the slice of the availability ledger promotion needs.
// Declared locally to avoid circular dependencies.
type Ledger interface {
	Hold(ctx context.Context, occurrenceID, buyerID uuid.UUID, quantity int) (*availability.Hold, error)
	Release(ctx context.Context, holdID uuid.UUID) error
}

// Notifier delivers the checkout invitation to a promoted buyer.
// Best-effort; a delivery failure never undoes the promotion.
type Notifier interface {
	SendWaitlistInvitation(ctx context.Context, entry WaitlistEntry) error
}

type service struct {
	repo         Repository
	ledger       Ledger
	notifier     Notifier
	acceptWindow time.Duration
	maxQuantity  int
	maxQueue     int
	log          *logger.Logger
}

func NewService(repo Repository, ledger Ledger, cfg config.WaitlistConfig) Service {
	return &service{
		repo:         repo,
		ledger:       ledger,
		acceptWindow: cfg.AcceptWindow,
		maxQuantity:  cfg.MaxQuantityPerUser,
		maxQueue:     cfg.MaxQueueLength,
		log:          logger.GetDefault(),
	}
}

func (s *service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *service) Join(ctx context.Context, buyerID uuid.UUID, req JoinRequest) (*EntryResponse, error) {
	occurrenceID, err := uuid.Parse(req.OccurrenceID)
	if err != nil {
		return nil, fmt.Errorf("invalid occurrence id: %s", req.OccurrenceID)
	}
	if req.Quantity > s.maxQuantity {
		return nil, ErrQuantityTooLarge
	}

	if _, err := s.repo.GetActiveByBuyer(ctx, occurrenceID, buyerID); err == nil {
		return nil, ErrAlreadyQueued
	} else if !errors.Is(err, ErrEntryNotFound) {
		return nil, err
	}

	queued, err := s.repo.CountQueued(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if queued >= int64(s.maxQueue) {
		return nil, ErrQueueFull
	}

	entry := &WaitlistEntry{
		ID:           uuid.New(),
		OccurrenceID: occurrenceID,
		BuyerID:      buyerID,
		Quantity:     req.Quantity,
		Status:       EntryStatusQueued,
		QueuedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	resp := entry.ToResponse(int(queued) + 1)
	return &resp, nil
}

func (s *service) Leave(ctx context.Context, entryID, buyerID uuid.UUID) error {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.BuyerID != buyerID {
		return ErrEntryNotFound
	}
	if entry.Status == EntryStatusLeft {
		return nil
	}

	// A promoted entry gives back the capacity reserved for it
	if entry.Status == EntryStatusPromoted && entry.HoldID != nil {
		if err := s.ledger.Release(ctx, *entry.HoldID); err != nil {
			return fmt.Errorf("failed to release promoted hold: %w", err)
		}
	}

	entry.Status = EntryStatusLeft
	return s.repo.Update(ctx, entry)
}

func (s *service) GetStatus(ctx context.Context, occurrenceID, buyerID uuid.UUID) (*EntryResponse, error) {
	entry, err := s.repo.GetActiveByBuyer(ctx, occurrenceID, buyerID)
	if err != nil {
		return nil, err
	}

	position := 0
	if entry.Status == EntryStatusQueued {
		queue, err := s.repo.GetQueued(ctx, occurrenceID)
		if err != nil {
			return nil, err
		}
		for i, queued := range queue {
			if queued.ID == entry.ID {
				position = i + 1
				break
			}
		}
	}

	resp := entry.ToResponse(position)
	return &resp, nil
}

// PromoteFreed walks the queue in FIFO order and reserves freed
// capacity for each entry that fits. An entry that does not fit stays
// in place with its position intact; later, smaller entries may still
// be promoted past it without reordering the queue.
func (s *service) PromoteFreed(ctx context.Context, occurrenceID uuid.UUID, freed int) {
	if freed <= 0 {
		return
	}

	queue, err := s.repo.GetQueued(ctx, occurrenceID)
	if err != nil {
		s.log.ErrorWithContext(ctx, "failed to load waitlist queue for promotion", err, map[string]interface{}{
			"occurrence_id": occurrenceID.String(),
		})
		return
	}

	remaining := freed
	for i := range queue {
		if remaining <= 0 {
			break
		}
		entry := &queue[i]
		if entry.Quantity > remaining {
			continue
		}

		hold, err := s.ledger.Hold(ctx, occurrenceID, entry.BuyerID, entry.Quantity)
		if err != nil {
			if errors.Is(err, availability.ErrCapacityExceeded) {
				// Someone else took the capacity between release and
				// promotion; the entry keeps its place.
				continue
			}
			s.log.ErrorWithContext(ctx, "failed to hold capacity for waitlist promotion", err, map[string]interface{}{
				"entry_id": entry.ID.String(),
			})
			continue
		}

		now := time.Now()
		windowEnd := now.Add(s.acceptWindow)
		entry.Status = EntryStatusPromoted
		entry.HoldID = &hold.ID
		entry.PromotedAt = &now
		entry.WindowEndsAt = &windowEnd
		if err := s.repo.Update(ctx, entry); err != nil {
			s.log.ErrorWithContext(ctx, "failed to persist waitlist promotion", err, map[string]interface{}{
				"entry_id": entry.ID.String(),
			})
			if releaseErr := s.ledger.Release(ctx, hold.ID); releaseErr != nil {
				s.log.ErrorWithContext(ctx, "failed to release hold after promotion rollback", releaseErr, map[string]interface{}{
					"hold_id": hold.ID.String(),
				})
			}
			continue
		}
		remaining -= entry.Quantity

		if s.notifier != nil {
			if err := s.notifier.SendWaitlistInvitation(ctx, *entry); err != nil {
				s.log.ErrorWithContext(ctx, "failed to send waitlist invitation", err, map[string]interface{}{
					"entry_id": entry.ID.String(),
				})
			}
		}
	}
}

// ExpireWindows handles promoted entries whose accept window lapsed:
// the reserved hold is released, the freed capacity cascades to the
// next entries in line, and the lapsed entry re-queues at the back.
func (s *service) ExpireWindows(ctx context.Context) (int, error) {
	expired, err := s.repo.ExpiredWindows(ctx, time.Now(), 100)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired accept windows: %w", err)
	}

	processed := 0
	for i := range expired {
		entry := &expired[i]
		if entry.HoldID != nil {
			if err := s.ledger.Release(ctx, *entry.HoldID); err != nil {
				s.log.ErrorWithContext(ctx, "failed to release expired waitlist hold", err, map[string]interface{}{
					"entry_id": entry.ID.String(),
				})
				continue
			}
		}

		// Cascade the freed capacity while the lapsed entry is still
		// marked promoted, so it cannot be offered its own slot back.
		s.PromoteFreed(ctx, entry.OccurrenceID, entry.Quantity)

		entry.Status = EntryStatusQueued
		entry.QueuedAt = s.requeueAt(ctx, entry.OccurrenceID)
		entry.HoldID = nil
		entry.PromotedAt = nil
		entry.WindowEndsAt = nil
		if err := s.repo.Update(ctx, entry); err != nil {
			s.log.ErrorWithContext(ctx, "failed to re-queue expired waitlist entry", err, map[string]interface{}{
				"entry_id": entry.ID.String(),
			})
			continue
		}
		processed++
	}
	return processed, nil
}

// requeueAt returns a timestamp strictly behind the occurrence's current
// queue tail. QueuedAt is the FIFO sort key, so "back of the queue" must
// hold even against entries whose timestamps sit ahead of the clock.
func (s *service) requeueAt(ctx context.Context, occurrenceID uuid.UUID) time.Time {
	at := time.Now()
	queue, err := s.repo.GetQueued(ctx, occurrenceID)
	if err != nil {
		s.log.ErrorWithContext(ctx, "failed to load waitlist queue for re-queue", err, map[string]interface{}{
			"occurrence_id": occurrenceID.String(),
		})
		return at
	}
	if len(queue) > 0 {
		if tail := queue[len(queue)-1].QueuedAt; !tail.Before(at) {
			at = tail.Add(time.Microsecond)
		}
	}
	return at
}
