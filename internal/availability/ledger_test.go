package availability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepository is an in-memory Repository for ledger tests. Its
// Transaction simply runs the callback against itself; serialization is
// provided by the ledger's per-occurrence locks, same as in production.
type fakeRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*AvailabilityRecord
	holds   map[uuid.UUID]*Hold
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		records: make(map[uuid.UUID]*AvailabilityRecord),
		holds:   make(map[uuid.UUID]*Hold),
	}
}

func (f *fakeRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) CreateRecord(ctx context.Context, record *AvailabilityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.OccurrenceID] = &copied
	return nil
}

func (f *fakeRepository) GetRecord(ctx context.Context, occurrenceID uuid.UUID) (*AvailabilityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[occurrenceID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeRepository) GetRecordForUpdate(ctx context.Context, occurrenceID uuid.UUID) (*AvailabilityRecord, error) {
	return f.GetRecord(ctx, occurrenceID)
}

func (f *fakeRepository) SaveRecord(ctx context.Context, record *AvailabilityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.OccurrenceID] = &copied
	return nil
}

func (f *fakeRepository) CreateHold(ctx context.Context, hold *Hold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *hold
	f.holds[hold.ID] = &copied
	return nil
}

func (f *fakeRepository) GetHold(ctx context.Context, holdID uuid.UUID) (*Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold, ok := f.holds[holdID]
	if !ok {
		return nil, ErrHoldNotFound
	}
	copied := *hold
	return &copied, nil
}

func (f *fakeRepository) UpdateHoldStatus(ctx context.Context, holdID uuid.UUID, status HoldStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold, ok := f.holds[holdID]
	if !ok {
		return ErrHoldNotFound
	}
	hold.Status = status
	return nil
}

func (f *fakeRepository) ActiveHolds(ctx context.Context, occurrenceID uuid.UUID) ([]Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var holds []Hold
	for _, hold := range f.holds {
		if hold.OccurrenceID == occurrenceID && hold.Status == HoldStatusActive {
			holds = append(holds, *hold)
		}
	}
	return holds, nil
}

func (f *fakeRepository) OccurrencesWithExpiredHolds(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, hold := range f.holds {
		if hold.Status == HoldStatusActive && now.After(hold.ExpiresAt) && !seen[hold.OccurrenceID] {
			seen[hold.OccurrenceID] = true
			ids = append(ids, hold.OccurrenceID)
			if len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

// expireHold backdates a hold so the ledger sees it as expired
func (f *fakeRepository) expireHold(holdID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds[holdID].ExpiresAt = time.Now().Add(-1 * time.Minute)
}

type promoterSpy struct {
	mu    sync.Mutex
	calls []int
}

func (p *promoterSpy) PromoteFreed(ctx context.Context, occurrenceID uuid.UUID, freed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, freed)
}

func (p *promoterSpy) freedTotals() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.calls...)
}

func newTestLedger(repo Repository) Ledger {
	return NewLedger(repo, nil, 20*time.Minute, time.Minute)
}

func TestLedgerHold(t *testing.T) {
	ctx := context.Background()

	t.Run("holds reduce availability", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 10))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 4)
		require.NoError(t, err)
		assert.Equal(t, 4, hold.Quantity)
		assert.Equal(t, HoldStatusActive, hold.Status)

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 6, snap.Available)
		assert.Equal(t, 4, snap.Held)
	})

	t.Run("rejects hold past capacity", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 3))

		_, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 2)
		require.NoError(t, err)

		_, err = ledger.Hold(ctx, occurrenceID, uuid.New(), 2)
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 3))

		_, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 0)
		assert.Error(t, err)
	})

	t.Run("unknown occurrence", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)

		_, err := ledger.Hold(ctx, uuid.New(), uuid.New(), 1)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("concurrent holds never oversell", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 10))

		// Take 8 of 10 so only one of the competing Hold(2) calls fits
		_, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 8)
		require.NoError(t, err)
		require.NoError(t, sweepConfirmAll(ctx, ledger, repo, occurrenceID))

		var wg sync.WaitGroup
		errs := make([]error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = ledger.Hold(ctx, occurrenceID, uuid.New(), 2)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, ErrCapacityExceeded)
			}
		}
		assert.Equal(t, 1, succeeded)

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.LessOrEqual(t, snap.Confirmed+snap.Held, snap.Capacity)
		assert.Equal(t, 0, snap.Available)
	})
}

// sweepConfirmAll confirms every active hold on the occurrence
func sweepConfirmAll(ctx context.Context, ledger Ledger, repo *fakeRepository, occurrenceID uuid.UUID) error {
	holds, err := repo.ActiveHolds(ctx, occurrenceID)
	if err != nil {
		return err
	}
	for _, hold := range holds {
		if err := ledger.Confirm(ctx, hold.ID); err != nil {
			return err
		}
	}
	return nil
}

func TestLedgerRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("release returns capacity", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 5))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 3)
		require.NoError(t, err)
		require.NoError(t, ledger.Release(ctx, hold.ID))

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 5, snap.Available)
		assert.Equal(t, 0, snap.Held)
	})

	t.Run("release is idempotent", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 5))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 3)
		require.NoError(t, err)
		require.NoError(t, ledger.Release(ctx, hold.ID))
		require.NoError(t, ledger.Release(ctx, hold.ID))

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 5, snap.Available)
	})

	t.Run("release of unknown hold is a no-op", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)

		assert.NoError(t, ledger.Release(ctx, uuid.New()))
	})
}

func TestLedgerConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm moves held to confirmed", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 5))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 2)
		require.NoError(t, err)
		require.NoError(t, ledger.Confirm(ctx, hold.ID))

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Confirmed)
		assert.Equal(t, 0, snap.Held)
		assert.Equal(t, 3, snap.Available)
	})

	t.Run("confirm after expiry fails and frees capacity", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 5))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 2)
		require.NoError(t, err)
		repo.expireHold(hold.ID)

		err = ledger.Confirm(ctx, hold.ID)
		assert.ErrorIs(t, err, ErrHoldExpired)

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Held)
		assert.Equal(t, 5, snap.Available)
	})

	t.Run("confirm of released hold fails", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 5))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 2)
		require.NoError(t, err)
		require.NoError(t, ledger.Release(ctx, hold.ID))

		assert.Error(t, ledger.Confirm(ctx, hold.ID))
	})
}

func TestLedgerExpiredHoldReclamation(t *testing.T) {
	ctx := context.Background()

	t.Run("new hold reclaims expired holds first", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 4))

		stale, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 4)
		require.NoError(t, err)
		repo.expireHold(stale.ID)

		// Fits only if the stale hold is reclaimed during the attempt
		fresh, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 4)
		require.NoError(t, err)
		assert.Equal(t, HoldStatusActive, fresh.Status)

		got, err := repo.GetHold(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, HoldStatusExpired, got.Status)
	})

	t.Run("sweep reclaims idle occurrences", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 4))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 3)
		require.NoError(t, err)
		repo.expireHold(hold.ID)

		reclaimed, err := ledger.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, reclaimed)

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 4, snap.Available)
	})
}

func TestLedgerSetCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("raising capacity promotes waitlist", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		spy := &promoterSpy{}
		ledger.SetPromoter(spy)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 2))

		require.NoError(t, ledger.SetCapacity(ctx, occurrenceID, 5))

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 5, snap.Capacity)
		assert.Equal(t, []int{5}, spy.freedTotals())
	})

	t.Run("rejects capacity below confirmed", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 5))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 4)
		require.NoError(t, err)
		require.NoError(t, ledger.Confirm(ctx, hold.ID))

		err = ledger.SetCapacity(ctx, occurrenceID, 3)
		assert.ErrorIs(t, err, ErrCapacityBelowConfirmed)

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 5, snap.Capacity)
	})
}

func TestLedgerReleaseConfirmed(t *testing.T) {
	ctx := context.Background()

	t.Run("frees capacity and notifies promoter", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		spy := &promoterSpy{}
		ledger.SetPromoter(spy)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 5))

		hold, err := ledger.Hold(ctx, occurrenceID, uuid.New(), 3)
		require.NoError(t, err)
		require.NoError(t, ledger.Confirm(ctx, hold.ID))

		require.NoError(t, ledger.ReleaseConfirmed(ctx, occurrenceID, 3))

		snap, err := ledger.Snapshot(ctx, occurrenceID)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Confirmed)
		assert.Equal(t, 5, snap.Available)
		assert.Equal(t, []int{3}, spy.freedTotals())
	})

	t.Run("rejects releasing more than confirmed", func(t *testing.T) {
		repo := newFakeRepository()
		ledger := newTestLedger(repo)
		occurrenceID := uuid.New()
		require.NoError(t, ledger.InitOccurrence(ctx, occurrenceID, 5))

		assert.Error(t, ledger.ReleaseConfirmed(ctx, occurrenceID, 1))
	})
}
