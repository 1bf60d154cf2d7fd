package waitlist

import (
	"context"
	"sort"
	"testing"
	"time"

	"voyago/internal/availability"
	"voyago/internal/shared/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	entries map[uuid.UUID]*WaitlistEntry
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{entries: make(map[uuid.UUID]*WaitlistEntry)}
}

func (f *fakeRepository) Create(ctx context.Context, entry *WaitlistEntry) error {
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeRepository) GetQueued(ctx context.Context, occurrenceID uuid.UUID) ([]WaitlistEntry, error) {
	var queue []WaitlistEntry
	for _, entry := range f.entries {
		if entry.OccurrenceID == occurrenceID && entry.Status == EntryStatusQueued {
			queue = append(queue, *entry)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].QueuedAt.Before(queue[j].QueuedAt) })
	return queue, nil
}

func (f *fakeRepository) GetActiveByBuyer(ctx context.Context, occurrenceID, buyerID uuid.UUID) (*WaitlistEntry, error) {
	for _, entry := range f.entries {
		if entry.OccurrenceID == occurrenceID && entry.BuyerID == buyerID &&
			(entry.Status == EntryStatusQueued || entry.Status == EntryStatusPromoted) {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (f *fakeRepository) CountQueued(ctx context.Context, occurrenceID uuid.UUID) (int64, error) {
	queue, _ := f.GetQueued(ctx, occurrenceID)
	return int64(len(queue)), nil
}

func (f *fakeRepository) Update(ctx context.Context, entry *WaitlistEntry) error {
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeRepository) ExpiredWindows(ctx context.Context, now time.Time, limit int) ([]WaitlistEntry, error) {
	var expired []WaitlistEntry
	for _, entry := range f.entries {
		if entry.Status == EntryStatusPromoted && entry.WindowEndsAt != nil && now.After(*entry.WindowEndsAt) {
			expired = append(expired, *entry)
		}
	}
	return expired, nil
}

type fakeLedger struct {
	available map[uuid.UUID]int
	holds     map[uuid.UUID]*availability.Hold
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		available: make(map[uuid.UUID]int),
		holds:     make(map[uuid.UUID]*availability.Hold),
	}
}

func (f *fakeLedger) Hold(ctx context.Context, occurrenceID, buyerID uuid.UUID, quantity int) (*availability.Hold, error) {
	if f.available[occurrenceID] < quantity {
		return nil, availability.ErrCapacityExceeded
	}
	f.available[occurrenceID] -= quantity
	hold := &availability.Hold{
		ID:           uuid.New(),
		OccurrenceID: occurrenceID,
		BuyerID:      buyerID,
		Quantity:     quantity,
		Status:       availability.HoldStatusActive,
	}
	f.holds[hold.ID] = hold
	return hold, nil
}

func (f *fakeLedger) Release(ctx context.Context, holdID uuid.UUID) error {
	hold, ok := f.holds[holdID]
	if !ok || hold.Status != availability.HoldStatusActive {
		return nil
	}
	hold.Status = availability.HoldStatusReleased
	f.available[hold.OccurrenceID] += hold.Quantity
	return nil
}

type invitationSpy struct {
	invited []uuid.UUID
}

func (n *invitationSpy) SendWaitlistInvitation(ctx context.Context, entry WaitlistEntry) error {
	n.invited = append(n.invited, entry.BuyerID)
	return nil
}

func testConfig() config.WaitlistConfig {
	return config.WaitlistConfig{
		AcceptWindow:       30 * time.Minute,
		MaxQuantityPerUser: 10,
		MaxQueueLength:     1000,
	}
}

type waitlistFixture struct {
	svc    Service
	repo   *fakeRepository
	ledger *fakeLedger
	spy    *invitationSpy
}

func newFixture() *waitlistFixture {
	fx := &waitlistFixture{
		repo:   newFakeRepository(),
		ledger: newFakeLedger(),
		spy:    &invitationSpy{},
	}
	fx.svc = NewService(fx.repo, fx.ledger, testConfig())
	fx.svc.SetNotifier(fx.spy)
	return fx
}

// join queues an entry with a distinct timestamp so FIFO order is stable
func (fx *waitlistFixture) join(t *testing.T, occurrenceID, buyerID uuid.UUID, quantity int, offset time.Duration) uuid.UUID {
	t.Helper()
	entry := &WaitlistEntry{
		ID:           uuid.New(),
		OccurrenceID: occurrenceID,
		BuyerID:      buyerID,
		Quantity:     quantity,
		Status:       EntryStatusQueued,
		QueuedAt:     time.Now().Add(offset),
	}
	require.NoError(t, fx.repo.Create(context.Background(), entry))
	return entry.ID
}

func TestJoin(t *testing.T) {
	ctx := context.Background()
	occurrenceID := uuid.New()

	t.Run("queues the buyer", func(t *testing.T) {
		fx := newFixture()
		buyerID := uuid.New()

		entry, err := fx.svc.Join(ctx, buyerID, JoinRequest{OccurrenceID: occurrenceID.String(), Quantity: 2})
		require.NoError(t, err)
		assert.Equal(t, EntryStatusQueued, entry.Status)
		assert.Equal(t, 1, entry.Position)
	})

	t.Run("rejects double join", func(t *testing.T) {
		fx := newFixture()
		buyerID := uuid.New()

		_, err := fx.svc.Join(ctx, buyerID, JoinRequest{OccurrenceID: occurrenceID.String(), Quantity: 2})
		require.NoError(t, err)
		_, err = fx.svc.Join(ctx, buyerID, JoinRequest{OccurrenceID: occurrenceID.String(), Quantity: 1})
		assert.ErrorIs(t, err, ErrAlreadyQueued)
	})

	t.Run("rejects oversized quantity", func(t *testing.T) {
		fx := newFixture()

		_, err := fx.svc.Join(ctx, uuid.New(), JoinRequest{OccurrenceID: occurrenceID.String(), Quantity: 11})
		assert.ErrorIs(t, err, ErrQuantityTooLarge)
	})
}

func TestPromoteFreed(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes in FIFO order", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		first := uuid.New()
		second := uuid.New()
		fx.join(t, occurrenceID, first, 2, 0)
		fx.join(t, occurrenceID, second, 1, time.Second)

		fx.ledger.available[occurrenceID] = 3
		fx.svc.PromoteFreed(ctx, occurrenceID, 3)

		assert.Equal(t, []uuid.UUID{first, second}, fx.spy.invited)
	})

	t.Run("entry that does not fit keeps its place", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		big := uuid.New()
		small := uuid.New()
		bigEntry := fx.join(t, occurrenceID, big, 2, 0)
		fx.join(t, occurrenceID, small, 1, time.Second)

		// One seat frees: the 2-seat entry at the head does not fit,
		// the 1-seat entry behind it is offered instead.
		fx.ledger.available[occurrenceID] = 1
		fx.svc.PromoteFreed(ctx, occurrenceID, 1)

		assert.Equal(t, []uuid.UUID{small}, fx.spy.invited)

		// The skipped entry is still queued ahead of any later arrival
		later := uuid.New()
		fx.join(t, occurrenceID, later, 1, 2*time.Second)
		queue, err := fx.repo.GetQueued(ctx, occurrenceID)
		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, bigEntry, queue[0].ID)
		assert.Equal(t, big, queue[0].BuyerID)
	})

	t.Run("promotion reserves a hold with an accept window", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		buyerID := uuid.New()
		entryID := fx.join(t, occurrenceID, buyerID, 2, 0)

		fx.ledger.available[occurrenceID] = 2
		fx.svc.PromoteFreed(ctx, occurrenceID, 2)

		entry, err := fx.repo.GetByID(ctx, entryID)
		require.NoError(t, err)
		assert.Equal(t, EntryStatusPromoted, entry.Status)
		require.NotNil(t, entry.HoldID)
		require.NotNil(t, entry.WindowEndsAt)
		assert.Equal(t, 0, fx.ledger.available[occurrenceID])
	})

	t.Run("stops when freed capacity is spent", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		fx.join(t, occurrenceID, uuid.New(), 2, 0)
		fx.join(t, occurrenceID, uuid.New(), 2, time.Second)

		fx.ledger.available[occurrenceID] = 2
		fx.svc.PromoteFreed(ctx, occurrenceID, 2)

		assert.Len(t, fx.spy.invited, 1)
	})
}

func TestExpireWindows(t *testing.T) {
	ctx := context.Background()

	t.Run("lapsed window re-queues at the back and cascades", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		slow := uuid.New()
		next := uuid.New()
		slowEntry := fx.join(t, occurrenceID, slow, 1, 0)
		fx.join(t, occurrenceID, next, 1, time.Second)

		fx.ledger.available[occurrenceID] = 1
		fx.svc.PromoteFreed(ctx, occurrenceID, 1)
		assert.Equal(t, []uuid.UUID{slow}, fx.spy.invited)

		// The promoted buyer never accepts
		entry := fx.repo.entries[slowEntry]
		past := time.Now().Add(-1 * time.Minute)
		entry.WindowEndsAt = &past

		processed, err := fx.svc.ExpireWindows(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		// Freed capacity cascaded to the next buyer
		assert.Equal(t, []uuid.UUID{slow, next}, fx.spy.invited)

		// The slow buyer is queued again, now behind everyone else
		requeued, err := fx.repo.GetByID(ctx, slowEntry)
		require.NoError(t, err)
		assert.Equal(t, EntryStatusQueued, requeued.Status)
		assert.Nil(t, requeued.HoldID)
	})

	t.Run("re-queued buyer waits behind every queued entry", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		slow := uuid.New()
		next := uuid.New()
		third := uuid.New()
		slowEntry := fx.join(t, occurrenceID, slow, 1, 0)
		fx.join(t, occurrenceID, next, 1, time.Second)
		fx.join(t, occurrenceID, third, 1, 2*time.Second)

		fx.ledger.available[occurrenceID] = 1
		fx.svc.PromoteFreed(ctx, occurrenceID, 1)
		require.Equal(t, []uuid.UUID{slow}, fx.spy.invited)

		entry := fx.repo.entries[slowEntry]
		past := time.Now().Add(-1 * time.Minute)
		entry.WindowEndsAt = &past

		_, err := fx.svc.ExpireWindows(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{slow, next}, fx.spy.invited)

		// The next seat that frees goes to the remaining queued buyer,
		// not back to the buyer who let the window lapse.
		fx.ledger.available[occurrenceID]++
		fx.svc.PromoteFreed(ctx, occurrenceID, 1)
		assert.Equal(t, []uuid.UUID{slow, next, third}, fx.spy.invited)

		requeued, err := fx.repo.GetByID(ctx, slowEntry)
		require.NoError(t, err)
		assert.Equal(t, EntryStatusQueued, requeued.Status)
	})
}

func TestLeave(t *testing.T) {
	ctx := context.Background()

	t.Run("leaving releases a promoted hold", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		buyerID := uuid.New()
		entryID := fx.join(t, occurrenceID, buyerID, 2, 0)

		fx.ledger.available[occurrenceID] = 2
		fx.svc.PromoteFreed(ctx, occurrenceID, 2)
		assert.Equal(t, 0, fx.ledger.available[occurrenceID])

		require.NoError(t, fx.svc.Leave(ctx, entryID, buyerID))
		assert.Equal(t, 2, fx.ledger.available[occurrenceID])
	})

	t.Run("only the owner can leave", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		entryID := fx.join(t, occurrenceID, uuid.New(), 1, 0)

		err := fx.svc.Leave(ctx, entryID, uuid.New())
		assert.ErrorIs(t, err, ErrEntryNotFound)
	})
}
