package checkout

import (
	"context"
	"testing"
	"time"

	"voyago/internal/availability"
	"voyago/internal/bookings"
	"voyago/internal/payments"
	"voyago/internal/shared/config"
	"voyago/internal/trips"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	sessions map[uuid.UUID]*CheckoutSession
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{sessions: make(map[uuid.UUID]*CheckoutSession)}
}

func (f *fakeRepository) Create(ctx context.Context, session *CheckoutSession) error {
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*CheckoutSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeRepository) Update(ctx context.Context, session *CheckoutSession) error {
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeRepository) GetByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]CheckoutSession, error) {
	var result []CheckoutSession
	for _, session := range f.sessions {
		if session.BuyerID == buyerID {
			result = append(result, *session)
		}
	}
	return result, nil
}

func (f *fakeRepository) FindStale(ctx context.Context, now time.Time, limit int) ([]CheckoutSession, error) {
	var result []CheckoutSession
	for _, session := range f.sessions {
		if session.Status.CanExpire() && now.After(session.Deadline) {
			result = append(result, *session)
		}
	}
	return result, nil
}

// fakeLedger tracks a per-occurrence availability budget and hold state
type fakeLedger struct {
	available map[uuid.UUID]int
	holds     map[uuid.UUID]*availability.Hold
	released  []uuid.UUID
	confirmed []uuid.UUID
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
		ExpiresAt:    time.Now().Add(20 * time.Minute),
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
	f.released = append(f.released, holdID)
	return nil
}

func (f *fakeLedger) Confirm(ctx context.Context, holdID uuid.UUID) error {
	hold, ok := f.holds[holdID]
	if !ok {
		return availability.ErrHoldNotFound
	}
	if hold.Status != availability.HoldStatusActive {
		return availability.ErrHoldExpired
	}
	hold.Status = availability.HoldStatusConfirmed
	f.confirmed = append(f.confirmed, holdID)
	return nil
}

func (f *fakeLedger) activeHoldCount() int {
	count := 0
	for _, hold := range f.holds {
		if hold.Status == availability.HoldStatusActive {
			count++
		}
	}
	return count
}

type fakeGateway struct {
	failCreate  bool
	failCapture bool
	orders      int
	captures    int
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amount float64, currency, returnURL, cancelURL string) (*payments.Order, error) {
	f.orders++
	if f.failCreate {
		return nil, payments.ErrOrderCreationFailed
	}
	return &payments.Order{
		ID:         "O1",
		ApproveURL: "https://gateway.test/approve/O1",
		Status:     "CREATED",
	}, nil
}

func (f *fakeGateway) CaptureOrder(ctx context.Context, orderID string) (*payments.CaptureResult, error) {
	f.captures++
	if f.failCapture {
		return nil, payments.ErrCaptureFailed
	}
	return &payments.CaptureResult{OrderID: orderID, Status: "COMPLETED"}, nil
}

// fakeBookingService records the latest status applied per session
type fakeBookingService struct {
	statuses map[uuid.UUID]bookings.BookingStatus
	created  int
}

func newFakeBookingService() *fakeBookingService {
	return &fakeBookingService{statuses: make(map[uuid.UUID]bookings.BookingStatus)}
}

func (f *fakeBookingService) CreatePending(ctx context.Context, params bookings.CreateBookingParams) (*bookings.Booking, error) {
	f.created++
	f.statuses[params.SessionID] = bookings.StatusPending
	return &bookings.Booking{
		ID:           uuid.New(),
		BuyerID:      params.BuyerID,
		OccurrenceID: params.OccurrenceID,
		SessionID:    params.SessionID,
		Quantity:     params.Quantity,
		Status:       bookings.StatusPending,
	}, nil
}

func (f *fakeBookingService) MarkAwaitingCapture(ctx context.Context, sessionID uuid.UUID) error {
	f.statuses[sessionID] = bookings.StatusAwaitingCapture
	return nil
}

func (f *fakeBookingService) ConfirmBySession(ctx context.Context, sessionID uuid.UUID) ([]bookings.Booking, error) {
	f.statuses[sessionID] = bookings.StatusConfirmed
	return nil, nil
}

func (f *fakeBookingService) FailBySession(ctx context.Context, sessionID uuid.UUID) error {
	f.statuses[sessionID] = bookings.StatusFailed
	return nil
}

func (f *fakeBookingService) CancelBySession(ctx context.Context, sessionID uuid.UUID) error {
	f.statuses[sessionID] = bookings.StatusCancelled
	return nil
}

type fakeCatalog struct {
	occurrences map[uuid.UUID]*trips.TripOccurrenceResponse
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{occurrences: make(map[uuid.UUID]*trips.TripOccurrenceResponse)}
}

func (f *fakeCatalog) GetOccurrence(ctx context.Context, occurrenceID uuid.UUID) (*trips.TripOccurrenceResponse, error) {
	occurrence, ok := f.occurrences[occurrenceID]
	if !ok {
		return nil, trips.ErrOccurrenceNotFound
	}
	return occurrence, nil
}

func (f *fakeCatalog) addPublished(occurrenceID uuid.UUID, price float64) {
	f.occurrences[occurrenceID] = &trips.TripOccurrenceResponse{
		ID:     occurrenceID.String(),
		Name:   "Patagonia Trek",
		Price:  price,
		Status: trips.StatusPublished,
	}
}

type checkoutFixture struct {
	svc     Service
	repo    *fakeRepository
	ledger  *fakeLedger
	gateway *fakeGateway
	booking *fakeBookingService
	catalog *fakeCatalog
}

func newFixture() *checkoutFixture {
	fx := &checkoutFixture{
		repo:    newFakeRepository(),
		ledger:  newFakeLedger(),
		gateway: &fakeGateway{},
		booking: newFakeBookingService(),
		catalog: newFakeCatalog(),
	}
	cfg := &config.Config{
		Gateway: config.GatewayConfig{
			ReturnURL: "https://shop.test/return",
			CancelURL: "https://shop.test/cancel",
		},
		Checkout: config.CheckoutConfig{
			SessionDeadline: 15 * time.Minute,
		},
	}
	fx.svc = NewService(fx.repo, fx.ledger, fx.gateway, fx.booking, fx.catalog, cfg)
	return fx
}

func (fx *checkoutFixture) addOccurrence(price float64, seats int) uuid.UUID {
	occurrenceID := uuid.New()
	fx.catalog.addPublished(occurrenceID, price)
	fx.ledger.available[occurrenceID] = seats
	return occurrenceID
}

func startRequest(items ...LineItemRequest) StartCheckoutRequest {
	return StartCheckoutRequest{Currency: "USD", LineItems: items}
}

func TestStartCheckout(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New()

	t.Run("opens session with approve link", func(t *testing.T) {
		fx := newFixture()
		occA := fx.addOccurrence(1000, 10)
		occB := fx.addOccurrence(500, 10)

		session, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occA.String(), Quantity: 2},
			LineItemRequest{OccurrenceID: occB.String(), Quantity: 1},
		))
		require.NoError(t, err)
		assert.Equal(t, StatusPendingApproval, session.Status)
		assert.Equal(t, 2500.0, session.TotalAmount)
		assert.Equal(t, "https://gateway.test/approve/O1", session.ApproveURL)
		assert.Len(t, session.LineItems, 2)
		assert.Equal(t, 2, fx.ledger.activeHoldCount())
		sessionID, _ := uuid.Parse(session.ID)
		assert.Equal(t, bookings.StatusAwaitingCapture, fx.booking.statuses[sessionID])
	})

	t.Run("all-or-nothing holds", func(t *testing.T) {
		fx := newFixture()
		occA := fx.addOccurrence(1000, 10)
		occB := fx.addOccurrence(500, 1)

		_, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occA.String(), Quantity: 2},
			LineItemRequest{OccurrenceID: occB.String(), Quantity: 3},
		))
		assert.ErrorIs(t, err, ErrInsufficientAvailability)
		assert.Equal(t, 0, fx.ledger.activeHoldCount())
		assert.Equal(t, 10, fx.ledger.available[occA])
		assert.Equal(t, 0, fx.gateway.orders)
	})

	t.Run("order creation failure releases holds", func(t *testing.T) {
		fx := newFixture()
		fx.gateway.failCreate = true
		occ := fx.addOccurrence(1000, 10)

		_, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occ.String(), Quantity: 2},
		))
		assert.ErrorIs(t, err, payments.ErrOrderCreationFailed)
		assert.Equal(t, 0, fx.ledger.activeHoldCount())
		assert.Equal(t, 10, fx.ledger.available[occ])

		// Session recorded as failed, bookings failed
		var session *CheckoutSession
		for _, s := range fx.repo.sessions {
			session = s
		}
		require.NotNil(t, session)
		assert.Equal(t, StatusFailed, session.Status)
		assert.Equal(t, bookings.StatusFailed, fx.booking.statuses[session.ID])
	})

	t.Run("unpublished occurrence is not bookable", func(t *testing.T) {
		fx := newFixture()
		occurrenceID := uuid.New()
		fx.catalog.occurrences[occurrenceID] = &trips.TripOccurrenceResponse{
			ID: occurrenceID.String(), Price: 100, Status: trips.StatusDraft,
		}
		fx.ledger.available[occurrenceID] = 10

		_, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occurrenceID.String(), Quantity: 1},
		))
		assert.ErrorIs(t, err, ErrOccurrenceNotBookable)
	})

	t.Run("duplicate occurrences rejected", func(t *testing.T) {
		fx := newFixture()
		occ := fx.addOccurrence(1000, 10)

		_, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occ.String(), Quantity: 1},
			LineItemRequest{OccurrenceID: occ.String(), Quantity: 1},
		))
		assert.Error(t, err)
		assert.Equal(t, 0, fx.ledger.activeHoldCount())
	})
}

func TestHandleApprovalReturn(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New()

	start := func(t *testing.T, fx *checkoutFixture, occ uuid.UUID) uuid.UUID {
		t.Helper()
		session, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occ.String(), Quantity: 2},
		))
		require.NoError(t, err)
		sessionID, err := uuid.Parse(session.ID)
		require.NoError(t, err)
		return sessionID
	}

	t.Run("capture settles the session", func(t *testing.T) {
		fx := newFixture()
		occ := fx.addOccurrence(1000, 10)
		sessionID := start(t, fx, occ)

		session, err := fx.svc.HandleApprovalReturn(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, StatusSettled, session.Status)
		assert.Len(t, fx.ledger.confirmed, 1)
		assert.Equal(t, bookings.StatusConfirmed, fx.booking.statuses[sessionID])
	})

	t.Run("capture failure releases holds and fails all bookings", func(t *testing.T) {
		fx := newFixture()
		occ := fx.addOccurrence(1000, 10)
		sessionID := start(t, fx, occ)
		fx.gateway.failCapture = true

		_, err := fx.svc.HandleApprovalReturn(ctx, sessionID)
		assert.ErrorIs(t, err, payments.ErrCaptureFailed)

		stored := fx.repo.sessions[sessionID]
		assert.Equal(t, StatusFailed, stored.Status)
		assert.Equal(t, bookings.StatusFailed, fx.booking.statuses[sessionID])
		assert.Equal(t, 0, fx.ledger.activeHoldCount())
		assert.Equal(t, 10, fx.ledger.available[occ])
		// No automatic capture retry
		assert.Equal(t, 1, fx.gateway.captures)
	})

	t.Run("return past deadline expires the session", func(t *testing.T) {
		fx := newFixture()
		occ := fx.addOccurrence(1000, 10)
		sessionID := start(t, fx, occ)

		stored := fx.repo.sessions[sessionID]
		stored.Deadline = time.Now().Add(-1 * time.Minute)

		_, err := fx.svc.HandleApprovalReturn(ctx, sessionID)
		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.Equal(t, StatusExpired, fx.repo.sessions[sessionID].Status)
		assert.Equal(t, 0, fx.ledger.activeHoldCount())
		assert.Equal(t, 0, fx.gateway.captures)
	})

	t.Run("double settle is rejected", func(t *testing.T) {
		fx := newFixture()
		occ := fx.addOccurrence(1000, 10)
		sessionID := start(t, fx, occ)

		_, err := fx.svc.HandleApprovalReturn(ctx, sessionID)
		require.NoError(t, err)

		_, err = fx.svc.HandleApprovalReturn(ctx, sessionID)
		assert.ErrorIs(t, err, ErrInvalidSessionState)
		assert.Equal(t, 1, fx.gateway.captures)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New()

	t.Run("cancel before capture releases holds", func(t *testing.T) {
		fx := newFixture()
		occ := fx.addOccurrence(1000, 10)
		session, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occ.String(), Quantity: 2},
		))
		require.NoError(t, err)
		sessionID, _ := uuid.Parse(session.ID)

		cancelled, err := fx.svc.Cancel(ctx, sessionID, buyerID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.Equal(t, 10, fx.ledger.available[occ])
		assert.Equal(t, bookings.StatusCancelled, fx.booking.statuses[sessionID])
	})

	t.Run("cannot cancel a settled session", func(t *testing.T) {
		fx := newFixture()
		occ := fx.addOccurrence(1000, 10)
		session, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occ.String(), Quantity: 2},
		))
		require.NoError(t, err)
		sessionID, _ := uuid.Parse(session.ID)
		_, err = fx.svc.HandleApprovalReturn(ctx, sessionID)
		require.NoError(t, err)

		_, err = fx.svc.Cancel(ctx, sessionID, buyerID)
		assert.ErrorIs(t, err, ErrInvalidSessionState)
	})

	t.Run("other buyers cannot cancel", func(t *testing.T) {
		fx := newFixture()
		occ := fx.addOccurrence(1000, 10)
		session, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
			LineItemRequest{OccurrenceID: occ.String(), Quantity: 2},
		))
		require.NoError(t, err)
		sessionID, _ := uuid.Parse(session.ID)

		_, err = fx.svc.Cancel(ctx, sessionID, uuid.New())
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestExpireStaleSessions(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New()

	fx := newFixture()
	occ := fx.addOccurrence(1000, 10)
	session, err := fx.svc.StartCheckout(ctx, buyerID, startRequest(
		LineItemRequest{OccurrenceID: occ.String(), Quantity: 4},
	))
	require.NoError(t, err)
	sessionID, _ := uuid.Parse(session.ID)

	// Nothing stale yet
	expired, err := fx.svc.ExpireStaleSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	fx.repo.sessions[sessionID].Deadline = time.Now().Add(-16 * time.Minute)

	expired, err = fx.svc.ExpireStaleSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, StatusExpired, fx.repo.sessions[sessionID].Status)
	assert.Equal(t, 10, fx.ledger.available[occ])

	// Freed capacity is immediately holdable again
	_, err = fx.ledger.Hold(ctx, occ, buyerID, 10)
	assert.NoError(t, err)
}
