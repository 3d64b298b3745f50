package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/asha-storefront/internal/domain/cart"
	"github.com/example/asha-storefront/internal/event"
	"github.com/example/asha-storefront/internal/infrastructure/docstore/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPublisher records published events
type mockPublisher struct {
	mu     sync.Mutex
	Events []event.Envelope
}

func (m *mockPublisher) Publish(ctx context.Context, key string, evt any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, evt.(event.Envelope))
	return nil
}

func newTestOrderService() (*Service, *mocks.MockStore, *mockPublisher) {
	store := mocks.NewMockStore()
	publisher := &mockPublisher{}
	return NewService(store, publisher), store, publisher
}

func seedOrder(store *mocks.MockStore, id string, status Status) Order {
	o := Order{
		ID:            id,
		OrderNumber:   "ORD-260829-0042",
		CustomerID:    "user-1",
		Items:         []cart.Line{{ProductID: "p1", PackageID: "pkg1", UnitPrice: 100, Quantity: 2}},
		Delivery:      Delivery{Name: "Asha", Phone: "017", Address: "Dhaka"},
		PaymentMethod: PaymentCashOnDelivery,
		Subtotal:      200,
		Total:         200,
		Status:        status,
		Unread:        true,
		CreatedAt:     time.Now(),
	}
	store.Seed(Collection, id, o)
	store.Seed(CustomerCollection(o.CustomerID), id, o)
	return o
}

// ============================================
// Transition Tests
// ============================================

func TestService_Transition_AdminAdvancesChain(t *testing.T) {
	svc, store, _ := newTestOrderService()
	seedOrder(store, "o-1", StatusPending)
	ctx := context.Background()
	admin := Actor{ID: "admin-1", Role: RoleAdmin}

	for _, to := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		updated, err := svc.Transition(ctx, "o-1", to, admin, "")
		require.NoError(t, err)
		assert.Equal(t, to, updated.Status)
	}

	final, err := svc.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, final.Status)
	assert.NotNil(t, final.DeliveredAt)
	assert.Equal(t, "admin", final.UpdatedBy)
	assert.False(t, final.Unread, "admin action flips unread")
}

func TestService_Transition_RejectedLeavesOrderUnchanged(t *testing.T) {
	svc, store, publisher := newTestOrderService()
	original := seedOrder(store, "o-1", StatusProcessing)
	ctx := context.Background()

	_, err := svc.Transition(ctx, "o-1", StatusPending, Actor{Role: RoleAdmin}, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current, err := svc.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, original.Status, current.Status)
	assert.Equal(t, original.Total, current.Total)
	assert.Empty(t, publisher.Events)
}

func TestService_Transition_CustomerDenied(t *testing.T) {
	svc, store, _ := newTestOrderService()
	seedOrder(store, "o-1", StatusPending)

	_, err := svc.Transition(context.Background(), "o-1", StatusProcessing, Actor{Role: RoleCustomer}, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestService_Transition_TerminalStateRejects(t *testing.T) {
	svc, store, _ := newTestOrderService()
	seedOrder(store, "o-1", StatusDelivered)
	seedOrder(store, "o-2", StatusCancelled)

	_, err := svc.Transition(context.Background(), "o-1", StatusCancelled, Actor{Role: RoleAdmin}, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Transition(context.Background(), "o-2", StatusProcessing, Actor{Role: RoleAdmin}, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_Transition_RiderCancelRequiresReason(t *testing.T) {
	svc, store, _ := newTestOrderService()
	seedOrder(store, "o-1", StatusProcessing)

	_, err := svc.Transition(context.Background(), "o-1", StatusCancelled, Actor{ID: "rider-1", Role: RoleRider}, "")

	assert.ErrorIs(t, err, ErrCancelReasonRequired)
	assert.Empty(t, store.UpdateCalls, "rejected before any store mutation")
}

func TestService_Transition_RiderCancelStampsFields(t *testing.T) {
	svc, store, _ := newTestOrderService()
	seedOrder(store, "o-1", StatusProcessing)

	updated, err := svc.Transition(context.Background(), "o-1", StatusCancelled,
		Actor{ID: "rider-1", Role: RoleRider}, "WrongAddress")

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
	assert.Equal(t, "WrongAddress", updated.CancelReason)
	assert.Equal(t, "rider-1", updated.AssignedCourierID)
	assert.Equal(t, "rider", updated.UpdatedBy)
	assert.NotNil(t, updated.CancelledAt)
}

func TestService_Transition_MirrorsCustomerCopy(t *testing.T) {
	svc, store, _ := newTestOrderService()
	seedOrder(store, "o-1", StatusPending)
	ctx := context.Background()

	_, err := svc.Transition(ctx, "o-1", StatusProcessing, Actor{Role: RoleAdmin}, "")
	require.NoError(t, err)

	var copy Order
	ok, err := store.Get(ctx, CustomerCollection("user-1"), "o-1", &copy)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, copy.Status)
}

func TestService_Transition_PublishesStatusChanged(t *testing.T) {
	svc, store, publisher := newTestOrderService()
	seedOrder(store, "o-1", StatusPending)

	_, err := svc.Transition(context.Background(), "o-1", StatusProcessing, Actor{Role: RoleAdmin}, "")
	require.NoError(t, err)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, event.TypeOrderStatusChanged, publisher.Events[0].Type)
	assert.Equal(t, "o-1", publisher.Events[0].OrderID)
}

func TestService_Transition_OrderNotFound(t *testing.T) {
	svc, _, _ := newTestOrderService()

	_, err := svc.Transition(context.Background(), "missing", StatusProcessing, Actor{Role: RoleAdmin}, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_Transition_ConcurrentWritersResolveToOneStatus(t *testing.T) {
	svc, store, _ := newTestOrderService()
	original := seedOrder(store, "o-1", StatusProcessing)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Transition(ctx, "o-1", StatusShipped, Actor{Role: RoleAdmin}, "")
	}()
	go func() {
		defer wg.Done()
		_, _ = svc.Transition(ctx, "o-1", StatusDelivered, Actor{ID: "rider-1", Role: RoleRider}, "")
	}()
	wg.Wait()

	final, err := svc.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Contains(t, []Status{StatusShipped, StatusDelivered}, final.Status)
	// Unrelated fields survive the race.
	assert.Equal(t, original.OrderNumber, final.OrderNumber)
	assert.Equal(t, original.Total, final.Total)
	assert.Len(t, final.Items, 1)
}

// ============================================
// MarkRead Tests
// ============================================

func TestService_MarkRead(t *testing.T) {
	svc, store, _ := newTestOrderService()
	seedOrder(store, "o-1", StatusPending)
	ctx := context.Background()

	require.NoError(t, svc.MarkRead(ctx, "o-1"))

	o, err := svc.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.False(t, o.Unread)
	assert.Equal(t, StatusPending, o.Status, "status untouched")
}

func TestService_MarkRead_NotFound(t *testing.T) {
	svc, _, _ := newTestOrderService()
	assert.ErrorIs(t, svc.MarkRead(context.Background(), "missing"), ErrOrderNotFound)
}
