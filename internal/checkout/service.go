package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/example/asha-storefront/internal/domain/cart"
	"github.com/example/asha-storefront/internal/domain/order"
	"github.com/example/asha-storefront/internal/event"
	"github.com/example/asha-storefront/internal/infrastructure/docstore"
	"github.com/google/uuid"
)

var (
	ErrEmptyCart = errors.New("cart is empty")

	// ErrPartialWrite flags an order that is visible to operators but
	// not yet in the customer's own history. Retryable via
	// RetryCustomerCopy; retries are idempotent by order ID.
	ErrPartialWrite = errors.New("customer order copy failed after operator write")

	// ErrNumberSpaceExhausted means every generated order number
	// collided. With a 4-digit suffix this only happens under absurd
	// daily volume.
	ErrNumberSpaceExhausted = errors.New("could not generate a unique order number")
)

const (
	numberAttempts       = 5
	customerCopyAttempts = 3
)

// ValidationError reports a missing required delivery field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required field missing: %s", e.Field)
}

// Service converts a cart plus delivery details and an applied
// discount into a persisted, immutable order snapshot.
type Service struct {
	store     docstore.Store
	publisher order.Publisher

	// retryBackoff is the base delay between customer-copy attempts,
	// doubled each retry.
	retryBackoff time.Duration
}

func NewService(store docstore.Store, publisher order.Publisher) *Service {
	return &Service{
		store:        store,
		publisher:    publisher,
		retryBackoff: 100 * time.Millisecond,
	}
}

// Submit validates, snapshots and persists the order. Nothing is
// persisted on validation failure. On success the caller must clear
// the session cart.
func (s *Service) Submit(ctx context.Context, c *cart.Cart, delivery order.Delivery, discount float64, customerID string) (*order.Order, error) {
	if c.Empty() {
		return nil, ErrEmptyCart
	}
	if err := validateDelivery(delivery); err != nil {
		return nil, err
	}

	number, err := s.uniqueOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	subtotal := c.Total()
	o := &order.Order{
		ID:            uuid.New().String(),
		OrderNumber:   number,
		CustomerID:    customerID,
		Items:         c.Lines(), // frozen copy; later cart mutations cannot touch it
		Delivery:      delivery,
		PaymentMethod: order.PaymentCashOnDelivery,
		Subtotal:      subtotal,
		Discount:      discount,
		Total:         subtotal - discount,
		Status:        order.StatusPending,
		Unread:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Put(ctx, order.Collection, o.ID, o); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	if err := s.writeCustomerCopy(ctx, o); err != nil {
		// The operator copy exists; surface the gap instead of masking it.
		return o, fmt.Errorf("%w: order %s", ErrPartialWrite, o.ID)
	}

	s.publishCreated(ctx, o)
	return o, nil
}

// RetryCustomerCopy re-Puts the customer-scoped copy of an order that
// previously failed with ErrPartialWrite. Keyed by order ID, so
// repeating it cannot duplicate the order.
func (s *Service) RetryCustomerCopy(ctx context.Context, orderID string) error {
	var o order.Order
	ok, err := s.store.Get(ctx, order.Collection, orderID, &o)
	if err != nil {
		return err
	}
	if !ok {
		return order.ErrOrderNotFound
	}
	return s.writeCustomerCopy(ctx, &o)
}

func (s *Service) writeCustomerCopy(ctx context.Context, o *order.Order) error {
	backoff := s.retryBackoff
	var err error
	for attempt := 1; attempt <= customerCopyAttempts; attempt++ {
		err = s.store.Put(ctx, order.CustomerCollection(o.CustomerID), o.ID, o)
		if err == nil {
			return nil
		}
		log.Printf("[Checkout] Customer copy attempt %d/%d for order %s failed: %v",
			attempt, customerCopyAttempts, o.ID, err)
		if attempt == customerCopyAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// uniqueOrderNumber generates ORD-YYMMDD-NNNN and regenerates the
// suffix on collision against the operator collection.
func (s *Service) uniqueOrderNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number := generateOrderNumber(time.Now())
		taken, err := s.numberTaken(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", ErrNumberSpaceExhausted
}

func (s *Service) numberTaken(ctx context.Context, number string) (bool, error) {
	docs, err := s.store.List(ctx, order.Collection)
	if err != nil {
		return false, fmt.Errorf("failed to check order number: %w", err)
	}
	for _, raw := range docs {
		var o order.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			continue
		}
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func generateOrderNumber(t time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", t.Format("060102"), rand.Intn(10000))
}

func (s *Service) publishCreated(ctx context.Context, o *order.Order) {
	if s.publisher == nil {
		return
	}
	env, err := event.NewEnvelope(event.TypeOrderCreated, o.ID, event.OrderCreated{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerID:   o.CustomerID,
		CustomerName: o.Delivery.Name,
		Total:        o.Total,
		Unread:       o.Unread,
		CreatedAt:    o.CreatedAt,
	})
	if err != nil {
		log.Printf("[Checkout] Failed to build created event for %s: %v", o.ID, err)
		return
	}
	if err := s.publisher.Publish(ctx, o.ID, env); err != nil {
		log.Printf("[Checkout] Failed to publish created event for %s: %v", o.ID, err)
	}
}

func validateDelivery(d order.Delivery) error {
	switch {
	case d.Name == "":
		return &ValidationError{Field: "name"}
	case d.Phone == "":
		return &ValidationError{Field: "phone"}
	case d.Address == "":
		return &ValidationError{Field: "address"}
	}
	return nil
}
