package order

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/example/asha-storefront/internal/event"
	"github.com/example/asha-storefront/internal/infrastructure/docstore"
)

// Publisher publishes order events keyed by order ID.
type Publisher interface {
	Publish(ctx context.Context, key string, evt any) error
}

// Actor identifies who is requesting a transition.
type Actor struct {
	ID   string
	Role Role
}

// Service applies status transitions through the document store's
// per-record atomic update, so two racing writers resolve to exactly
// one final status.
type Service struct {
	store     docstore.Store
	publisher Publisher
}

func NewService(store docstore.Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Get loads an order from the operator-wide collection.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	ok, err := s.store.Get(ctx, Collection, orderID, &o)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

// Transition moves an order to the target status on behalf of the
// actor. Rejected transitions leave the order untouched. Accepted ones
// stamp UpdatedAt/UpdatedBy, the terminal timestamps and cancel
// reason, and are mirrored to the customer-scoped copy.
func (s *Service) Transition(ctx context.Context, orderID string, to Status, actor Actor, reason string) (*Order, error) {
	if actor.Role == RoleRider && to == StatusCancelled && reason == "" {
		return nil, ErrCancelReasonRequired
	}

	var updated Order
	var from Status
	err := s.store.Update(ctx, Collection, orderID, func(raw []byte) ([]byte, error) {
		var o Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, err
		}
		if err := Authorize(actor.Role, o.Status, to); err != nil {
			return nil, err
		}

		from = o.Status
		now := time.Now()
		o.Status = to
		o.UpdatedAt = now
		o.UpdatedBy = string(actor.Role)
		switch to {
		case StatusDelivered:
			o.DeliveredAt = &now
		case StatusCancelled:
			o.CancelledAt = &now
			o.CancelReason = reason
		}
		if actor.Role == RoleRider {
			o.AssignedCourierID = actor.ID
		}
		if actor.Role == RoleAdmin {
			o.Unread = false
		}

		updated = o
		return json.Marshal(o)
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	s.mirrorToCustomer(ctx, &updated)
	s.publishStatusChanged(ctx, &updated, from, reason)
	return &updated, nil
}

// MarkRead flips the order's unread flag. Called when an administrator
// explicitly opens the order; independent of console notifications.
func (s *Service) MarkRead(ctx context.Context, orderID string) error {
	err := s.store.Update(ctx, Collection, orderID, func(raw []byte) ([]byte, error) {
		var o Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, err
		}
		o.Unread = false
		return json.Marshal(o)
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}

// mirrorToCustomer keeps the customer-scoped copy in step with the
// operator copy. The operator copy is canonical; a failed mirror is
// logged, not fatal.
func (s *Service) mirrorToCustomer(ctx context.Context, o *Order) {
	if o.CustomerID == "" {
		return
	}
	if err := s.store.Put(ctx, CustomerCollection(o.CustomerID), o.ID, o); err != nil {
		log.Printf("[Order] Failed to mirror order %s to customer %s: %v", o.ID, o.CustomerID, err)
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, o *Order, from Status, reason string) {
	if s.publisher == nil {
		return
	}
	env, err := event.NewEnvelope(event.TypeOrderStatusChanged, o.ID, event.OrderStatusChanged{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		From:        string(from),
		To:          string(o.Status),
		UpdatedBy:   o.UpdatedBy,
		Reason:      reason,
		UpdatedAt:   o.UpdatedAt,
	})
	if err != nil {
		log.Printf("[Order] Failed to build status event for %s: %v", o.ID, err)
		return
	}
	if err := s.publisher.Publish(ctx, o.ID, env); err != nil {
		log.Printf("[Order] Failed to publish status event for %s: %v", o.ID, err)
	}
}
