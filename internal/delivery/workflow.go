package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/example/asha-storefront/internal/domain/order"
	"github.com/example/asha-storefront/internal/infrastructure/docstore"
)

// FailureReason codes a courier may report when a delivery cannot be
// completed.
type FailureReason string

const (
	ReasonCustomerUnavailable FailureReason = "CustomerUnavailable"
	ReasonWrongAddress        FailureReason = "WrongAddress"
	ReasonUnreachable         FailureReason = "Unreachable"
	ReasonCustomerCancelled   FailureReason = "CustomerCancelled"
	ReasonAreaInaccessible    FailureReason = "AreaInaccessible"
	ReasonOther               FailureReason = "Other"
)

var failureReasons = map[FailureReason]bool{
	ReasonCustomerUnavailable: true,
	ReasonWrongAddress:        true,
	ReasonUnreachable:         true,
	ReasonCustomerCancelled:   true,
	ReasonAreaInaccessible:    true,
	ReasonOther:               true,
}

var (
	ErrReasonRequired = errors.New("failure reason is required")
	ErrUnknownReason  = errors.New("unknown failure reason")
	ErrNoteRequired   = errors.New("a note is required when the reason is Other")
)

// Workflow is the courier-facing surface over the order state machine.
// Couriers act on a shared pool of processing orders; there is no
// sticky single-courier assignment.
type Workflow struct {
	store  docstore.Store
	orders *order.Service
}

func NewWorkflow(store docstore.Store, orders *order.Service) *Workflow {
	return &Workflow{store: store, orders: orders}
}

// Pool returns every order currently in processing, newest first.
func (w *Workflow) Pool(ctx context.Context) ([]*order.Order, error) {
	docs, err := w.store.List(ctx, order.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery pool: %w", err)
	}

	pool := make([]*order.Order, 0)
	for _, raw := range docs {
		var o order.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			log.Printf("[Delivery] Skipping malformed order document: %v", err)
			continue
		}
		if o.Status == order.StatusProcessing {
			pool = append(pool, &o)
		}
	}
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].CreatedAt.After(pool[j].CreatedAt)
	})
	return pool, nil
}

// Complete marks a pooled order as delivered by the acting courier.
func (w *Workflow) Complete(ctx context.Context, orderID, courierID string) (*order.Order, error) {
	actor := order.Actor{ID: courierID, Role: order.RoleRider}
	return w.orders.Transition(ctx, orderID, order.StatusDelivered, actor, "")
}

// Fail cancels a pooled order with a coded reason. The reason is
// validated before any state mutation; Other requires a note.
func (w *Workflow) Fail(ctx context.Context, orderID, courierID string, reason FailureReason, note string) (*order.Order, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if !failureReasons[reason] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReason, reason)
	}
	if reason == ReasonOther && note == "" {
		return nil, ErrNoteRequired
	}

	cancelReason := string(reason)
	if note != "" {
		cancelReason = fmt.Sprintf("%s: %s", reason, note)
	}

	actor := order.Actor{ID: courierID, Role: order.RoleRider}
	return w.orders.Transition(ctx, orderID, order.StatusCancelled, actor, cancelReason)
}
