package order

import "errors"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Role is the actor role attempting a transition.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleRider    Role = "rider"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrPermissionDenied     = errors.New("actor is not permitted to perform this transition")
	ErrCancelReasonRequired = errors.New("cancel reason is required")
)

// validTransitions is the status graph irrespective of actor. The
// rider's processing -> delivered shortcut is a legal edge; everything
// reachable forward moves one step along the chain, and any
// non-terminal status may be cancelled.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {}, // terminal
	StatusCancelled:  {}, // terminal
}

// allowedTransitions is the per-role authority table. A transition is
// checked here exactly once per request; no ad hoc role comparisons
// elsewhere.
var allowedTransitions = map[Role]map[Status][]Status{
	RoleAdmin: {
		StatusPending:    {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusShipped, StatusCancelled},
		StatusShipped:    {StatusDelivered, StatusCancelled},
	},
	RoleRider: {
		StatusProcessing: {StatusDelivered, StatusCancelled},
	},
	RoleCustomer: {},
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValid reports whether the status is one of the known states.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func contains(statuses []Status, target Status) bool {
	for _, s := range statuses {
		if s == target {
			return true
		}
	}
	return false
}

// Authorize validates a requested transition. Edges absent from the
// status graph fail with ErrInvalidTransition; edges present in the
// graph but outside the actor's authority fail with
// ErrPermissionDenied. Either way the order is left unchanged.
func Authorize(role Role, from, to Status) error {
	graph, ok := validTransitions[from]
	if !ok || !contains(graph, to) {
		return ErrInvalidTransition
	}
	if !contains(allowedTransitions[role][from], to) {
		return ErrPermissionDenied
	}
	return nil
}
