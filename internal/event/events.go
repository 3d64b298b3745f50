package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated       = "OrderCreated"
	TypeOrderStatusChanged = "OrderStatusChanged"
)

// Envelope is the wire format for order events on the Kafka topic.
// Messages are keyed by OrderID so per-order ordering is preserved.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	OrderID   string          `json:"order_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope wraps an event payload for publishing
func NewEnvelope(eventType, orderID string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		OrderID:   orderID,
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}

// OrderCreated is published once per successful order submission.
type OrderCreated struct {
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Total        float64   `json:"total"`
	Unread       bool      `json:"unread"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrderStatusChanged is published on every accepted status transition.
type OrderStatusChanged struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	UpdatedBy   string    `json:"updated_by"`
	Reason      string    `json:"reason,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
