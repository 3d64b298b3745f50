package order

import (
	"time"

	"github.com/example/asha-storefront/internal/domain/cart"
)

// Collection is the operator-wide order collection.
const Collection = "orders"

// PaymentCashOnDelivery is the only supported payment method.
const PaymentCashOnDelivery = "cash_on_delivery"

// CustomerCollection is the customer-scoped order sub-collection. Both
// copies of an order share the same document ID.
func CustomerCollection(customerID string) string {
	return "users/" + customerID + "/orders"
}

// Delivery holds the destination details captured at checkout.
type Delivery struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

// Order is the immutable snapshot created at submission. Items are a
// deep copy of the cart taken at that moment; Total is fixed as
// Subtotal - Discount and never recomputed. Only the state machine
// mutates an order after creation.
type Order struct {
	ID                string      `json:"id"`
	OrderNumber       string      `json:"order_number"`
	CustomerID        string      `json:"customer_id"`
	Items             []cart.Line `json:"items"`
	Delivery          Delivery    `json:"delivery"`
	PaymentMethod     string      `json:"payment_method"`
	Subtotal          float64     `json:"subtotal"`
	Discount          float64     `json:"discount"`
	Total             float64     `json:"total"`
	Status            Status      `json:"status"`
	AssignedCourierID string      `json:"assigned_courier_id,omitempty"`
	CancelReason      string      `json:"cancel_reason,omitempty"`
	Unread            bool        `json:"unread"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	UpdatedBy         string      `json:"updated_by,omitempty"`
	DeliveredAt       *time.Time  `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time  `json:"cancelled_at,omitempty"`
}
