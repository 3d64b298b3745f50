package notification

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/example/asha-storefront/internal/event"
	"github.com/google/uuid"
)

// Notification is the operator-facing record of a newly created,
// unread order.
type Notification struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Total     float64   `json:"total"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Subscriber receives new notifications as they are dispatched. Close
// must be called when the operator view goes away so nothing leaks.
type Subscriber struct {
	C chan Notification

	once  sync.Once
	close func()
}

func (s *Subscriber) Close() {
	s.once.Do(s.close)
}

// Dispatcher consumes OrderCreated events and fans them out to
// operator consoles. Upstream delivery is at-least-once, so events are
// deduplicated by order ID before anything is emitted.
type Dispatcher struct {
	mu            sync.RWMutex
	seen          map[string]bool
	notifications []Notification // newest first
	unread        int
	subscribers   map[*Subscriber]struct{}
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		seen:        make(map[string]bool),
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// HandleEvent is a kafka MessageHandler. Events other than
// OrderCreated, orders already read, and redeliveries are ignored.
func (d *Dispatcher) HandleEvent(ctx context.Context, key, value []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}
	if env.Type != event.TypeOrderCreated {
		return nil
	}

	var created event.OrderCreated
	if err := json.Unmarshal(env.Data, &created); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderCreated event: %v", err)
		return err
	}
	if !created.Unread {
		return nil
	}

	d.dispatch(created)
	return nil
}

func (d *Dispatcher) dispatch(created event.OrderCreated) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen[created.OrderID] {
		log.Printf("[Notifier] Skipping redelivered order %s", created.OrderID)
		return
	}
	d.seen[created.OrderID] = true

	n := Notification{
		ID:        uuid.New().String(),
		OrderID:   created.OrderID,
		Title:     "New Order Received",
		Summary:   "New order from " + created.CustomerName,
		Total:     created.Total,
		Timestamp: created.CreatedAt,
	}
	d.notifications = append([]Notification{n}, d.notifications...)
	d.unread++

	for sub := range d.subscribers {
		// Never block the consumer loop on a slow console.
		select {
		case sub.C <- n:
		default:
		}
	}

	log.Printf("[Notifier] New order %s from %s (total %.2f)", created.OrderNumber, created.CustomerName, created.Total)
}

// Notifications returns the current list, newest first.
func (d *Dispatcher) Notifications() []Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Notification(nil), d.notifications...)
}

// UnreadCount is the badge value shown on the operator console.
func (d *Dispatcher) UnreadCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.unread
}

// MarkRead flips one notification's read flag and decrements the
// counter. This is local console state; the order's own unread flag is
// only cleared by an explicit order view.
func (d *Dispatcher) MarkRead(notificationID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.notifications {
		if d.notifications[i].ID == notificationID {
			if !d.notifications[i].Read {
				d.notifications[i].Read = true
				d.unread--
			}
			return true
		}
	}
	return false
}

// Subscribe attaches an operator console to the live feed.
func (d *Dispatcher) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan Notification, 16)}
	sub.close = func() {
		d.mu.Lock()
		delete(d.subscribers, sub)
		d.mu.Unlock()
		close(sub.C)
	}

	d.mu.Lock()
	d.subscribers[sub] = struct{}{}
	d.mu.Unlock()
	return sub
}
