package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/asha-storefront/internal/api/middleware"
	"github.com/example/asha-storefront/internal/domain/order"
	"github.com/example/asha-storefront/internal/notification"
	"github.com/example/asha-storefront/internal/query"
)

// AdminHandlers serves the operator console: the full order board,
// status transitions and the new-order notification feed.
type AdminHandlers struct {
	queryHandler *query.Handler
	orders       *order.Service
	dispatcher   *notification.Dispatcher
}

func NewAdminHandlers(queryHandler *query.Handler, orders *order.Service, dispatcher *notification.Dispatcher) *AdminHandlers {
	return &AdminHandlers{
		queryHandler: queryHandler,
		orders:       orders,
		dispatcher:   dispatcher,
	}
}

func (h *AdminHandlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.AllOrders(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order and flips its unread flag: opening the
// detail view is what marks a new order as seen.
func (h *AdminHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/admin/orders/")

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if o.Unread {
		if err := h.orders.MarkRead(r.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		o.Unread = false
	}

	respondJSON(w, http.StatusOK, o)
}

// UpdateOrderStatus applies an admin transition.
func (h *AdminHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/admin/orders/"), "/status")

	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	to := order.Status(req.Status)
	if !to.IsValid() {
		http.Error(w, fmt.Sprintf("unknown status %q", req.Status), http.StatusBadRequest)
		return
	}

	actor := order.Actor{
		ID:   middleware.GetUserID(r.Context()),
		Role: order.RoleAdmin,
	}
	updated, err := h.orders.Transition(r.Context(), id, to, actor, req.Reason)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Notification Handlers

func (h *AdminHandlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": h.dispatcher.Notifications(),
		"unread":        h.dispatcher.UnreadCount(),
	})
}

func (h *AdminHandlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/admin/notifications/"), "/read")
	if !h.dispatcher.MarkRead(id) {
		http.Error(w, "Notification not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unread": h.dispatcher.UnreadCount()})
}

// StreamNotifications pushes new-order notifications to the console
// over SSE. The subscription is closed when the client disconnects.
func (h *AdminHandlers) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	sub := h.dispatcher.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// writeTransitionError maps state-machine errors onto HTTP statuses.
func writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, order.ErrPermissionDenied):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrCancelReasonRequired):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
