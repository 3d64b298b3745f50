package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/asha-storefront/internal/api/middleware"
	"github.com/example/asha-storefront/internal/delivery"
)

// RiderHandlers serves the courier console over the shared pool of
// processing orders.
type RiderHandlers struct {
	workflow *delivery.Workflow
}

func NewRiderHandlers(workflow *delivery.Workflow) *RiderHandlers {
	return &RiderHandlers{workflow: workflow}
}

func (h *RiderHandlers) GetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.workflow.Pool(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, pool)
}

func (h *RiderHandlers) CompleteDelivery(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/rider/orders/"), "/complete")
	courierID := middleware.GetUserID(r.Context())

	updated, err := h.workflow.Complete(r.Context(), id, courierID)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *RiderHandlers) FailDelivery(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/rider/orders/"), "/fail")
	courierID := middleware.GetUserID(r.Context())

	var req struct {
		Reason string `json:"reason"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.workflow.Fail(r.Context(), id, courierID, delivery.FailureReason(req.Reason), req.Note)
	if err != nil {
		switch {
		case errors.Is(err, delivery.ErrReasonRequired),
			errors.Is(err, delivery.ErrUnknownReason),
			errors.Is(err, delivery.ErrNoteRequired):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			writeTransitionError(w, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
