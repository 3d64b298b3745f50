package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/example/asha-storefront/internal/api/middleware"
	"github.com/example/asha-storefront/internal/checkout"
	"github.com/example/asha-storefront/internal/domain/cart"
	"github.com/example/asha-storefront/internal/domain/order"
	"github.com/example/asha-storefront/internal/pricing"
	"github.com/example/asha-storefront/internal/query"
)

// Handlers serves the customer-facing storefront surface: catalog,
// cart, coupon, checkout and order views. The cart and any applied
// coupon belong to one checkout session; the mutex serializes HTTP
// access to that session state.
type Handlers struct {
	queryHandler *query.Handler
	checkoutSvc  *checkout.Service
	coupons      *pricing.Engine

	mu         sync.Mutex
	cart       *cart.Cart
	couponCode string
	discount   float64
}

func NewHandlers(queryHandler *query.Handler, checkoutSvc *checkout.Service, coupons *pricing.Engine, sessionCart *cart.Cart) *Handlers {
	return &Handlers{
		queryHandler: queryHandler,
		checkoutSvc:  checkoutSvc,
		coupons:      coupons,
		cart:         sessionCart,
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.Products(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// Cart Handlers

type cartView struct {
	Items    []cart.Line `json:"items"`
	Count    int         `json:"count"`
	Subtotal float64     `json:"subtotal"`
	Coupon   string      `json:"coupon,omitempty"`
	Discount float64     `json:"discount"`
	Total    float64     `json:"total"`
}

// cartViewLocked builds the session view. Caller holds h.mu.
func (h *Handlers) cartViewLocked() cartView {
	subtotal := h.cart.Total()
	return cartView{
		Items:    h.cart.Lines(),
		Count:    h.cart.Count(),
		Subtotal: subtotal,
		Coupon:   h.couponCode,
		Discount: h.discount,
		Total:    subtotal - h.discount,
	}
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	view := h.cartViewLocked()
	h.mu.Unlock()
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var line cart.Line
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if line.ProductID == "" || line.PackageID == "" {
		http.Error(w, "product_id and package_id are required", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.cart.Add(line); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.revalidateCouponLocked()
	respondJSON(w, http.StatusOK, h.cartViewLocked())
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, packageID, ok := splitCartItemPath(r.URL.Path)
	if !ok {
		http.Error(w, "bad cart item path", http.StatusBadRequest)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.cart.SetQuantity(productID, packageID, req.Quantity); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.revalidateCouponLocked()
	respondJSON(w, http.StatusOK, h.cartViewLocked())
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, packageID, ok := splitCartItemPath(r.URL.Path)
	if !ok {
		http.Error(w, "bad cart item path", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.cart.Remove(productID, packageID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.revalidateCouponLocked()
	respondJSON(w, http.StatusOK, h.cartViewLocked())
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.cart.Clear(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.couponCode = ""
	h.discount = 0
	respondJSON(w, http.StatusOK, h.cartViewLocked())
}

// Coupon Handlers

func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if req.Code == "" {
		// Clearing the code resets the session to no coupon.
		h.couponCode = ""
		h.discount = 0
		respondJSON(w, http.StatusOK, h.cartViewLocked())
		return
	}

	result := h.coupons.Validate(req.Code, h.cart.Total(), h.couponCode != "")
	if !result.Accepted {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"reason": result.Reason})
		return
	}

	h.couponCode = strings.ToUpper(strings.TrimSpace(req.Code))
	h.discount = result.Discount
	respondJSON(w, http.StatusOK, h.cartViewLocked())
}

// revalidateCouponLocked re-checks the applied coupon after a cart
// mutation; a cart that drops below the threshold loses the discount.
// Caller holds h.mu.
func (h *Handlers) revalidateCouponLocked() {
	if h.couponCode == "" {
		return
	}
	result := h.coupons.Validate(h.couponCode, h.cart.Total(), false)
	if !result.Accepted {
		h.couponCode = ""
		h.discount = 0
		return
	}
	h.discount = result.Discount
}

// Checkout Handler

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delivery order.Delivery `json:"delivery"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	customerID := middleware.GetUserID(r.Context())

	h.mu.Lock()
	defer h.mu.Unlock()

	placed, err := h.checkoutSvc.Submit(r.Context(), h.cart, req.Delivery, h.discount, customerID)

	var vErr *checkout.ValidationError
	switch {
	case err == nil:
		h.resetSessionLocked()
		respondJSON(w, http.StatusCreated, placed)
	case errors.Is(err, checkout.ErrPartialWrite):
		// The operator copy exists, so the order is placed. Report the
		// id so the customer-side gap can be retried.
		h.resetSessionLocked()
		respondJSON(w, http.StatusAccepted, map[string]string{
			"order_id": placed.ID,
			"warning":  "order placed; your order history may lag briefly",
		})
	case errors.Is(err, checkout.ErrEmptyCart), errors.As(err, &vErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// resetSessionLocked spends the cart and coupon after a placed order.
// Caller holds h.mu.
func (h *Handlers) resetSessionLocked() {
	_ = h.cart.Clear()
	h.couponCode = ""
	h.discount = 0
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.GetUserID(r.Context())
	orders, err := h.queryHandler.CustomerOrders(r.Context(), customerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	if number == "" {
		http.Error(w, "number query parameter is required", http.StatusBadRequest)
		return
	}

	found, err := h.queryHandler.TrackByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, found)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// splitCartItemPath parses /cart/items/{productID}/{packageID}.
func splitCartItemPath(path string) (productID, packageID string, ok bool) {
	rest := strings.TrimPrefix(path, "/cart/items/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
