package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/asha-storefront/internal/api/middleware"
	"github.com/example/asha-storefront/internal/identity"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, adminHandlers *AdminHandlers, riderHandlers *RiderHandlers, tokens *identity.TokenService) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.AuthMiddleware(tokens)
	adminOnly := middleware.RequireRole(identity.RoleAdmin)
	riderOnly := middleware.RequireRole(identity.RoleRider)

	// Auth
	mux.HandleFunc("/auth/register", methodOnly(http.MethodPost, authHandlers.Register))
	mux.HandleFunc("/auth/login", methodOnly(http.MethodPost, authHandlers.Login))
	mux.HandleFunc("/auth/logout", methodOnly(http.MethodPost, authHandlers.Logout))
	mux.HandleFunc("/auth/refresh", methodOnly(http.MethodPost, authHandlers.Refresh))
	mux.Handle("/auth/me", authed(http.HandlerFunc(authHandlers.Me)))

	// Products
	mux.HandleFunc("/products", methodOnly(http.MethodGet, handlers.GetProducts))

	// Cart
	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCart(w, r)
		case http.MethodDelete:
			handlers.ClearCart(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/cart/items", methodOnly(http.MethodPost, handlers.AddToCart))

	mux.HandleFunc("/cart/items/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			handlers.UpdateCartItem(w, r)
		case http.MethodDelete:
			handlers.RemoveFromCart(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Checkout
	mux.HandleFunc("/checkout/coupon", methodOnly(http.MethodPost, handlers.ApplyCoupon))
	mux.Handle("/checkout", authed(http.HandlerFunc(methodOnly(http.MethodPost, handlers.Checkout))))

	// Orders (customer)
	mux.Handle("/orders", authed(http.HandlerFunc(methodOnly(http.MethodGet, handlers.GetOrders))))
	mux.HandleFunc("/orders/track", methodOnly(http.MethodGet, handlers.TrackOrder))

	// Admin console
	mux.Handle("/admin/orders", authed(adminOnly(http.HandlerFunc(
		methodOnly(http.MethodGet, adminHandlers.GetAllOrders)))))
	mux.Handle("/admin/orders/", authed(adminOnly(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/status") && r.Method == http.MethodPost:
				adminHandlers.UpdateOrderStatus(w, r)
			case r.Method == http.MethodGet:
				adminHandlers.GetOrder(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		}))))
	mux.Handle("/admin/notifications", authed(adminOnly(http.HandlerFunc(
		methodOnly(http.MethodGet, adminHandlers.GetNotifications)))))
	mux.Handle("/admin/notifications/stream", authed(adminOnly(http.HandlerFunc(
		methodOnly(http.MethodGet, adminHandlers.StreamNotifications)))))
	mux.Handle("/admin/notifications/", authed(adminOnly(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/read") && r.Method == http.MethodPost {
				adminHandlers.MarkNotificationRead(w, r)
				return
			}
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}))))

	// Rider console
	mux.Handle("/rider/orders", authed(riderOnly(http.HandlerFunc(
		methodOnly(http.MethodGet, riderHandlers.GetPool)))))
	mux.Handle("/rider/orders/", authed(riderOnly(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/complete") && r.Method == http.MethodPost:
				riderHandlers.CompleteDelivery(w, r)
			case strings.HasSuffix(r.URL.Path, "/fail") && r.Method == http.MethodPost:
				riderHandlers.FailDelivery(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		}))))

	return withLogging(mux)
}

func methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
