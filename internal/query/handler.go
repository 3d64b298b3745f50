// Package query serves the read models behind the role consoles: the
// admin order board, a customer's own order history, order tracking by
// number, and the product catalog listing.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/example/asha-storefront/internal/domain/order"
	"github.com/example/asha-storefront/internal/infrastructure/docstore"
)

// ProductsCollection holds the catalog documents rendered by the
// storefront pages.
const ProductsCollection = "products"

// Package is one purchasable size/bundle of a product.
type Package struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// Product is a catalog document.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	ImageRef string    `json:"image_ref,omitempty"`
	Packages []Package `json:"packages"`
}

// Handler answers console queries against the document store.
type Handler struct {
	store docstore.Store
}

func NewHandler(store docstore.Store) *Handler {
	return &Handler{store: store}
}

// AllOrders returns every order in the operator collection, newest
// first. This backs the admin board.
func (h *Handler) AllOrders(ctx context.Context) ([]order.Order, error) {
	return h.listOrders(ctx, order.Collection)
}

// CustomerOrders returns the given customer's own orders, newest
// first, read from the customer-scoped sub-collection.
func (h *Handler) CustomerOrders(ctx context.Context, customerID string) ([]order.Order, error) {
	return h.listOrders(ctx, order.CustomerCollection(customerID))
}

// TrackByNumber finds an order by its human-facing order number. A
// missing number is reported as order.ErrOrderNotFound; callers
// surface it, they do not retry.
func (h *Handler) TrackByNumber(ctx context.Context, number string) (*order.Order, error) {
	orders, err := h.listOrders(ctx, order.Collection)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].OrderNumber == number {
			return &orders[i], nil
		}
	}
	return nil, order.ErrOrderNotFound
}

// Products returns the catalog documents.
func (h *Handler) Products(ctx context.Context) ([]Product, error) {
	raws, err := h.store.List(ctx, ProductsCollection)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]Product, 0, len(raws))
	for _, raw := range raws {
		var p Product
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Printf("[Query] Skipping malformed product document: %v", err)
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (h *Handler) listOrders(ctx context.Context, collection string) ([]order.Order, error) {
	raws, err := h.store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	orders := make([]order.Order, 0, len(raws))
	for _, raw := range raws {
		var o order.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			log.Printf("[Query] Skipping malformed order document: %v", err)
			continue
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}
