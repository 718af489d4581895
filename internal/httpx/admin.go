package httpx

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/go-chi/chi/v5"
)

type Transitioner interface {
	Transition(ctx context.Context, orderID string, to orders.Status) (orders.Outcome, error)
}

type SettingsSwitch interface {
	Bool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, v bool) error
}

type AdminHandler struct {
	Products   orders.ProductStore
	Orders     orders.OrderStore
	Reconciler Transitioner
	Settings   SettingsSwitch
	// Token guards /admin with a bearer token when non-empty.
	Token string
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireToken)

		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)

		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Delete("/orders/{id}", h.deleteOrder)
		r.Post("/orders/{id}/status", h.setStatus)

		r.Get("/settings/global-tiered-pricing", h.getGlobalTiers)
		r.Put("/settings/global-tiered-pricing", h.putGlobalTiers)
	})
}

func (h *AdminHandler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) != 1 {
			writeError(w, r, errx.Unauthorized("admin token required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type productInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url"`
	BasePrice   int64          `json:"base_price"`
	PriceTiers  []pricing.Tier `json:"price_tiers"`
	MinOrderQty int            `json:"min_order_qty"`
	Stock       *int           `json:"stock"`
	SoldCount   int            `json:"sold_count"`
}

func (in productInput) product(id string) orders.Product {
	p := orders.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		BasePrice:   in.BasePrice,
		PriceTiers:  pricing.Sorted(in.PriceTiers),
		MinOrderQty: in.MinOrderQty,
		Stock:       in.Stock,
		SoldCount:   in.SoldCount,
	}
	if p.MinOrderQty == 0 {
		p.MinOrderQty = 1
	}
	return p
}

func (h *AdminHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Products.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, errx.Persistence(err, "list products"))
		return
	}
	if ps == nil {
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p := in.product("")
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Products.CreateProduct(r.Context(), &p); err != nil {
		if errors.Is(err, orders.ErrAlreadyExists) {
			writeError(w, r, errx.New(errx.KindConflict, err, "product already exists"))
			return
		}
		writeError(w, r, errx.Persistence(err, "create product"))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	p := in.product(id)
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Products.UpdateProduct(r.Context(), &p); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, r, errx.NotFound("product not found: %s", id))
			return
		}
		writeError(w, r, errx.Persistence(err, "update product"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Products.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, r, errx.NotFound("product not found: %s", id))
			return
		}
		writeError(w, r, errx.Persistence(err, "delete product"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Orders.ListOrders(r.Context(), min(limit, 500))
	if err != nil {
		writeError(w, r, errx.Persistence(err, "list orders"))
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.Orders.GetOrder(r.Context(), id)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, r, errx.NotFound("order not found: %s", id))
		return
	}
	if err != nil {
		writeError(w, r, errx.Persistence(err, "load order"))
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Orders.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, r, errx.NotFound("order not found: %s", id))
			return
		}
		writeError(w, r, errx.Persistence(err, "delete order"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Reconciler.Transition(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type toggle struct {
	Enabled bool `json:"enabled"`
}

func (h *AdminHandler) getGlobalTiers(w http.ResponseWriter, r *http.Request) {
	on, err := h.Settings.Bool(r.Context(), orders.SettingGlobalTieredPricing)
	if err != nil {
		writeError(w, r, errx.Persistence(err, "read setting"))
		return
	}
	writeJSON(w, http.StatusOK, toggle{Enabled: on})
}

func (h *AdminHandler) putGlobalTiers(w http.ResponseWriter, r *http.Request) {
	var t toggle
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Settings.SetBool(r.Context(), orders.SettingGlobalTieredPricing, t.Enabled); err != nil {
		writeError(w, r, errx.Persistence(err, "write setting"))
		return
	}
	writeJSON(w, http.StatusOK, t)
}
