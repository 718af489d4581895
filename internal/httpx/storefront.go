package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

type ProductReader interface {
	ListProducts(ctx context.Context) ([]orders.Product, error)
	GetProduct(ctx context.Context, id string) (orders.Product, error)
}

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (orders.Order, error)
}

type CheckoutService interface {
	Quote(ctx context.Context, lines []orders.CartLine) (orders.Quote, error)
	PlaceOrder(ctx context.Context, req orders.CheckoutRequest) (orders.Placement, error)
}

// StatusLookup is the read side of the order status cache.
type StatusLookup interface {
	GetStatus(ctx context.Context, orderID string) (orders.Status, bool, error)
	SetStatus(ctx context.Context, orderID string, s orders.Status) error
}

type StorefrontHandler struct {
	Products ProductReader
	Orders   OrderReader
	Checkout CheckoutService
	Rate     decimal.Decimal
	Cache    StatusLookup // optional
}

func (h *StorefrontHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/price", h.productPrice)
	r.Post("/cart/quote", h.quote)
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}/status", h.orderStatus)
}

func loadProduct(ctx context.Context, products ProductReader, id string) (orders.Product, error) {
	p, err := products.GetProduct(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Product{}, errx.NotFound("product not found: %s", id)
	}
	if err != nil {
		return orders.Product{}, errx.Persistence(err, "load product")
	}
	return p, nil
}

func (h *StorefrontHandler) listProducts(w http.ResponseWriter, r *http.Request) {
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

func (h *StorefrontHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := loadProduct(r.Context(), h.Products, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type priceResp struct {
	ProductID   string          `json:"product_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   int64           `json:"unit_price"`
	BasePrice   int64           `json:"base_price"`
	Total       int64           `json:"total"`
	TotalUSD    decimal.Decimal `json:"total_usd"`
	MinOrderQty int             `json:"min_order_qty"`
}

// productPrice shows what a quantity of one product would cost on its own.
// qty defaults to the product's minimum order quantity.
func (h *StorefrontHandler) productPrice(w http.ResponseWriter, r *http.Request) {
	p, err := loadProduct(r.Context(), h.Products, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	qty, err := intQuery(r, "qty", p.MinQty())
	if err != nil {
		writeError(w, r, err)
		return
	}
	unit := p.UnitPriceFor(qty)
	total := unit * int64(qty)
	writeJSON(w, http.StatusOK, priceResp{
		ProductID:   p.ID,
		Quantity:    qty,
		UnitPrice:   unit,
		BasePrice:   p.BasePrice,
		Total:       total,
		TotalUSD:    pricing.ToReference(total, h.Rate),
		MinOrderQty: p.MinQty(),
	})
}

type quoteReq struct {
	Items []orders.CartLine `json:"items"`
}

func (h *StorefrontHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.Checkout.Quote(r.Context(), req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type placeOrderResp struct {
	Success   bool            `json:"success"`
	OrderID   string          `json:"order_id"`
	Status    orders.Status   `json:"status"`
	Total     int64           `json:"total"`
	TotalUSD  decimal.Decimal `json:"total_usd"`
	Persisted bool            `json:"persisted"`
	Replayed  bool            `json:"replayed"`
	Warning   string          `json:"warning,omitempty"`
}

func (h *StorefrontHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	req.TraceID = middleware.GetReqID(r.Context())

	pl, err := h.Checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := placeOrderResp{
		Success:   true,
		OrderID:   pl.Order.ID,
		Status:    pl.Order.Status,
		Total:     pl.Order.Total,
		TotalUSD:  pl.Order.TotalUSD,
		Persisted: pl.Persisted,
		Replayed:  pl.Replayed,
	}
	code := http.StatusCreated
	switch {
	case pl.Replayed:
		code = http.StatusOK
	case !pl.Persisted:
		resp.Warning = "order received but not yet recorded"
		code = http.StatusAccepted
	}
	writeJSON(w, code, resp)
}

type statusResp struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
}

func (h *StorefrontHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if h.Cache != nil {
		if s, ok, err := h.Cache.GetStatus(ctx, id); err == nil && ok {
			writeJSON(w, http.StatusOK, statusResp{OrderID: id, Status: s})
			return
		} else if err != nil {
			logx.Warn().Err(err).Str("order_id", id).Msg("status cache read failed")
		}
	}

	o, err := h.Orders.GetOrder(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, r, errx.NotFound("order not found: %s", id))
		return
	}
	if err != nil {
		writeError(w, r, errx.Persistence(err, "load order"))
		return
	}
	if h.Cache != nil {
		if err := h.Cache.SetStatus(ctx, id, o.Status); err != nil {
			logx.Warn().Err(err).Str("order_id", id).Msg("status cache fill failed")
		}
	}
	writeJSON(w, http.StatusOK, statusResp{OrderID: id, Status: o.Status})
}
