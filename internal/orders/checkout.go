package orders

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Iraqi mobile numbers: 07XXXXXXXXX, 9647XXXXXXXXX with 00 or + prefix, or
// the bare 7XXXXXXXXX form.
var phonePattern = regexp.MustCompile(`^(07|009647|\+9647|7)\d{9}$`)

func NormalizePhone(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func ValidPhone(s string) bool {
	return phonePattern.MatchString(NormalizePhone(s))
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	IdempotencyKey string     `json:"-"`
	TraceID        string     `json:"-"`
	CustomerName   string     `json:"customer_name"`
	Phone          string     `json:"phone"`
	Address        string     `json:"address"`
	Items          []CartLine `json:"items"`
}

// Quote is a priced basket ready to be captured into an order.
type Quote struct {
	pricing.Quote
	Items    []OrderItem     `json:"items"`
	TotalUSD decimal.Decimal `json:"total_usd"`
}

type Placement struct {
	Order     Order `json:"order"`
	Persisted bool  `json:"persisted"`
	Replayed  bool  `json:"replayed"`
}

// Idempotency remembers which order a checkout key produced.
type Idempotency interface {
	Lookup(ctx context.Context, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, key, orderID string) error
}

type Checkout struct {
	Products ProductStore
	Orders   OrderStore
	Settings Settings
	Rate     decimal.Decimal // IQD per USD

	// Optional.
	Idempotency Idempotency
	Publisher   Publisher
	Cache       StatusCache
	ServiceName string
	Now         func() time.Time
}

func (c *Checkout) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Checkout) globalTiers(ctx context.Context) bool {
	if c.Settings == nil {
		return false
	}
	on, err := c.Settings.Bool(ctx, SettingGlobalTieredPricing)
	if err != nil {
		logx.Warn().Err(err).Msg("global tiered pricing setting unreadable, using per-line pricing")
		return false
	}
	return on
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, errx.Validation("cart is empty")
	}
	idx := make(map[string]int, len(lines))
	out := make([]CartLine, 0, len(lines))
	units := 0
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, errx.Validation("product id is required")
		}
		if l.Quantity < 1 {
			return nil, errx.Validation("quantity for product %s must be >= 1", l.ProductID)
		}
		if l.Quantity > pricing.MaxQuantity-units {
			return nil, errx.Validation("cart may hold at most %d units", pricing.MaxQuantity)
		}
		units += l.Quantity
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// Quote validates the basket against the catalog and prices it.
func (c *Checkout) Quote(ctx context.Context, lines []CartLine) (Quote, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return Quote{}, err
	}
	ids := make([]string, 0, len(merged))
	for _, l := range merged {
		ids = append(ids, l.ProductID)
	}
	products, err := c.Products.GetProducts(ctx, ids)
	if err != nil {
		return Quote{}, errx.Persistence(err, "load products")
	}

	pl := make([]pricing.Line, 0, len(merged))
	for _, l := range merged {
		p, ok := products[l.ProductID]
		if !ok {
			return Quote{}, errx.Validation("product not found: %s", l.ProductID)
		}
		if l.Quantity < p.MinQty() {
			return Quote{}, errx.Validation("minimum order quantity for %s is %d units", p.Name, p.MinQty())
		}
		if p.Stock != nil && l.Quantity > *p.Stock {
			return Quote{}, errx.Validation("only %d units of %s in stock", *p.Stock, p.Name)
		}
		pl = append(pl, pricing.Line{ProductID: p.ID, Quantity: l.Quantity, BasePrice: p.BasePrice, Tiers: p.PriceTiers})
	}

	pq := pricing.QuoteBasket(pl, c.globalTiers(ctx))
	if pq.Overflow {
		return Quote{}, errx.Validation("order total is too large")
	}
	q := Quote{Quote: pq, Items: make([]OrderItem, 0, len(pq.Lines))}
	for _, line := range pq.Lines {
		q.Items = append(q.Items, OrderItem{
			ProductID: line.ProductID,
			Name:      products[line.ProductID].Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	q.TotalUSD = pricing.ToReference(pq.Total, c.Rate)
	return q, nil
}

func validateCustomer(req CheckoutRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return errx.Validation("customer name is required")
	}
	if strings.TrimSpace(req.Address) == "" {
		return errx.Validation("address is required")
	}
	if !ValidPhone(req.Phone) {
		return errx.Validation("invalid Iraqi phone number")
	}
	return nil
}

// PlaceOrder validates, prices and records a pending order. Validation
// problems are returned as errors and nothing is stored. A storage failure
// is logged and the placement still succeeds with Persisted=false.
func (c *Checkout) PlaceOrder(ctx context.Context, req CheckoutRequest) (Placement, error) {
	if err := validateCustomer(req); err != nil {
		return Placement{}, err
	}

	if c.Idempotency != nil && req.IdempotencyKey != "" {
		id, ok, err := c.Idempotency.Lookup(ctx, req.IdempotencyKey)
		if err != nil {
			logx.Warn().Err(err).Msg("idempotency lookup failed")
		}
		if ok {
			if o, err := c.Orders.GetOrder(ctx, id); err == nil {
				return Placement{Order: o, Persisted: true, Replayed: true}, nil
			}
		}
	}

	q, err := c.Quote(ctx, req.Items)
	if err != nil {
		return Placement{}, err
	}

	now := c.now()
	o := Order{
		ID:             uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		Phone:          NormalizePhone(req.Phone),
		Address:        strings.TrimSpace(req.Address),
		Items:          q.Items,
		Total:          q.Total,
		TotalUSD:       q.TotalUSD,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	pl := Placement{Order: o}
	if err := c.Orders.CreateOrder(ctx, &o); err != nil {
		if prev, ok := c.concurrentReplay(ctx, req.IdempotencyKey, err); ok {
			return prev, nil
		}
		logx.Error().Err(err).Bool("critical", true).Str("order_id", o.ID).Msg("order not saved")
	} else {
		pl.Order = o
		pl.Persisted = true
		c.remember(ctx, req.IdempotencyKey, o)
	}

	c.announce(ctx, req.TraceID, pl)
	return pl, nil
}

// concurrentReplay handles a create that lost the race for its idempotency
// key: the winner's order is returned as a replay instead of being reported
// as a storage failure.
func (c *Checkout) concurrentReplay(ctx context.Context, key string, createErr error) (Placement, bool) {
	if key == "" || !errors.Is(createErr, ErrAlreadyExists) {
		return Placement{}, false
	}
	prev, err := c.Orders.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		logx.Warn().Err(err).Str("idempotency_key", key).Msg("idempotent replay lookup failed")
		return Placement{}, false
	}
	c.remember(ctx, key, prev)
	return Placement{Order: prev, Persisted: true, Replayed: true}, true
}

func (c *Checkout) remember(ctx context.Context, key string, o Order) {
	if c.Idempotency != nil && key != "" {
		if err := c.Idempotency.Remember(ctx, key, o.ID); err != nil {
			logx.Warn().Err(err).Str("order_id", o.ID).Msg("idempotency remember failed")
		}
	}
	if c.Cache != nil {
		if err := c.Cache.SetStatus(ctx, o.ID, o.Status); err != nil {
			logx.Warn().Err(err).Str("order_id", o.ID).Msg("status cache set failed")
		}
	}
}

func (c *Checkout) announce(ctx context.Context, traceID string, pl Placement) {
	if c.Publisher == nil {
		return
	}
	o := pl.Order
	env := NewEnvelope(EventOrderPlaced, c.ServiceName, traceID, o.ID, OrderPlacedPayload{
		OrderID:      o.ID,
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Address:      o.Address,
		Items:        o.Items,
		Total:        o.Total,
		TotalUSD:     o.TotalUSD,
		Persisted:    pl.Persisted,
		PlacedAt:     o.CreatedAt,
	})
	if err := c.Publisher.Publish(ctx, TopicOrderPlaced, env); err != nil {
		logx.Warn().Err(err).Str("order_id", o.ID).Msg("publish order placed failed")
	}
}
