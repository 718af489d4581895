package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/memstore"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/shopspring/decimal"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	envs   []orders.Envelope
}

func (p *capturePublisher) Publish(_ context.Context, topic string, env orders.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.envs = append(p.envs, env)
	return nil
}

type memIdempotency struct{ m map[string]string }

func (i *memIdempotency) Lookup(_ context.Context, key string) (string, bool, error) {
	id, ok := i.m[key]
	return id, ok, nil
}

func (i *memIdempotency) Remember(_ context.Context, key, orderID string) error {
	if i.m == nil {
		i.m = map[string]string{}
	}
	i.m[key] = orderID
	return nil
}

func newCheckout(t *testing.T) (*orders.Checkout, *memstore.Store, *capturePublisher) {
	t.Helper()
	st := memstore.New()
	tiers := []pricing.Tier{{MinQuantity: 5, UnitPrice: 900}, {MinQuantity: 10, UnitPrice: 800}}
	seed(t, st, []orders.Product{
		{ID: "A", Name: "Controller", BasePrice: 1000, PriceTiers: tiers, MinOrderQty: 1, Stock: intPtr(50)},
		{ID: "B", Name: "Headset", BasePrice: 1000, PriceTiers: tiers, MinOrderQty: 1},
		{ID: "M", Name: "Cable", BasePrice: 500, MinOrderQty: 3, Stock: intPtr(4)},
	}, orders.Order{})
	pub := &capturePublisher{}
	c := &orders.Checkout{
		Products:    st,
		Orders:      st,
		Settings:    orders.StoredSettings{Store: st},
		Rate:        decimal.NewFromInt(1450),
		Publisher:   pub,
		ServiceName: "test",
	}
	return c, st, pub
}

func validRequest(items ...orders.CartLine) orders.CheckoutRequest {
	return orders.CheckoutRequest{
		CustomerName: "Ali",
		Phone:        "0770 123 4567",
		Address:      "Baghdad, Karrada",
		Items:        items,
	}
}

func TestPlaceOrderCapturesTierPrices(t *testing.T) {
	c, st, pub := newCheckout(t)
	pl, err := c.PlaceOrder(context.Background(), validRequest(
		orders.CartLine{ProductID: "A", Quantity: 10},
		orders.CartLine{ProductID: "B", Quantity: 2},
	))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !pl.Persisted || pl.Order.Status != orders.StatusPending {
		t.Fatalf("placement: %+v", pl)
	}
	if pl.Order.Items[0].UnitPrice != 800 || pl.Order.Items[1].UnitPrice != 1000 {
		t.Fatalf("unit prices: %+v", pl.Order.Items)
	}
	if pl.Order.Total != 10*800+2*1000 {
		t.Fatalf("total: %d", pl.Order.Total)
	}
	if pl.Order.TotalUSD.StringFixed(2) != "6.90" {
		t.Fatalf("usd: %s", pl.Order.TotalUSD)
	}
	if pl.Order.Phone != "07701234567" {
		t.Fatalf("phone not normalized: %q", pl.Order.Phone)
	}
	saved, err := st.GetOrder(context.Background(), pl.Order.ID)
	if err != nil || saved.Total != pl.Order.Total {
		t.Fatalf("saved: %+v %v", saved, err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != orders.TopicOrderPlaced || pub.envs[0].EventType != orders.EventOrderPlaced {
		t.Fatalf("publish: %v", pub.topics)
	}
}

func TestPlaceOrderGlobalTieredPricing(t *testing.T) {
	c, st, _ := newCheckout(t)
	ctx := context.Background()
	if err := (orders.StoredSettings{Store: st}).SetBool(ctx, orders.SettingGlobalTieredPricing, true); err != nil {
		t.Fatalf("setting: %v", err)
	}
	pl, err := c.PlaceOrder(ctx, validRequest(
		orders.CartLine{ProductID: "A", Quantity: 3},
		orders.CartLine{ProductID: "B", Quantity: 3},
	))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	for _, it := range pl.Order.Items {
		if it.UnitPrice != 900 {
			t.Fatalf("combined quantity 6 should unlock 900 for %s, got %d", it.ProductID, it.UnitPrice)
		}
	}
}

func TestPlaceOrderMergesDuplicateLines(t *testing.T) {
	c, _, _ := newCheckout(t)
	pl, err := c.PlaceOrder(context.Background(), validRequest(
		orders.CartLine{ProductID: "A", Quantity: 3},
		orders.CartLine{ProductID: "A", Quantity: 2},
	))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if len(pl.Order.Items) != 1 || pl.Order.Items[0].Quantity != 5 || pl.Order.Items[0].UnitPrice != 900 {
		t.Fatalf("items: %+v", pl.Order.Items)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	c, st, pub := newCheckout(t)
	bad := validRequest(orders.CartLine{ProductID: "A", Quantity: 1})
	bad.Phone = "12345"

	noName := validRequest(orders.CartLine{ProductID: "A", Quantity: 1})
	noName.CustomerName = " "

	cases := map[string]orders.CheckoutRequest{
		"bad phone":     bad,
		"no name":       noName,
		"empty cart":    validRequest(),
		"zero quantity": validRequest(orders.CartLine{ProductID: "A", Quantity: 0}),
		"unknown":       validRequest(orders.CartLine{ProductID: "Z", Quantity: 1}),
		"below moq":     validRequest(orders.CartLine{ProductID: "M", Quantity: 2}),
		"above stock":   validRequest(orders.CartLine{ProductID: "M", Quantity: 5}),
		"above stock A": validRequest(orders.CartLine{ProductID: "A", Quantity: 51}),
	}
	for name, req := range cases {
		_, err := c.PlaceOrder(context.Background(), req)
		if !errx.Is(err, errx.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	list, _ := st.ListOrders(context.Background(), 10)
	if len(list) != 0 || len(pub.envs) != 0 {
		t.Fatalf("rejected checkouts must not create or announce orders")
	}
}

func TestPlaceOrderPersistenceFailureStillSucceeds(t *testing.T) {
	c, st, pub := newCheckout(t)
	st.FailCreateOrder = func(orders.Order) error { return errors.New("db down") }
	pl, err := c.PlaceOrder(context.Background(), validRequest(orders.CartLine{ProductID: "A", Quantity: 1}))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if pl.Persisted {
		t.Fatalf("placement should report not persisted")
	}
	if len(pub.envs) != 1 {
		t.Fatalf("order should still be announced")
	}
}

func TestPlaceOrderIdempotencyKey(t *testing.T) {
	c, st, _ := newCheckout(t)
	c.Idempotency = &memIdempotency{}
	req := validRequest(orders.CartLine{ProductID: "A", Quantity: 1})
	req.IdempotencyKey = "cart-123"

	first, err := c.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := c.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Replayed || second.Order.ID != first.Order.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Order.ID, second)
	}
	list, _ := st.ListOrders(context.Background(), 10)
	if len(list) != 1 {
		t.Fatalf("orders stored: %d", len(list))
	}
}

func TestValidPhone(t *testing.T) {
	good := []string{"07701234567", "0770 123 4567", "+9647701234567", "009647701234567", "7701234567"}
	bad := []string{"", "0770123456", "+9647701234", "08701234567x", "abc"}
	for _, p := range good {
		if !orders.ValidPhone(p) {
			t.Fatalf("%q should be valid", p)
		}
	}
	for _, p := range bad {
		if orders.ValidPhone(p) {
			t.Fatalf("%q should be invalid", p)
		}
	}
}

func TestPlaceOrderRejectsOversizedQuantities(t *testing.T) {
	c, st, pub := newCheckout(t)
	ctx := context.Background()
	if err := st.CreateProduct(ctx, &orders.Product{ID: "X", Name: "Console", BasePrice: 1 << 40, MinOrderQty: 1}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := map[string]orders.CheckoutRequest{
		"line above cap":       validRequest(orders.CartLine{ProductID: "B", Quantity: 1 << 62}),
		"merged lines exceed":  validRequest(orders.CartLine{ProductID: "B", Quantity: pricing.MaxQuantity}, orders.CartLine{ProductID: "B", Quantity: 1}),
		"basket units exceed":  validRequest(orders.CartLine{ProductID: "A", Quantity: 1}, orders.CartLine{ProductID: "B", Quantity: pricing.MaxQuantity}),
		"line total overflows": validRequest(orders.CartLine{ProductID: "X", Quantity: pricing.MaxQuantity}),
	}
	for name, req := range cases {
		pl, err := c.PlaceOrder(ctx, req)
		if !errx.Is(err, errx.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v (total %d)", name, err, pl.Order.Total)
		}
	}
	list, _ := st.ListOrders(ctx, 10)
	if len(list) != 0 || len(pub.envs) != 0 {
		t.Fatalf("oversized orders must not be stored or announced")
	}

	pl, err := c.PlaceOrder(ctx, validRequest(orders.CartLine{ProductID: "B", Quantity: pricing.MaxQuantity}))
	if err != nil {
		t.Fatalf("largest allowed quantity: %v", err)
	}
	if want := int64(pricing.MaxQuantity) * 800; pl.Order.Total != want {
		t.Fatalf("total: got %d want %d", pl.Order.Total, want)
	}
}

func TestPlaceOrderConcurrentSameKeyReplays(t *testing.T) {
	c, st, pub := newCheckout(t)
	req := validRequest(orders.CartLine{ProductID: "A", Quantity: 1})
	req.IdempotencyKey = "cart-race"

	const n = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pl, err := c.PlaceOrder(context.Background(), req)
			if err != nil || !pl.Persisted {
				t.Errorf("place: %+v %v", pl, err)
				return
			}
			mu.Lock()
			ids[pl.Order.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Fatalf("all callers should see one order, got %v", ids)
	}
	list, _ := st.ListOrders(context.Background(), 10)
	if len(list) != 1 {
		t.Fatalf("orders stored: %d", len(list))
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.envs) != 1 {
		t.Fatalf("order should be announced once, got %d", len(pub.envs))
	}
}
