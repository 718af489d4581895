package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront-orders/internal/memstore"
	"github.com/ariefcatur/go-storefront-orders/internal/notify"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type fakeBot struct {
	mu      sync.Mutex
	answers []string
	alerts  []bool
	edits   []string
	kbs     []*notify.InlineKeyboardMarkup
}

func (b *fakeBot) AnswerCallbackQuery(_ context.Context, _ string, text string, alert bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answers = append(b.answers, text)
	b.alerts = append(b.alerts, alert)
	return nil
}

func (b *fakeBot) EditMessageText(_ context.Context, _ string, _ int64, text string, kb *notify.InlineKeyboardMarkup) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edits = append(b.edits, text)
	b.kbs = append(b.kbs, kb)
	return nil
}

type testApp struct {
	router *chi.Mux
	store  *memstore.Store
	bot    *fakeBot
}

func intPtr(n int) *int { return &n }

func setup(t *testing.T, token string) *testApp {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	for _, p := range []orders.Product{
		{ID: "ctl", Name: "Controller", BasePrice: 1000, MinOrderQty: 1, Stock: intPtr(10),
			PriceTiers: []pricing.Tier{{MinQuantity: 5, UnitPrice: 900}}},
		{ID: "cbl", Name: "Cable", BasePrice: 500, MinOrderQty: 2},
	} {
		if err := st.CreateProduct(ctx, &p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	settings := orders.StoredSettings{Store: st}
	checkout := &orders.Checkout{
		Products: st,
		Orders:   st,
		Settings: settings,
		Rate:     decimal.NewFromInt(1450),
	}
	rec := orders.NewReconciler(st, nil)
	bot := &fakeBot{}

	r := NewRouter()
	(&StorefrontHandler{Products: st, Orders: st, Checkout: checkout, Rate: decimal.NewFromInt(1450)}).Register(r)
	(&AdminHandler{Products: st, Orders: st, Reconciler: rec, Settings: settings, Token: token}).Register(r)
	(&TelegramWebhook{Bot: bot, ChatID: "42", Reconciler: rec}).Register(r)
	return &testApp{router: r, store: st, bot: bot}
}

func (a *testApp) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func placeOrder(t *testing.T, a *testApp, qty int) string {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/orders", map[string]any{
		"customer_name": "Ali",
		"phone":         "07701234567",
		"address":       "Basra",
		"items":         []map[string]any{{"product_id": "ctl", "quantity": qty}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("place order: %d %s", rr.Code, rr.Body.String())
	}
	return decode[placeOrderResp](t, rr).OrderID
}

func TestHealthz(t *testing.T) {
	a := setup(t, "")
	if rr := a.do(t, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestCatalogRoutes(t *testing.T) {
	a := setup(t, "")
	rr := a.do(t, http.MethodGet, "/products", nil)
	if rr.Code != http.StatusOK || len(decode[[]orders.Product](t, rr)) != 2 {
		t.Fatalf("list: %d %s", rr.Code, rr.Body.String())
	}
	if rr := a.do(t, http.MethodGet, "/products/nope", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing product: %d", rr.Code)
	}

	rr = a.do(t, http.MethodGet, "/products/ctl/price?qty=6", nil)
	pr := decode[priceResp](t, rr)
	if pr.UnitPrice != 900 || pr.Total != 5400 || pr.TotalUSD.StringFixed(2) != "3.72" {
		t.Fatalf("price: %+v", pr)
	}
	rr = a.do(t, http.MethodGet, "/products/cbl/price", nil)
	if pr := decode[priceResp](t, rr); pr.Quantity != 2 || pr.Total != 1000 {
		t.Fatalf("default qty should be the minimum: %+v", pr)
	}
	if rr := a.do(t, http.MethodGet, "/products/ctl/price?qty=0", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad qty: %d", rr.Code)
	}
}

func TestQuote(t *testing.T) {
	a := setup(t, "")
	rr := a.do(t, http.MethodPost, "/cart/quote", map[string]any{
		"items": []map[string]any{{"product_id": "ctl", "quantity": 5}, {"product_id": "cbl", "quantity": 2}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("quote: %d %s", rr.Code, rr.Body.String())
	}
	q := decode[orders.Quote](t, rr)
	if q.Total != 5*900+2*500 {
		t.Fatalf("total: %d", q.Total)
	}
	rr = a.do(t, http.MethodPost, "/cart/quote", map[string]any{
		"items": []map[string]any{{"product_id": "cbl", "quantity": 1}},
	})
	if rr.Code != http.StatusBadRequest || decode[errorBody](t, rr).Kind != "validation" {
		t.Fatalf("moq: %d %s", rr.Code, rr.Body.String())
	}
}

func TestPlaceOrderAndStatus(t *testing.T) {
	a := setup(t, "")
	id := placeOrder(t, a, 2)

	rr := a.do(t, http.MethodGet, "/orders/"+id+"/status", nil)
	if st := decode[statusResp](t, rr); st.Status != orders.StatusPending {
		t.Fatalf("status: %+v", st)
	}
	if rr := a.do(t, http.MethodGet, "/orders/unknown/status", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown order: %d", rr.Code)
	}

	rr = a.do(t, http.MethodPost, "/orders", `{"customer_name":"Ali","phone":"123","address":"x","items":[{"product_id":"ctl","quantity":1}]}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(decode[errorBody](t, rr).Error, "phone") {
		t.Fatalf("bad phone: %d %s", rr.Code, rr.Body.String())
	}
	if rr := a.do(t, http.MethodPost, "/orders", `{`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rr.Code)
	}
}

func TestPlaceOrderUnsavedIsAccepted(t *testing.T) {
	a := setup(t, "")
	a.store.FailCreateOrder = func(orders.Order) error { return context.DeadlineExceeded }
	rr := a.do(t, http.MethodPost, "/orders", map[string]any{
		"customer_name": "Ali", "phone": "07701234567", "address": "Basra",
		"items": []map[string]any{{"product_id": "ctl", "quantity": 1}},
	})
	resp := decode[placeOrderResp](t, rr)
	if rr.Code != http.StatusAccepted || !resp.Success || resp.Persisted || resp.Warning == "" {
		t.Fatalf("unsaved order: %d %+v", rr.Code, resp)
	}
}

func TestAdminTokenRequired(t *testing.T) {
	a := setup(t, "s3cret")
	if rr := a.do(t, http.MethodGet, "/admin/orders", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rr.Code)
	}
	if rr := a.do(t, http.MethodGet, "/admin/orders", nil, "Authorization", "Bearer wrong"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: %d", rr.Code)
	}
	if rr := a.do(t, http.MethodGet, "/admin/orders", nil, "Authorization", "Bearer s3cret"); rr.Code != http.StatusOK {
		t.Fatalf("good token: %d", rr.Code)
	}
	if rr := a.do(t, http.MethodGet, "/products", nil); rr.Code != http.StatusOK {
		t.Fatalf("storefront must stay public: %d", rr.Code)
	}
}

func TestAdminProductLifecycle(t *testing.T) {
	a := setup(t, "")
	rr := a.do(t, http.MethodPost, "/admin/products", map[string]any{
		"name": "Headset", "base_price": 30000, "stock": 3,
		"price_tiers": []map[string]any{{"min_qty": 10, "unit_price": 25000}, {"min_qty": 3, "unit_price": 28000}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	p := decode[orders.Product](t, rr)
	if p.ID == "" || p.MinOrderQty != 1 || p.PriceTiers[0].MinQuantity != 3 {
		t.Fatalf("created: %+v", p)
	}

	rr = a.do(t, http.MethodPost, "/admin/products", map[string]any{
		"name": "Bad", "base_price": 100, "price_tiers": []map[string]any{{"min_qty": 2, "unit_price": 150}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("tier above base: %d", rr.Code)
	}

	rr = a.do(t, http.MethodPut, "/admin/products/"+p.ID, map[string]any{"name": "Headset Pro", "base_price": 32000, "stock": 5})
	if rr.Code != http.StatusOK || decode[orders.Product](t, rr).Name != "Headset Pro" {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}
	if rr := a.do(t, http.MethodPut, "/admin/products/ghost", map[string]any{"name": "x", "base_price": 1}); rr.Code != http.StatusNotFound {
		t.Fatalf("update missing: %d", rr.Code)
	}
	if rr := a.do(t, http.MethodDelete, "/admin/products/"+p.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := a.do(t, http.MethodDelete, "/admin/products/"+p.ID, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("delete twice: %d", rr.Code)
	}
}

func TestAdminStatusTransitionsMoveStock(t *testing.T) {
	a := setup(t, "")
	id := placeOrder(t, a, 3)
	ctx := context.Background()

	rr := a.do(t, http.MethodPost, "/admin/orders/"+id+"/status", map[string]string{"status": "Confirmed"})
	if rr.Code != http.StatusOK || !decode[orders.Outcome](t, rr).Changed {
		t.Fatalf("confirm: %d %s", rr.Code, rr.Body.String())
	}
	p, _ := a.store.GetProduct(ctx, "ctl")
	if *p.Stock != 7 || p.SoldCount != 3 {
		t.Fatalf("after confirm: stock %d sold %d", *p.Stock, p.SoldCount)
	}

	rr = a.do(t, http.MethodPost, "/admin/orders/"+id+"/status", map[string]string{"status": "confirmed"})
	if out := decode[orders.Outcome](t, rr); out.Changed || out.Message == "" {
		t.Fatalf("repeat should be a no-op: %+v", out)
	}

	if rr := a.do(t, http.MethodPost, "/admin/orders/"+id+"/status", map[string]string{"status": "lost"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: %d", rr.Code)
	}
	if rr := a.do(t, http.MethodPost, "/admin/orders/ghost/status", map[string]string{"status": "shipped"}); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown order: %d", rr.Code)
	}

	a.do(t, http.MethodPost, "/admin/orders/"+id+"/status", map[string]string{"status": "cancelled"})
	p, _ = a.store.GetProduct(ctx, "ctl")
	if *p.Stock != 10 || p.SoldCount != 0 {
		t.Fatalf("after cancel: stock %d sold %d", *p.Stock, p.SoldCount)
	}
}

func TestAdminOrders(t *testing.T) {
	a := setup(t, "")
	id := placeOrder(t, a, 1)
	if rr := a.do(t, http.MethodGet, "/admin/orders?limit=10", nil); len(decode[[]orders.Order](t, rr)) != 1 {
		t.Fatalf("list: %s", rr.Body.String())
	}
	if rr := a.do(t, http.MethodGet, "/admin/orders/"+id, nil); decode[orders.Order](t, rr).ID != id {
		t.Fatalf("get: %s", rr.Body.String())
	}
	if rr := a.do(t, http.MethodDelete, "/admin/orders/"+id, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := a.do(t, http.MethodGet, "/admin/orders/"+id, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", rr.Code)
	}
}

func TestGlobalTieredPricingSetting(t *testing.T) {
	a := setup(t, "")
	if rr := a.do(t, http.MethodGet, "/admin/settings/global-tiered-pricing", nil); decode[toggle](t, rr).Enabled {
		t.Fatalf("default should be off")
	}
	if rr := a.do(t, http.MethodPut, "/admin/settings/global-tiered-pricing", toggle{Enabled: true}); rr.Code != http.StatusOK {
		t.Fatalf("put: %d", rr.Code)
	}
	// 3 controllers + 2 cables = 5 units unlocks the controller's 900 tier.
	rr := a.do(t, http.MethodPost, "/cart/quote", map[string]any{
		"items": []map[string]any{{"product_id": "ctl", "quantity": 3}, {"product_id": "cbl", "quantity": 2}},
	})
	if q := decode[orders.Quote](t, rr); q.Total != 3*900+2*500 || !q.Global {
		t.Fatalf("global quote: %+v", q)
	}
}

func callback(chatID int64, data string) map[string]any {
	return map[string]any{
		"update_id": 1,
		"callback_query": map[string]any{
			"id":   "cb1",
			"data": data,
			"message": map[string]any{
				"message_id": 9,
				"text":       "New order <Ali>",
				"chat":       map[string]any{"id": chatID},
			},
		},
	}
}

func TestTelegramWebhookConfirms(t *testing.T) {
	a := setup(t, "")
	id := placeOrder(t, a, 2)

	rr := a.do(t, http.MethodPost, "/telegram/webhook", callback(42, "confirm_"+id))
	if rr.Code != http.StatusOK || !decode[map[string]bool](t, rr)["ok"] {
		t.Fatalf("webhook: %d %s", rr.Code, rr.Body.String())
	}
	o, _ := a.store.GetOrder(context.Background(), id)
	if o.Status != orders.StatusConfirmed {
		t.Fatalf("status: %s", o.Status)
	}
	if len(a.bot.answers) != 1 || a.bot.alerts[0] || !strings.Contains(a.bot.answers[0], "Confirmed") {
		t.Fatalf("answers: %v", a.bot.answers)
	}
	if len(a.bot.edits) != 1 || !strings.HasPrefix(a.bot.edits[0], "New order &lt;Ali&gt;") ||
		!strings.Contains(a.bot.edits[0], "✅ CONFIRMED") || len(a.bot.kbs[0].InlineKeyboard) != 0 {
		t.Fatalf("edit: %v", a.bot.edits)
	}
}

func TestTelegramWebhookRejectsOtherChats(t *testing.T) {
	a := setup(t, "")
	id := placeOrder(t, a, 1)
	rr := a.do(t, http.MethodPost, "/telegram/webhook", callback(7, "confirm_"+id))
	if rr.Code != http.StatusOK {
		t.Fatalf("webhook must always ack: %d", rr.Code)
	}
	o, _ := a.store.GetOrder(context.Background(), id)
	if o.Status != orders.StatusPending || len(a.bot.answers) != 0 {
		t.Fatalf("foreign chat must not change anything")
	}
}

func TestTelegramWebhookReportsErrors(t *testing.T) {
	a := setup(t, "")
	rr := a.do(t, http.MethodPost, "/telegram/webhook", callback(42, "cancel_ghost"))
	if rr.Code != http.StatusOK {
		t.Fatalf("webhook must always ack: %d", rr.Code)
	}
	if len(a.bot.answers) != 1 || !a.bot.alerts[0] || !strings.HasPrefix(a.bot.answers[0], "❌ Error: order not found") {
		t.Fatalf("answers: %v", a.bot.answers)
	}
	if len(a.bot.edits) != 0 {
		t.Fatalf("failed actions must not edit the message")
	}

	for _, body := range []any{`{`, map[string]any{"update_id": 2}} {
		if rr := a.do(t, http.MethodPost, "/telegram/webhook", body); rr.Code != http.StatusOK {
			t.Fatalf("ignored update: %d", rr.Code)
		}
	}
}
