package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
)

func intPtr(n int) *int { return &n }

func TestProductsAreCopiedInAndOut(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := orders.Product{Name: "Pad", BasePrice: 100, MinOrderQty: 1, Stock: intPtr(5),
		PriceTiers: []pricing.Tier{{MinQuantity: 2, UnitPrice: 90}}}
	if err := s.CreateProduct(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("id and timestamps should be assigned: %+v", p)
	}
	*p.Stock = 99
	p.PriceTiers[0].UnitPrice = 1

	got, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got.Stock != 5 || got.PriceTiers[0].UnitPrice != 90 {
		t.Fatalf("caller mutation leaked into the store: %+v", got)
	}
	if err := s.CreateProduct(ctx, &orders.Product{ID: p.ID, Name: "dup"}); !errors.Is(err, orders.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUpdateProductKeepsSoldCount(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := orders.Product{ID: "p", Name: "Pad", BasePrice: 100, MinOrderQty: 1, Stock: intPtr(5)}
	_ = s.CreateProduct(ctx, &p)
	if _, err := s.AdjustInventory(ctx, "p", orders.InventoryDelta{Stock: -2, SoldCount: 2}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	upd := orders.Product{ID: "p", Name: "Pad 2", BasePrice: 120, MinOrderQty: 1, Stock: intPtr(10)}
	if err := s.UpdateProduct(ctx, &upd); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetProduct(ctx, "p")
	if got.SoldCount != 2 || *got.Stock != 10 || got.Name != "Pad 2" {
		t.Fatalf("got %+v", got)
	}
	if err := s.UpdateProduct(ctx, &orders.Product{ID: "ghost"}); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustInventoryUnlimitedStock(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.CreateProduct(ctx, &orders.Product{ID: "u", Name: "Gift card", MinOrderQty: 1})
	got, err := s.AdjustInventory(ctx, "u", orders.InventoryDelta{Stock: -3, SoldCount: 3})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if got.Stock != nil || got.SoldCount != 3 {
		t.Fatalf("unlimited stock must stay unlimited: %+v", got)
	}
	if _, err := s.AdjustInventory(ctx, "ghost", orders.InventoryDelta{}); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrdersLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := orders.Order{CustomerName: "Ali", Items: []orders.OrderItem{{ProductID: "p", Quantity: 1}}}
	if err := s.CreateOrder(ctx, &o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != orders.StatusPending {
		t.Fatalf("new orders start pending, got %s", o.Status)
	}
	if err := s.UpdateOrderStatus(ctx, o.ID, orders.StatusShipped); err != nil {
		t.Fatalf("status: %v", err)
	}
	got, _ := s.GetOrder(ctx, o.ID)
	if got.Status != orders.StatusShipped {
		t.Fatalf("status: %s", got.Status)
	}
	list, _ := s.ListOrders(ctx, 0)
	if len(list) != 1 {
		t.Fatalf("list: %d", len(list))
	}
	if err := s.DeleteOrder(ctx, o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetOrder(ctx, o.ID); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateOrderStatus(ctx, o.ID, orders.StatusShipped); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, ok, _ := s.GetSetting(ctx, "k"); ok {
		t.Fatalf("unset key reported present")
	}
	_ = s.PutSetting(ctx, "k", "true")
	if v, ok, _ := s.GetSetting(ctx, "k"); !ok || v != "true" {
		t.Fatalf("got %q %v", v, ok)
	}
}
