// Package memstore keeps products, orders and settings in process memory.
// It backs local runs without Postgres and the tests of the packages above
// persistence.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	products map[string]orders.Product
	orders   map[string]orders.Order
	byKey    map[string]string // idempotency key -> order id
	settings map[string]string

	// Fail hooks let tests inject persistence failures.
	FailAdjust       func(productID string) error
	FailStatusUpdate func(orderID string) error
	FailCreateOrder  func(o orders.Order) error
}

func New() *Store {
	return &Store{
		products: make(map[string]orders.Product),
		orders:   make(map[string]orders.Order),
		byKey:    make(map[string]string),
		settings: make(map[string]string),
	}
}

func cloneProduct(p orders.Product) orders.Product {
	if p.Stock != nil {
		s := *p.Stock
		p.Stock = &s
	}
	if p.PriceTiers != nil {
		p.PriceTiers = append([]pricing.Tier(nil), p.PriceTiers...)
	}
	return p
}

func cloneOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	return o
}

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (s *Store) GetProducts(_ context.Context, ids []string) (map[string]orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]orders.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, p *orders.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := s.products[p.ID]; ok {
		return orders.ErrAlreadyExists
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, p *orders.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.products[p.ID]
	if !ok {
		return orders.ErrNotFound
	}
	p.SoldCount = cur.SoldCount
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return orders.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) AdjustInventory(_ context.Context, id string, d orders.InventoryDelta) (orders.Product, error) {
	if s.FailAdjust != nil {
		if err := s.FailAdjust(id); err != nil {
			return orders.Product{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	p = d.Apply(p)
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return cloneProduct(p), nil
}

func (s *Store) CreateOrder(_ context.Context, o *orders.Order) error {
	if s.FailCreateOrder != nil {
		if err := s.FailCreateOrder(*o); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, ok := s.orders[o.ID]; ok {
		return orders.ErrAlreadyExists
	}
	if o.IdempotencyKey != "" {
		if _, ok := s.byKey[o.IdempotencyKey]; ok {
			return orders.ErrAlreadyExists
		}
		s.byKey[o.IdempotencyKey] = o.ID
	}
	if o.Status == "" {
		o.Status = orders.StatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) GetOrderByIdempotencyKey(_ context.Context, key string) (orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, limit int) ([]orders.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, st orders.Status) error {
	if s.FailStatusUpdate != nil {
		if err := s.FailStatusUpdate(id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = st
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	if o.IdempotencyKey != "" {
		delete(s.byKey, o.IdempotencyKey)
	}
	delete(s.orders, id)
	return nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Store) PutSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}
