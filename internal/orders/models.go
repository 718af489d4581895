package orders

import (
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	BasePrice   int64          `json:"base_price"` // IQD
	PriceTiers  []pricing.Tier `json:"price_tiers,omitempty"`
	MinOrderQty int            `json:"min_order_qty"`
	Stock       *int           `json:"stock"` // nil = unlimited
	SoldCount   int            `json:"sold_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (p Product) UnitPriceFor(qty int) int64 {
	return pricing.UnitPriceFor(p.BasePrice, p.PriceTiers, qty)
}

// MinQty returns the effective minimum order quantity.
func (p Product) MinQty() int {
	if p.MinOrderQty < 1 {
		return 1
	}
	return p.MinOrderQty
}

// Validate checks operator-entered product fields.
func (p Product) Validate() error {
	if p.Name == "" {
		return errx.Validation("product name is required")
	}
	if p.MinOrderQty < 1 {
		return errx.Validation("min order quantity must be >= 1")
	}
	if p.Stock != nil && *p.Stock < 0 {
		return errx.Validation("stock must be >= 0")
	}
	if p.SoldCount < 0 {
		return errx.Validation("sold count must be >= 0")
	}
	return pricing.ValidateTiers(p.BasePrice, p.PriceTiers)
}

type Order struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CustomerName   string          `json:"customer_name"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	Items          []OrderItem     `json:"items"`
	Total          int64           `json:"total"`     // IQD
	TotalUSD       decimal.Decimal `json:"total_usd"` // derived at checkout
	Status         Status          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderItem is a denormalized line; UnitPrice is captured at checkout and
// never recomputed.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (o Order) Units() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// InventoryDelta is applied atomically to one product. Stock and SoldCount
// are floored at zero; unlimited stock stays unlimited.
type InventoryDelta struct {
	Stock     int
	SoldCount int
}

// Apply returns p with d applied under the floor rules.
func (d InventoryDelta) Apply(p Product) Product {
	if p.Stock != nil {
		s := max(*p.Stock+d.Stock, 0)
		p.Stock = &s
	}
	p.SoldCount = max(p.SoldCount+d.SoldCount, 0)
	return p
}
