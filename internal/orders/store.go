package orders

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type ProductStore interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	// GetProducts returns the products found among ids; missing ids are
	// simply absent from the map.
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
	// AdjustInventory applies d to one product as a single atomic step and
	// returns the updated product. ErrNotFound if the product is gone.
	AdjustInventory(ctx context.Context, id string, d InventoryDelta) (Product, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (Order, error)
	// GetOrderByIdempotencyKey returns ErrNotFound when no order carries key.
	GetOrderByIdempotencyKey(ctx context.Context, key string) (Order, error)
	ListOrders(ctx context.Context, limit int) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, id string, s Status) error
	DeleteOrder(ctx context.Context, id string) error
}

type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	PutSetting(ctx context.Context, key, value string) error
}

const SettingGlobalTieredPricing = "global_tiered_pricing"

// Settings reads store-wide switches.
type Settings interface {
	Bool(ctx context.Context, key string) (bool, error)
}

// StatusCache mirrors order statuses for fast reads.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID string, s Status) error
}

// InventoryStore is what the reconciler needs from persistence.
type InventoryStore interface {
	GetOrder(ctx context.Context, id string) (Order, error)
	AdjustInventory(ctx context.Context, id string, d InventoryDelta) (Product, error)
	UpdateOrderStatus(ctx context.Context, id string, s Status) error
}
