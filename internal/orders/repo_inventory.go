package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// AdjustInventory applies d in one conditional UPDATE so concurrent
// transitions touching the same product never lose an update. Both counters
// are floored at zero and a NULL (unlimited) stock stays NULL.
func (r *Repo) AdjustInventory(ctx context.Context, id string, d InventoryDelta) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products
		SET stock      = CASE WHEN stock IS NULL THEN NULL ELSE GREATEST(stock + $2, 0) END,
		    sold_count = GREATEST(sold_count + $3, 0),
		    updated_at = now()
		WHERE id=$1
		RETURNING `+productColumns,
		id, d.Stock, d.SoldCount,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}
