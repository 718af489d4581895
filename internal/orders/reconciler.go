package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
)

// Outcome describes what a transition did.
type Outcome struct {
	OrderID  string   `json:"order_id"`
	From     Status   `json:"from"`
	To       Status   `json:"to"`
	Changed  bool     `json:"changed"`
	Message  string   `json:"message,omitempty"`
	Adjusted []string `json:"adjusted,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
}

// Reconciler moves orders between statuses and keeps product stock and
// sold counts consistent with the confirmed edge.
type Reconciler struct {
	Store  InventoryStore
	Locker Locker

	// Optional.
	Cache       StatusCache
	Publisher   Publisher
	ServiceName string
}

func NewReconciler(store InventoryStore, locker Locker) *Reconciler {
	if locker == nil {
		locker = &LocalLocker{}
	}
	return &Reconciler{Store: store, Locker: locker}
}

// Transition sets the order's status to `to`. Setting the current status
// again is a successful no-op. Entering confirmed commits every item's
// quantity (stock down, sold up); leaving confirmed releases it. Items whose
// product cannot be adjusted are skipped and logged. Only a failure to write
// the status itself fails the call, after adjustments may already have been
// applied.
func (r *Reconciler) Transition(ctx context.Context, orderID string, to Status) (Outcome, error) {
	if !to.Valid() {
		return Outcome{}, errx.Validation("unknown order status %q", to)
	}
	if orderID == "" {
		return Outcome{}, errx.Validation("order id is required")
	}

	unlock, err := r.Locker.Lock(ctx, OrderLockKey(orderID))
	if err != nil {
		return Outcome{}, errx.New(errx.KindConflict, err, "order is being updated, retry later")
	}
	defer unlock()

	o, err := r.Store.GetOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return Outcome{}, errx.NotFound("order not found: %s", orderID)
	}
	if err != nil {
		return Outcome{}, errx.Persistence(err, "load order")
	}

	out := Outcome{OrderID: orderID, From: o.Status, To: to}
	if o.Status == to {
		out.Message = "status already up to date"
		return out, nil
	}

	if eff := EffectOf(o.Status, to); eff != EffectNone {
		for _, it := range o.Items {
			if _, err := r.Store.AdjustInventory(ctx, it.ProductID, eff.Delta(it.Quantity)); err != nil {
				logx.Warn().Err(err).
					Str("order_id", orderID).
					Str("product_id", it.ProductID).
					Int("qty", it.Quantity).
					Msg("inventory adjustment skipped")
				out.Skipped = append(out.Skipped, it.ProductID)
				continue
			}
			out.Adjusted = append(out.Adjusted, it.ProductID)
		}
	}

	if err := r.Store.UpdateOrderStatus(ctx, orderID, to); err != nil {
		if errors.Is(err, ErrNotFound) {
			return out, errx.NotFound("order not found: %s", orderID)
		}
		logx.Error().Err(err).
			Str("order_id", orderID).
			Strs("adjusted", out.Adjusted).
			Msg("status write failed after inventory adjustment")
		return out, errx.Persistence(err, "update order status")
	}
	out.Changed = true

	logx.Info().
		Str("order_id", orderID).
		Str("from", string(out.From)).
		Str("to", string(out.To)).
		Int("adjusted", len(out.Adjusted)).
		Int("skipped", len(out.Skipped)).
		Msg("order status changed")

	r.afterTransition(ctx, out)
	return out, nil
}

func (r *Reconciler) afterTransition(ctx context.Context, out Outcome) {
	if r.Cache != nil {
		if err := r.Cache.SetStatus(ctx, out.OrderID, out.To); err != nil {
			logx.Warn().Err(err).Str("order_id", out.OrderID).Msg("status cache refresh failed")
		}
	}
	if r.Publisher != nil {
		env := NewEnvelope(EventOrderStatusChanged, r.ServiceName, "", out.OrderID, OrderStatusChangedPayload{
			OrderID:  out.OrderID,
			From:     out.From,
			To:       out.To,
			Adjusted: out.Adjusted,
			Skipped:  out.Skipped,
		})
		if err := r.Publisher.Publish(ctx, TopicOrderStatusChanged, env); err != nil {
			logx.Warn().Err(err).Str("order_id", out.OrderID).Msg("publish status change failed")
		}
	}
}
