// Package notify tells the shop operator (and the customer) about new
// orders over email, Telegram and WhatsApp.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/pricing"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Item is one order line as shown in a notification.
type Item struct {
	Name         string
	Quantity     int
	UnitPrice    int64
	UnitPriceUSD decimal.Decimal
}

// Summary is everything a channel needs to announce a placed order.
type Summary struct {
	OrderID      string
	CustomerName string
	Phone        string
	Address      string
	Items        []Item
	Total        int64
	TotalUSD     decimal.Decimal
	Persisted    bool
	PlacedAt     time.Time
}

func SummaryFrom(p orders.OrderPlacedPayload, rate decimal.Decimal) Summary {
	s := Summary{
		OrderID:      p.OrderID,
		CustomerName: p.CustomerName,
		Phone:        p.Phone,
		Address:      p.Address,
		Total:        p.Total,
		TotalUSD:     p.TotalUSD,
		Persisted:    p.Persisted,
		PlacedAt:     p.PlacedAt,
		Items:        make([]Item, 0, len(p.Items)),
	}
	for _, it := range p.Items {
		s.Items = append(s.Items, Item{
			Name:         it.Name,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			UnitPriceUSD: pricing.ToReference(it.UnitPrice, rate),
		})
	}
	return s
}

type Notifier interface {
	Name() string
	NotifyOrderPlaced(ctx context.Context, s Summary) error
}

// Report lists which channels delivered and which did not. Err is the first
// channel failure, if any.
type Report struct {
	Sent   []string
	Failed []string
	Err    error
}

// Fanout sends a summary on every channel at once. A channel failing or
// timing out never cuts the others short.
type Fanout struct {
	Channels []Notifier
	Timeout  time.Duration
}

func (f *Fanout) Dispatch(ctx context.Context, s Summary) Report {
	var (
		mu  sync.Mutex
		rep Report
		// plain Group: a failure must not cancel the sibling channels
		g errgroup.Group
	)
	for _, ch := range f.Channels {
		g.Go(func() error {
			cctx, cancel := f.channelContext(ctx)
			defer cancel()

			err := ch.NotifyOrderPlaced(cctx, s)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failed = append(rep.Failed, ch.Name())
				return errx.Notification(err, ch.Name()+" notification failed")
			}
			rep.Sent = append(rep.Sent, ch.Name())
			return nil
		})
	}
	rep.Err = g.Wait()
	if rep.Err != nil {
		logx.Error().Err(rep.Err).
			Str("order_id", s.OrderID).
			Strs("failed", rep.Failed).
			Msg("notification failed")
	}
	return rep
}

func (f *Fanout) channelContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.Timeout > 0 {
		return context.WithTimeout(ctx, f.Timeout)
	}
	return context.WithCancel(ctx)
}
