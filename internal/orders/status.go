package orders

import (
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", errx.Validation("unknown order status %q", v)
	}
	return s, nil
}

// Effect is the inventory side effect of a status edge.
type Effect int

const (
	EffectNone Effect = iota
	// EffectCommit takes units out of stock and counts them as sold.
	EffectCommit
	// EffectRelease returns units to stock and uncounts them.
	EffectRelease
)

// EffectOf classifies the edge from -> to. Only edges into or out of
// confirmed touch inventory.
func EffectOf(from, to Status) Effect {
	switch {
	case from == to:
		return EffectNone
	case to == StatusConfirmed:
		return EffectCommit
	case from == StatusConfirmed:
		return EffectRelease
	default:
		return EffectNone
	}
}

// Delta returns the per-item inventory change for qty units under e.
func (e Effect) Delta(qty int) InventoryDelta {
	switch e {
	case EffectCommit:
		return InventoryDelta{Stock: -qty, SoldCount: qty}
	case EffectRelease:
		return InventoryDelta{Stock: qty, SoldCount: -qty}
	default:
		return InventoryDelta{}
	}
}
