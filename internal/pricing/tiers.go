// Package pricing implements quantity-based tiered unit pricing.
package pricing

import (
	"sort"

	"github.com/ariefcatur/go-storefront-orders/internal/errx"
)

// Tier is a volume discount threshold: from MinQuantity units upward the
// unit price is UnitPrice (minor units of the primary currency).
type Tier struct {
	MinQuantity int   `json:"min_qty"`
	UnitPrice   int64 `json:"unit_price"`
}

// UnitPriceFor returns the unit price for qty: the price of the qualifying
// tier with the largest MinQuantity, or base when no tier qualifies.
// Tiers need not be sorted.
func UnitPriceFor(base int64, tiers []Tier, qty int) int64 {
	best := -1
	for i, t := range tiers {
		if t.MinQuantity > qty {
			continue
		}
		if best < 0 || t.MinQuantity > tiers[best].MinQuantity {
			best = i
		}
	}
	if best < 0 {
		return base
	}
	return tiers[best].UnitPrice
}

// Sorted returns a copy of tiers ordered by MinQuantity ascending.
func Sorted(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	sort.Slice(out, func(i, j int) bool { return out[i].MinQuantity < out[j].MinQuantity })
	return out
}

// ValidateTiers checks a tier list at the admin-entry boundary: positive
// thresholds, non-negative prices, unique thresholds, and unit prices that
// never rise as the threshold grows nor exceed the base price.
func ValidateTiers(base int64, tiers []Tier) error {
	if base < 0 {
		return errx.Validation("base price must be >= 0")
	}
	seen := make(map[int]struct{}, len(tiers))
	for _, t := range tiers {
		if t.MinQuantity < 1 {
			return errx.Validation("tier min quantity must be >= 1, got %d", t.MinQuantity)
		}
		if t.UnitPrice < 0 {
			return errx.Validation("tier unit price must be >= 0, got %d", t.UnitPrice)
		}
		if _, dup := seen[t.MinQuantity]; dup {
			return errx.Validation("duplicate tier for min quantity %d", t.MinQuantity)
		}
		seen[t.MinQuantity] = struct{}{}
	}
	prev := base
	for _, t := range Sorted(tiers) {
		if t.UnitPrice > prev {
			return errx.Validation("tier at %d units (%d) is priced above the previous level (%d)", t.MinQuantity, t.UnitPrice, prev)
		}
		prev = t.UnitPrice
	}
	return nil
}
