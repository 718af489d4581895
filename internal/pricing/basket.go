package pricing

import "math"

// MaxQuantity bounds a single line and a whole basket. Quantities are
// stored in 32-bit columns.
const MaxQuantity = math.MaxInt32

// Line is one basket line as seen by the pricer.
type Line struct {
	ProductID string
	Quantity  int
	BasePrice int64
	Tiers     []Tier
}

type PricedLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	// PricingQuantity is the quantity used for the tier lookup.
	PricingQuantity int   `json:"pricing_quantity"`
	UnitPrice       int64 `json:"unit_price"`
	LineTotal       int64 `json:"line_total"`
}

type Quote struct {
	Lines      []PricedLine `json:"lines"`
	TotalUnits int          `json:"total_units"`
	Total      int64        `json:"total"`
	Global     bool         `json:"global_tiered_pricing"`
	// Overflow is set when a line total or the basket total does not fit
	// in an int64. Totals are meaningless then and the quote must be
	// rejected.
	Overflow bool `json:"-"`
}

func mulOK(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	return p, p/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64)
}

func addOK(a, b int64) (int64, bool) {
	s := a + b
	return s, (b >= 0) == (s >= a)
}

// QuoteBasket prices every line. With global set, each line is looked up
// with the whole basket's quantity instead of its own.
func QuoteBasket(lines []Line, global bool) Quote {
	units := 0
	for _, l := range lines {
		units += l.Quantity
	}
	q := Quote{Lines: make([]PricedLine, 0, len(lines)), TotalUnits: units, Global: global}
	for _, l := range lines {
		pq := l.Quantity
		if global {
			pq = units
		}
		unit := UnitPriceFor(l.BasePrice, l.Tiers, pq)
		total, ok := mulOK(unit, int64(l.Quantity))
		if !ok {
			q.Overflow = true
		}
		pl := PricedLine{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PricingQuantity: pq,
			UnitPrice:       unit,
			LineTotal:       total,
		}
		if q.Total, ok = addOK(q.Total, pl.LineTotal); !ok {
			q.Overflow = true
		}
		q.Lines = append(q.Lines, pl)
	}
	return q
}
