package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID      string          `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	Items        []OrderItem     `json:"items"`
	Total        int64           `json:"total"`
	TotalUSD     decimal.Decimal `json:"total_usd"`
	Persisted    bool            `json:"persisted"`
	PlacedAt     time.Time       `json:"placed_at"`
}

type OrderStatusChangedPayload struct {
	OrderID  string   `json:"order_id"`
	From     Status   `json:"from"`
	To       Status   `json:"to"`
	Adjusted []string `json:"adjusted,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
}
