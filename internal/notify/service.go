package notify

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Channels returns the notifiers that have credentials configured.
func Channels(cfg config.Config) []Notifier {
	var out []Notifier
	if e := NewEmail(cfg.Resend, cfg.AdminEmail); e.Enabled() {
		out = append(out, e)
	} else {
		logx.Warn().Msg("email channel disabled: RESEND_API_KEY or ADMIN_EMAIL missing")
	}
	if t := NewTelegram(cfg.Telegram); t.Enabled() {
		out = append(out, t)
	} else {
		logx.Warn().Msg("telegram channel disabled: TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID missing")
	}
	if w := NewWhatsApp(cfg.UltraMsg, cfg.AdminWhatsApp); w.Enabled() {
		out = append(out, w)
	} else {
		logx.Warn().Msg("whatsapp channel disabled: ULTRAMSG_INSTANCE_ID or ULTRAMSG_TOKEN missing")
	}
	return out
}

// Service consumes OrderPlaced events and fans them out to the channels.
type Service struct {
	Fanout      *Fanout
	Redis       *redis.Client // optional, dedups redelivered events
	Rate        decimal.Decimal
	ServiceName string
}

// HandleOrderPlaced is installed as the consumer handler. Undecodable
// messages are dropped so they do not block the partition.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		logx.Warn().Err(err).Int64("offset", m.Offset).Msg("dropping undecodable event")
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	if s.Redis != nil {
		fresh, err := redisx.MarkProcessed(ctx, s.Redis, s.ServiceName, env.EventID)
		if err != nil {
			logx.Warn().Err(err).Str("event_id", env.EventID).Msg("dedup unavailable, notifying anyway")
		} else if !fresh {
			logx.Debug().Str("event_id", env.EventID).Msg("duplicate event skipped")
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		logx.Warn().Err(err).Str("event_id", env.EventID).Msg("dropping event with bad payload")
		return nil
	}

	rep := s.Fanout.Dispatch(ctx, SummaryFrom(p, s.Rate))
	logx.Info().
		Str("order_id", p.OrderID).
		Str("trace_id", env.TraceID).
		Strs("sent", rep.Sent).
		Strs("failed", rep.Failed).
		Msg("order notifications dispatched")
	return nil
}
