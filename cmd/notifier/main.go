package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/notify"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("load config")
	}
	service := cfg.ServiceName + "-notifier"
	logx.Init(cfg.Environment(), service)

	if len(cfg.KafkaBrokers) == 0 {
		logx.Fatal().Msg("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
	}

	channels := notify.Channels(cfg)
	if len(channels) == 0 {
		logx.Warn().Msg("no notification channels configured, events will only be logged")
	}
	svc := &notify.Service{
		Fanout:      &notify.Fanout{Channels: channels, Timeout: cfg.NotifyTimeout},
		Redis:       rdb,
		Rate:        cfg.ExchangeRate,
		ServiceName: service,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifyGroup, orders.TopicOrderPlaced, cfg.NotifyWorkers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logx.Info().
			Str("group", cfg.NotifyGroup).
			Str("topic", orders.TopicOrderPlaced).
			Int("workers", cfg.NotifyWorkers).
			Int("channels", len(channels)).
			Msg("notifier consumer started")
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			logx.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logx.Info().Msg("shutting down consumer")
	cancel()
	<-done
}
