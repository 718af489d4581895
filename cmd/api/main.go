package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/memstore"
	"github.com/ariefcatur/go-storefront-orders/internal/notify"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/joho/godotenv"
)

// store is everything the API needs from persistence; both the Postgres
// repo and the in-memory store satisfy it.
type store interface {
	orders.ProductStore
	orders.OrderStore
	orders.SettingsStore
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("load config")
	}
	logx.Init(cfg.Environment(), cfg.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var st store
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logx.Fatal().Err(err).Msg("db connect")
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			logx.Fatal().Err(err).Msg("db migrate")
		}
		st = &orders.Repo{DB: db}
	} else {
		logx.Warn().Msg("POSTGRES_DSN not set, using in-memory store")
		st = memstore.New()
	}

	reconciler := orders.NewReconciler(st, nil)
	reconciler.ServiceName = cfg.ServiceName
	checkout := &orders.Checkout{
		Products:    st,
		Orders:      st,
		Settings:    orders.StoredSettings{Store: st},
		Rate:        cfg.ExchangeRate,
		ServiceName: cfg.ServiceName,
	}
	storefront := &httpx.StorefrontHandler{Products: st, Orders: st, Checkout: checkout, Rate: cfg.ExchangeRate}
	admin := &httpx.AdminHandler{
		Products:   st,
		Orders:     st,
		Reconciler: reconciler,
		Settings:   orders.StoredSettings{Store: st},
		Token:      cfg.AdminToken,
	}

	// Redis
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()

		cache := &redisx.StatusCache{Redis: rdb}
		settings := &redisx.Settings{Redis: rdb, Backing: st}
		reconciler.Locker = redisx.NewLocker(rdb)
		reconciler.Cache = cache
		checkout.Settings = settings
		checkout.Idempotency = &redisx.Idempotency{Redis: rdb}
		checkout.Cache = cache
		storefront.Cache = cache
		admin.Settings = settings
	}

	// Kafka producers
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		pub := &orders.KafkaPublisher{Producers: map[string]*kafkax.Producer{}}
		for _, topic := range []string{orders.TopicOrderPlaced, orders.TopicOrderStatusChanged} {
			p := kafkax.NewProducer(cfg.KafkaBrokers, topic, 1024)
			p.Start()
			pub.Producers[topic] = p
			producers = append(producers, p)
		}
		checkout.Publisher = pub
		reconciler.Publisher = pub
	}

	router := httpx.NewRouter()
	storefront.Register(router)
	admin.Register(router)
	if tg := notify.NewTelegram(cfg.Telegram); tg.Enabled() {
		(&httpx.TelegramWebhook{Bot: tg, ChatID: tg.ChatID, Reconciler: reconciler}).Register(router)
	} else {
		logx.Warn().Msg("telegram not configured, webhook disabled")
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logx.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logx.Warn().Err(err).Msg("http shutdown")
	}
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
