package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/catalog"
	"github.com/ariefcatur/go-restaurant-orders/internal/config"
	"github.com/ariefcatur/go-restaurant-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-restaurant-orders/internal/kafka"
	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
	"github.com/ariefcatur/go-restaurant-orders/internal/notify"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/postgres"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
	"github.com/ariefcatur/go-restaurant-orders/internal/reservations"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Init("api", "", "info").Error("invalid config", "error", err)
		os.Exit(1)
	}
	log := logging.Init(cfg.ServiceName, cfg.LogFile, cfg.LogLevel)

	fee, err := decimal.NewFromString(cfg.DeliveryFee)
	if err != nil {
		log.Error("invalid DELIVERY_FEE", "value", cfg.DeliveryFee, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres: orders + reservations
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN, log); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Mongo: catalog
	mdb, err := catalog.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Error("mongo connect", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
	catalogStore := catalog.NewMongoStore(mdb, logging.New("catalog"))
	if err := catalogStore.CreateIndexes(ctx); err != nil {
		log.Warn("catalog indexes", "error", err)
	}

	// Redis: carts, caches, idempotency, notifications
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis not reachable yet", "error", err)
	}

	// Kafka producers
	created := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	created.Start(ctx)
	changed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	changed.Start(ctx)

	calc := pricing.NewCalculator(fee)
	catalogSvc := catalog.NewService(catalogStore, catalog.NewRedisCache(rdb), logging.New("catalog"))
	cartSvc := cart.NewService(cart.NewRedisStore(rdb, cfg.CartTTL), catalogSvc, calc)
	orderSvc := orders.NewService(orders.Deps{
		Repo:        &orders.Repo{DB: db},
		Created:     created,
		Changed:     changed,
		Cache:       orders.NewRedisStatusCache(rdb),
		Idempotency: redisx.NewIdempotencyStore(rdb, cfg.IdempotencyTTL),
		Calculator:  calc,
		ServiceName: cfg.ServiceName,
		Log:         logging.New("orders"),
	})
	reservationSvc := reservations.NewService(&reservations.Repo{DB: db}, cfg.MaxPartiesPerSlot, logging.New("reservations"))

	router := httpx.NewRouter(httpx.Deps{
		Catalog:       catalogSvc,
		Cart:          cartSvc,
		Orders:        orderSvc,
		Reservations:  reservationSvc,
		Notifications: notify.NewService(rdb, logging.New("notifications")),
		Authz:         auth.NewAuthz(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		Log:           logging.New("http"),
		PageSize:      cfg.PageSize,
		Ready: func(ctx context.Context) error {
			return errors.Join(db.Ping(ctx), redisx.Ping(ctx, rdb))
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), httpx.HandlerTimeout+5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		// handlers may still publish; leave the inboxes open and let the process exit
		log.Error("http shutdown", "error", err)
		return
	}
	created.Close() // close inbox -> flush & close writer
	changed.Close()
	created.WaitClosed()
	changed.WaitClosed()
	cancel()
}
