package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/aq2208/storefront-api/configs"
	"github.com/aq2208/storefront-api/internal/adapter/cache"
	grpcadapter "github.com/aq2208/storefront-api/internal/adapter/grpc"
	"github.com/aq2208/storefront-api/internal/adapter/http"
	"github.com/aq2208/storefront-api/internal/adapter/observ"
	"github.com/aq2208/storefront-api/internal/adapter/repo"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// App holds the wired core: store, use cases, HTTP router and gRPC health.
// Broker consumers and the outbox relay are started by cmd on top of it.
type App struct {
	Store   *repo.Store
	Outbox  *repo.OutboxRepo
	Catalog *usecase.Catalog
	Carts   *usecase.Carts
	Cache   usecase.ProductCache // nil when redis is disabled
	Router  *gin.Engine
	Health  *grpcadapter.HealthServer
}

// InitWithConfig opens the store and wires every component that does not need
// a broker connection. The returned cleanup closes what was opened.
func InitWithConfig(ctx context.Context, cfg configs.Config, reg prometheus.Registerer, l *slog.Logger) (*App, func(), error) {
	store, err := repo.Open(ctx, repo.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	closers := []func(){func() { _ = store.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	metrics := observ.NewMetrics(reg)
	products := repo.NewProductRepo(store)
	outbox := repo.NewOutboxRepo(store)

	catalogOpts := []usecase.CatalogOption{usecase.WithCatalogObserver(metrics)}
	cartOpts := []usecase.CartsOption{usecase.WithObserver(metrics), usecase.WithOutbox(outbox)}

	var productCache usecase.ProductCache
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })

		productCache = cache.NewRedisProductCache(rdb, cfg.Cache.TTL)
		catalogOpts = append(catalogOpts, usecase.WithCatalogCache(productCache))
		cartOpts = append(cartOpts,
			usecase.WithProductCache(productCache),
			usecase.WithIdempotency(cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)))
		logging.FromCtx(ctx).Info("redis enabled", "addr", cfg.Redis.Addr)
	}

	catalog := usecase.NewCatalog(store, products, catalogOpts...)
	carts := usecase.NewCarts(store, products, repo.NewCartItemRepo(store), repo.NewCartRepo(store), cartOpts...)

	router := http.NewRouter(l,
		http.NewProductHandler(catalog, cfg.HTTP.RequestTimeout),
		http.NewCartHandler(carts, cfg.HTTP.RequestTimeout),
		store)

	return &App{
		Store:   store,
		Outbox:  outbox,
		Catalog: catalog,
		Carts:   carts,
		Cache:   productCache,
		Router:  router,
		Health:  grpcadapter.NewHealthServer(store),
	}, cleanup, nil
}
