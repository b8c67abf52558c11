package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/aq2208/storefront-api/configs"
	"github.com/aq2208/storefront-api/internal/adapter/kafka"
	"github.com/aq2208/storefront-api/internal/adapter/queue"
	"github.com/aq2208/storefront-api/internal/bootstrap"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Run starts every server and worker and blocks until ctx is cancelled or one
// of them fails.
func Run(ctx context.Context, cfg configs.Config, env string) error {
	l := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	ctx = logging.WithCtx(ctx, l)
	l.Info("storefront-api: starting up", "env", env, "db", cfg.Database.Driver)

	a, cleanup, err := bootstrap.InitWithConfig(ctx, cfg, prometheus.DefaultRegisterer, logging.New("http"))
	if err != nil {
		return err
	}
	defer cleanup()

	g, ctx := errgroup.WithContext(ctx)

	// RabbitMQ: outbox relay + purchased consumer
	if cfg.RabbitEnabled() {
		closeRabbit, err := startRabbit(ctx, g, cfg, a, l)
		if err != nil {
			return err
		}
		defer closeRabbit()
	}

	// Kafka: inventory restocks
	if cfg.KafkaEnabled() {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			return fmt.Errorf("kafka group: %w", err)
		}
		h := kafka.NewRestockHandler(a.Catalog)
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicRestock}, h.Handle)
		g.Go(func() error {
			defer grp.Close()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("kafka consumer: %w", err)
			}
			return nil
		})
	}

	// HTTP
	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	g.Go(func() error {
		l.Info("http listening", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// gRPC health
	if cfg.App.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.App.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		g.Go(func() error {
			l.Info("grpc listening", "addr", cfg.App.GRPCAddr)
			return a.Health.Server.Serve(lis)
		})
		g.Go(func() error {
			a.Health.Watch(ctx, 5*time.Second)
			return nil
		})
	}

	// shutdown
	g.Go(func() error {
		<-ctx.Done()
		l.Info("storefront-api: shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Health.Server.GracefulStop()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

func startRabbit(ctx context.Context, g *errgroup.Group, cfg configs.Config, a *bootstrap.App, l *slog.Logger) (func(), error) {
	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbit dial: %w", err)
	}
	pubCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbit channel: %w", err)
	}
	topo := queue.Topology{Exchange: cfg.Rabbit.Exchange, Queue: cfg.Rabbit.Queue, BindingKey: cfg.Rabbit.BindingKey}
	producer, err := queue.NewRabbitProducer(pubCh, topo)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	relay := queue.NewOutboxRelay(a.Outbox, producer, queue.RelayConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	})
	g.Go(func() error {
		relay.Run(ctx)
		return nil
	})

	var router *queue.Router
	if a.Cache != nil {
		subCh, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("rabbit channel: %w", err)
		}
		h := queue.NewCartPurchasedHandler(a.Cache)
		router = queue.NewRouter(subCh, queue.WithPrefetch(50))
		router.Register(cfg.Rabbit.Queue, queue.JSONHandler[usecase.CartPurchasedMsg]{HandleFunc: h.HandlePurchased})
		if err := router.Start(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("rabbit consumers: %w", err)
		}
	}
	l.Info("rabbitmq enabled", "exchange", cfg.Rabbit.Exchange, "queue", cfg.Rabbit.Queue)

	return func() {
		if router != nil {
			router.Stop()
		}
		_ = conn.Close()
	}, nil
}
