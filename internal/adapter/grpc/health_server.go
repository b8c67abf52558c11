package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/aq2208/storefront-api/internal/logging"
)

// ServiceName is the health-checked service; "" covers the whole server.
const ServiceName = "storefront.v1.Storefront"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer serves grpc.health.v1 with status driven by database pings.
type HealthServer struct {
	Server *grpc.Server
	health *health.Server
	db     Pinger
	log    *slog.Logger
}

func NewHealthServer(db Pinger) *HealthServer {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return &HealthServer{Server: srv, health: hs, db: db, log: logging.New("grpc-health")}
}

// Probe pings the database once and publishes the result.
func (h *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("database ping failed", "err", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch probes every interval until ctx is done, then marks everything NOT_SERVING.
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		h.Probe(ctx)
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-t.C:
		}
	}
}
