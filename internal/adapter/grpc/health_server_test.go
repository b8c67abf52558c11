package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type flipPinger struct{ down atomic.Bool }

func (p *flipPinger) Ping(context.Context) error {
	if p.down.Load() {
		return errors.New("db down")
	}
	return nil
}

func TestHealthFollowsDatabase(t *testing.T) {
	ctx := context.Background()
	db := &flipPinger{}
	hs := NewHealthServer(db)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = hs.Server.Serve(lis) }()
	t.Cleanup(hs.Server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		return resp.GetStatus()
	}

	if got := hs.Probe(ctx); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("probe = %v", got)
	}
	if got := check(); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", got)
	}

	db.down.Store(true)
	hs.Probe(ctx)
	if got := check(); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", got)
	}
}
