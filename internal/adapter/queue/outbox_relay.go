package queue

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// Publisher is the broker side of the relay.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// OutboxRelay drains committed outbox rows to the broker. Delivery is
// at-least-once: a crash between publish and MarkSent republishes the row.
type OutboxRelay struct {
	repo usecase.OutboxRepo
	pub  Publisher
	cfg  RelayConfig
	log  *slog.Logger
	now  func() time.Time
}

func NewOutboxRelay(repo usecase.OutboxRepo, pub Publisher, cfg RelayConfig) *OutboxRelay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &OutboxRelay{repo: repo, pub: pub, cfg: cfg, log: logging.New("outbox-relay"), now: time.Now}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	t := time.NewTicker(r.cfg.PollInterval)
	defer t.Stop()
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("relay batch failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// RunOnce publishes one batch and returns how many rows were sent.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	recs, err := r.repo.ClaimPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range recs {
		msgID := "outbox-" + strconv.FormatInt(rec.ID, 10)
		if err := r.pub.Publish(ctx, rec.Channel, msgID, rec.Payload); err != nil {
			attempt := rec.RetryCount + 1
			dead := attempt >= r.cfg.MaxAttempts
			r.log.Warn("publish failed", "outbox_id", rec.ID, "attempt", attempt, "dead", dead, "err", err)
			if merr := r.repo.MarkFailed(ctx, rec.ID, r.now().Add(backoff(attempt)), dead); merr != nil {
				return sent, merr
			}
			continue
		}
		if err := r.repo.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// backoff doubles from one second per attempt, capped at five minutes.
func backoff(attempt int) time.Duration {
	d := time.Second
	for i := 1; i < attempt && d < 5*time.Minute; i++ {
		d *= 2
	}
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}
