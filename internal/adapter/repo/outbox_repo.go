package repo

import (
	"context"
	"time"

	"github.com/aq2208/storefront-api/internal/usecase"
)

const (
	outboxPending = "PENDING"
	outboxSent    = "SENT"
	outboxDead    = "DEAD"
)

type OutboxRepo struct{ s *Store }

func NewOutboxRepo(s *Store) *OutboxRepo { return &OutboxRepo{s: s} }

// Insert enqueues a message. Called inside the purchase transaction so the
// message exists if and only if the purchase committed.
func (r *OutboxRepo) Insert(ctx context.Context, channel string, payload []byte) error {
	now := toMillis(time.Now())
	_, err := r.s.run(ctx).ExecContext(ctx, `
INSERT INTO outbox (channel, payload, status, retry_count, next_attempt_at, created_at)
VALUES (?, ?, ?, 0, ?, ?)`, channel, payload, outboxPending, now, now)
	return err
}

// ClaimPending returns up to limit messages that are due, oldest first.
func (r *OutboxRepo) ClaimPending(ctx context.Context, limit int) ([]usecase.OutboxRecord, error) {
	rows, err := r.s.run(ctx).QueryContext(ctx, `
SELECT id, channel, payload, retry_count
FROM outbox
WHERE status = ? AND next_attempt_at <= ?
ORDER BY id
LIMIT ?`, outboxPending, toMillis(time.Now()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.OutboxRecord
	for rows.Next() {
		var rec usecase.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.Channel, &rec.Payload, &rec.RetryCount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *OutboxRepo) MarkSent(ctx context.Context, id int64) error {
	_, err := r.s.run(ctx).ExecContext(ctx, `UPDATE outbox SET status = ? WHERE id = ?`, outboxSent, id)
	return err
}

// MarkFailed schedules another attempt at next, or parks the message when dead is set.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id int64, next time.Time, dead bool) error {
	status := outboxPending
	if dead {
		status = outboxDead
	}
	_, err := r.s.run(ctx).ExecContext(ctx, `
UPDATE outbox SET status = ?, retry_count = retry_count + 1, next_attempt_at = ? WHERE id = ?`,
		status, toMillis(next), id)
	return err
}

var _ usecase.OutboxRepo = (*OutboxRepo)(nil)
