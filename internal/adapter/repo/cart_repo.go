package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type CartRepo struct{ s *Store }

func NewCartRepo(s *Store) *CartRepo { return &CartRepo{s: s} }

func scanCart(sc interface{ Scan(...any) error }) (entity.Cart, error) {
	var (
		c         entity.Cart
		cur       string
		createdAt int64
	)
	if err := sc.Scan(&c.ID, &c.UserID, &cur, &createdAt); err != nil {
		return entity.Cart{}, err
	}
	c.Currency = entity.Currency(cur)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func (r *CartRepo) Create(ctx context.Context, c *entity.Cart) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := r.s.run(ctx).ExecContext(ctx, `
INSERT INTO cart (userid, currency, created_at) VALUES (?, ?, ?)`,
		c.UserID, string(c.Currency), toMillis(c.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *CartRepo) GetByID(ctx context.Context, id int64) (entity.Cart, error) {
	row := r.s.run(ctx).QueryRowContext(ctx,
		`SELECT id, userid, currency, created_at FROM cart WHERE id = ?`, id)
	c, err := scanCart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Cart{}, entity.ErrRecordNotFound
	}
	return c, err
}

func (r *CartRepo) ListByUser(ctx context.Context, userID int64) ([]entity.Cart, error) {
	rows, err := r.s.run(ctx).QueryContext(ctx,
		`SELECT id, userid, currency, created_at FROM cart WHERE userid = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []entity.Cart{}
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CartRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.s.run(ctx).ExecContext(ctx, `DELETE FROM cart WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrRecordNotFound
	}
	return nil
}

var _ usecase.CartRepo = (*CartRepo)(nil)
