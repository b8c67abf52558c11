package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type CartItemRepo struct{ s *Store }

func NewCartItemRepo(s *Store) *CartItemRepo { return &CartItemRepo{s: s} }

const cartItemColumns = `id, cart_id, product_id, quantity`

func scanCartItem(sc interface{ Scan(...any) error }) (entity.CartItem, error) {
	var (
		it     entity.CartItem
		cartID sql.NullInt64
	)
	if err := sc.Scan(&it.ID, &cartID, &it.ProductID, &it.Quantity); err != nil {
		return entity.CartItem{}, err
	}
	if cartID.Valid {
		id := cartID.Int64
		it.CartID = &id
	}
	return it, nil
}

func (r *CartItemRepo) Create(ctx context.Context, it *entity.CartItem) error {
	res, err := r.s.run(ctx).ExecContext(ctx, `
INSERT INTO cartitem (cart_id, product_id, quantity) VALUES (?, ?, ?)`,
		nullableID(it.CartID), it.ProductID, it.Quantity)
	if err != nil {
		if isForeignKeyViolation(err) {
			return entity.ErrRecordNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = id
	return nil
}

func (r *CartItemRepo) GetByID(ctx context.Context, id int64) (entity.CartItem, error) {
	row := r.s.run(ctx).QueryRowContext(ctx, `SELECT `+cartItemColumns+` FROM cartitem WHERE id = ?`, id)
	it, err := scanCartItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.CartItem{}, entity.ErrRecordNotFound
	}
	return it, err
}

func (r *CartItemRepo) GetMany(ctx context.Context, ids []int64) (map[int64]entity.CartItem, error) {
	out := make(map[int64]entity.CartItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.s.run(ctx).QueryContext(ctx,
		`SELECT `+cartItemColumns+` FROM cartitem WHERE id IN (`+placeholders(len(ids))+`)`,
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	return collectItems(rows, out)
}

func (r *CartItemRepo) ListByCart(ctx context.Context, cartID int64) ([]entity.CartItem, error) {
	rows, err := r.s.run(ctx).QueryContext(ctx,
		`SELECT `+cartItemColumns+` FROM cartitem WHERE cart_id = ? ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []entity.CartItem{}
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *CartItemRepo) Update(ctx context.Context, it entity.CartItem) error {
	_, err := r.s.run(ctx).ExecContext(ctx, `
UPDATE cartitem SET product_id = ?, quantity = ? WHERE id = ?`,
		it.ProductID, it.Quantity, it.ID)
	if isForeignKeyViolation(err) {
		return entity.ErrRecordNotFound
	}
	return err
}

// Attach points the items at cartID, moving them out of any other cart.
func (r *CartItemRepo) Attach(ctx context.Context, cartID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	args := append([]any{cartID}, int64Args(itemIDs)...)
	_, err := r.s.run(ctx).ExecContext(ctx,
		`UPDATE cartitem SET cart_id = ? WHERE id IN (`+placeholders(len(itemIDs))+`)`, args...)
	return err
}

// Detach releases the listed items from cartID. Items not in that cart are left alone.
func (r *CartItemRepo) Detach(ctx context.Context, cartID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	args := append([]any{cartID}, int64Args(itemIDs)...)
	_, err := r.s.run(ctx).ExecContext(ctx,
		`UPDATE cartitem SET cart_id = NULL WHERE cart_id = ? AND id IN (`+placeholders(len(itemIDs))+`)`, args...)
	return err
}

func (r *CartItemRepo) DetachAll(ctx context.Context, cartID int64) error {
	_, err := r.s.run(ctx).ExecContext(ctx, `UPDATE cartitem SET cart_id = NULL WHERE cart_id = ?`, cartID)
	return err
}

func collectItems(rows *sql.Rows, into map[int64]entity.CartItem) (map[int64]entity.CartItem, error) {
	defer rows.Close()
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		into[it.ID] = it
	}
	return into, rows.Err()
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

var _ usecase.CartItemRepo = (*CartItemRepo)(nil)
