package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type ProductRepo struct{ s *Store }

func NewProductRepo(s *Store) *ProductRepo { return &ProductRepo{s: s} }

const productColumns = `id, title, price, currency, inventory_count, can_purchase`

func scanProduct(sc interface{ Scan(...any) error }) (entity.Product, error) {
	var (
		p   entity.Product
		cur string
	)
	if err := sc.Scan(&p.ID, &p.Title, &p.Price, &cur, &p.InventoryCount, &p.CanPurchase); err != nil {
		return entity.Product{}, err
	}
	p.Currency = entity.Currency(cur)
	return p, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	res, err := r.s.run(ctx).ExecContext(ctx, `
INSERT INTO product (title, price, currency, inventory_count, can_purchase)
VALUES (?, ?, ?, ?, ?)`,
		p.Title, p.Price, string(p.Currency), p.InventoryCount, p.CanPurchase)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id int64) (entity.Product, error) {
	row := r.s.run(ctx).QueryRowContext(ctx, `SELECT `+productColumns+` FROM product WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Product{}, entity.ErrRecordNotFound
	}
	return p, err
}

// GetMany loads the given products keyed by id; missing ids are simply absent.
// With forUpdate the rows stay locked until the surrounding transaction ends.
// Rows are read in id order so concurrent purchases lock them in the same order.
func (r *ProductRepo) GetMany(ctx context.Context, ids []int64, forUpdate bool) (map[int64]entity.Product, error) {
	out := make(map[int64]entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT ` + productColumns + ` FROM product WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`
	if forUpdate {
		q += r.s.dialect.forUpdate()
	}
	rows, err := r.s.run(ctx).QueryContext(ctx, q, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *ProductRepo) List(ctx context.Context, f entity.ProductFilter) ([]entity.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.ID != nil {
		where = append(where, "id = ?")
		args = append(args, *f.ID)
	}
	if f.Title != nil {
		where = append(where, "title = ?")
		args = append(args, *f.Title)
	}
	if f.InventoryMinimum != nil {
		where = append(where, "inventory_count >= ?")
		args = append(args, *f.InventoryMinimum)
	}
	if f.CanPurchase != nil {
		where = append(where, "can_purchase = ?")
		args = append(args, *f.CanPurchase)
	}

	q := `SELECT ` + productColumns + ` FROM product`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := r.s.run(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) Update(ctx context.Context, p entity.Product) error {
	_, err := r.s.run(ctx).ExecContext(ctx, `
UPDATE product
SET title = ?, price = ?, currency = ?, inventory_count = ?, can_purchase = ?
WHERE id = ?`,
		p.Title, p.Price, string(p.Currency), p.InventoryCount, p.CanPurchase, p.ID)
	if isCheckViolation(err) {
		return entity.ErrInventoryUnderflow
	}
	return err
}

func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.s.run(ctx).ExecContext(ctx, `DELETE FROM product WHERE id = ?`, id)
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

// DecrementInventory subtracts qty in one conditional statement, so two concurrent
// callers can never drive the count below zero.
func (r *ProductRepo) DecrementInventory(ctx context.Context, id int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}
	res, err := r.s.run(ctx).ExecContext(ctx, `
UPDATE product
SET inventory_count = inventory_count - ?
WHERE id = ? AND inventory_count >= ?`, qty, id, qty)
	if err != nil {
		if isCheckViolation(err) {
			return entity.ErrInventoryUnderflow
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return entity.ErrInventoryUnderflow
}

func (r *ProductRepo) IncrementInventory(ctx context.Context, id int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", qty)
	}
	res, err := r.s.run(ctx).ExecContext(ctx, `
UPDATE product SET inventory_count = inventory_count + ? WHERE id = ?`, qty, id)
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

var _ usecase.ProductRepo = (*ProductRepo)(nil)
