package usecase

import (
	"context"
	"errors"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
)

// Catalog owns the product lifecycle and inventory counts.
type Catalog struct {
	tx       TxManager
	products ProductRepo
	cache    ProductCache
	obs      Observer
}

type CatalogOption func(*Catalog)

func WithCatalogCache(c ProductCache) CatalogOption {
	return func(cat *Catalog) {
		if c != nil {
			cat.cache = c
		}
	}
}

func WithCatalogObserver(o Observer) CatalogOption {
	return func(cat *Catalog) {
		if o != nil {
			cat.obs = o
		}
	}
}

func NewCatalog(tx TxManager, products ProductRepo, opts ...CatalogOption) *Catalog {
	c := &Catalog{tx: tx, products: products, cache: nopCache{}, obs: nopObserver{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Catalog) ListProducts(ctx context.Context, f entity.ProductFilter) ([]entity.Product, error) {
	return c.products.List(ctx, f)
}

// GetProduct reads through the product cache. Cache failures only cost a DB read.
func (c *Catalog) GetProduct(ctx context.Context, id int64) (entity.Product, error) {
	log := logging.FromCtx(ctx)
	if p, ok, err := c.cache.Get(ctx, id); err != nil {
		log.Warn("product cache get failed", "product_id", id, "err", err)
	} else if ok {
		return p, nil
	}

	p, err := c.products.GetByID(ctx, id)
	if err != nil {
		return entity.Product{}, productErr(err, id)
	}
	c.fill(ctx, p)
	return p, nil
}

// fill caches a product snapshot read from the store. A write that commits
// between that read and the Add has already run its invalidation, so the
// snapshot is checked against the store again and dropped if it moved.
func (c *Catalog) fill(ctx context.Context, p entity.Product) {
	if _, ok := c.cache.(nopCache); ok {
		return
	}
	if err := c.cache.Add(ctx, p); err != nil {
		logging.FromCtx(ctx).Warn("product cache add failed", "product_id", p.ID, "err", err)
		return
	}
	cur, err := c.products.GetByID(ctx, p.ID)
	if err == nil && cur == p {
		return
	}
	c.invalidate(ctx, p.ID)
}

func (c *Catalog) CreateProduct(ctx context.Context, p entity.Product) (entity.Product, error) {
	cur, err := entity.ParseCurrency(string(p.Currency))
	if err != nil {
		return entity.Product{}, err
	}
	p.Currency = cur
	if err := p.Validate(); err != nil {
		return entity.Product{}, err
	}
	if err := c.products.Create(ctx, &p); err != nil {
		return entity.Product{}, err
	}
	logging.FromCtx(ctx).Info("product created", "product", p.Ref().String())
	return p, nil
}

func (c *Catalog) UpdateProduct(ctx context.Context, id int64, patch entity.ProductPatch) (entity.Product, error) {
	var out entity.Product
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := c.products.GetByID(ctx, id)
		if err != nil {
			return productErr(err, id)
		}
		if err := patch.Apply(&p); err != nil {
			return err
		}
		if err := c.products.Update(ctx, p); err != nil {
			return productErr(err, id)
		}
		out = p
		return nil
	})
	if err != nil {
		return entity.Product{}, err
	}
	c.invalidate(ctx, id)
	return out, nil
}

// DeleteProduct removes the product and returns its last state. Cart items
// referencing it are removed with it.
func (c *Catalog) DeleteProduct(ctx context.Context, id int64) (entity.Product, error) {
	var out entity.Product
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := c.products.GetByID(ctx, id)
		if err != nil {
			return productErr(err, id)
		}
		if err := c.products.Delete(ctx, id); err != nil {
			return productErr(err, id)
		}
		out = p
		return nil
	})
	if err != nil {
		return entity.Product{}, err
	}
	c.invalidate(ctx, id)
	return out, nil
}

// DecrementInventory lowers the stock of one product, refusing to go below zero.
func (c *Catalog) DecrementInventory(ctx context.Context, id int64, qty int) (entity.Product, error) {
	if qty <= 0 {
		return entity.Product{}, entity.InvalidArgument("Quantity must be greater than zero.")
	}
	var out entity.Product
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := decrement(ctx, c.products, id, qty); err != nil {
			return err
		}
		p, err := c.products.GetByID(ctx, id)
		if err != nil {
			return productErr(err, id)
		}
		out = p
		return nil
	})
	if err != nil {
		return entity.Product{}, err
	}
	c.invalidate(ctx, id)
	return out, nil
}

// Restock adds qty units to a product's inventory.
func (c *Catalog) Restock(ctx context.Context, id int64, qty int) (entity.Product, error) {
	if qty <= 0 {
		return entity.Product{}, entity.InvalidArgument("Restock quantity must be greater than zero.")
	}
	var out entity.Product
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.products.IncrementInventory(ctx, id, qty); err != nil {
			return productErr(err, id)
		}
		p, err := c.products.GetByID(ctx, id)
		if err != nil {
			return productErr(err, id)
		}
		out = p
		return nil
	})
	if err != nil {
		return entity.Product{}, err
	}
	c.invalidate(ctx, id)
	c.obs.Restocked(qty)
	logging.FromCtx(ctx).Info("product restocked",
		"product", out.Ref().String(), "quantity", qty, "inventory_count", out.InventoryCount)
	return out, nil
}

func (c *Catalog) invalidate(ctx context.Context, ids ...int64) {
	if err := c.cache.Invalidate(ctx, ids...); err != nil {
		logging.FromCtx(ctx).Warn("product cache invalidate failed", "product_ids", ids, "err", err)
	}
}

func decrement(ctx context.Context, products ProductRepo, id int64, qty int) error {
	err := products.DecrementInventory(ctx, id, qty)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entity.ErrInventoryUnderflow):
		ref := entity.NewRef(entity.KindProduct, id).String()
		return &entity.Error{
			Code:     entity.CodeInsufficientInventory,
			Message:  `Product "` + ref + `" does not have enough inventory.`,
			Metadata: map[string]string{"product": ref},
			Cause:    err,
		}
	default:
		return productErr(err, id)
	}
}

func productErr(err error, id int64) error {
	if errors.Is(err, entity.ErrRecordNotFound) {
		return entity.NotFound(entity.KindProduct, entity.NewRef(entity.KindProduct, id).String())
	}
	if errors.Is(err, entity.ErrInventoryUnderflow) {
		return entity.InvalidArgument("Product inventory count must not be negative.")
	}
	return err
}
