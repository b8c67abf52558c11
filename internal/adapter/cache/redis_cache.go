package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// RedisProductCache stores product snapshots as JSON under product:<id>.
type RedisProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProductCache(rdb *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{rdb: rdb, ttl: ttl}
}

type cachedProduct struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Price          int64  `json:"price"`
	Currency       string `json:"currency"`
	InventoryCount int    `json:"inventory_count"`
	CanPurchase    bool   `json:"can_purchase"`
}

func productKey(id int64) string { return "product:" + strconv.FormatInt(id, 10) }

func encodeProduct(p entity.Product) ([]byte, error) {
	return json.Marshal(cachedProduct{
		ID:             p.ID,
		Title:          p.Title,
		Price:          p.Price,
		Currency:       string(p.Currency),
		InventoryCount: p.InventoryCount,
		CanPurchase:    p.CanPurchase,
	})
}

func decodeProduct(raw []byte) (entity.Product, error) {
	var c cachedProduct
	if err := json.Unmarshal(raw, &c); err != nil {
		return entity.Product{}, err
	}
	return entity.Product{
		ID:             c.ID,
		Title:          c.Title,
		Price:          c.Price,
		Currency:       entity.Currency(c.Currency),
		InventoryCount: c.InventoryCount,
		CanPurchase:    c.CanPurchase,
	}, nil
}

func (r *RedisProductCache) Get(ctx context.Context, id int64) (entity.Product, bool, error) {
	raw, err := r.rdb.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Product{}, false, nil
	}
	if err != nil {
		return entity.Product{}, false, err
	}
	p, err := decodeProduct(raw)
	if err != nil {
		// a corrupt entry is a miss; drop it so the next Add can refill
		return entity.Product{}, false, r.rdb.Del(ctx, productKey(id)).Err()
	}
	return p, true, nil
}

// Add writes p with SET NX so a fill never replaces an entry another reader
// stored first.
func (r *RedisProductCache) Add(ctx context.Context, p entity.Product) error {
	raw, err := encodeProduct(p)
	if err != nil {
		return err
	}
	return r.rdb.SetNX(ctx, productKey(p.ID), raw, r.ttl).Err()
}

func (r *RedisProductCache) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return r.rdb.Del(ctx, keys...).Err()
}

var _ usecase.ProductCache = (*RedisProductCache)(nil)
