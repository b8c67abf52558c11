package usecase

import (
	"context"
	"time"

	"github.com/aq2208/storefront-api/internal/entity"
)

// TxManager runs fn in one transaction; repositories called with the ctx it
// passes join that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductRepo interface {
	Create(ctx context.Context, p *entity.Product) error
	GetByID(ctx context.Context, id int64) (entity.Product, error)
	GetMany(ctx context.Context, ids []int64, forUpdate bool) (map[int64]entity.Product, error)
	List(ctx context.Context, f entity.ProductFilter) ([]entity.Product, error)
	Update(ctx context.Context, p entity.Product) error
	Delete(ctx context.Context, id int64) error
	DecrementInventory(ctx context.Context, id int64, qty int) error
	IncrementInventory(ctx context.Context, id int64, qty int) error
}

type CartItemRepo interface {
	Create(ctx context.Context, it *entity.CartItem) error
	GetByID(ctx context.Context, id int64) (entity.CartItem, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]entity.CartItem, error)
	ListByCart(ctx context.Context, cartID int64) ([]entity.CartItem, error)
	Update(ctx context.Context, it entity.CartItem) error
	Attach(ctx context.Context, cartID int64, itemIDs []int64) error
	Detach(ctx context.Context, cartID int64, itemIDs []int64) error
	DetachAll(ctx context.Context, cartID int64) error
}

type CartRepo interface {
	Create(ctx context.Context, c *entity.Cart) error
	GetByID(ctx context.Context, id int64) (entity.Cart, error)
	ListByUser(ctx context.Context, userID int64) ([]entity.Cart, error)
	Delete(ctx context.Context, id int64) error
}

// Persistence shape of a queued event (kept out of domain).
type OutboxRecord struct {
	ID         int64
	Channel    string
	Payload    []byte
	RetryCount int
}

type OutboxRepo interface {
	Insert(ctx context.Context, channel string, payload []byte) error
	ClaimPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, next time.Time, dead bool) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// ProductCache is a read-through cache of single products.
type ProductCache interface {
	Get(ctx context.Context, id int64) (entity.Product, bool, error)
	// Add stores p only when no entry exists for its id.
	Add(ctx context.Context, p entity.Product) error
	Invalidate(ctx context.Context, ids ...int64) error
}

// Observer receives domain outcomes, e.g. for metrics.
type Observer interface {
	CartPurchased(currency entity.Currency, total int64)
	ValidationFailed(code entity.Code)
	Restocked(quantity int)
}

type nopObserver struct{}

func (nopObserver) CartPurchased(entity.Currency, int64) {}
func (nopObserver) ValidationFailed(entity.Code)         {}
func (nopObserver) Restocked(int)                        {}

type nopCache struct{}

func (nopCache) Get(context.Context, int64) (entity.Product, bool, error) {
	return entity.Product{}, false, nil
}
func (nopCache) Add(context.Context, entity.Product) error  { return nil }
func (nopCache) Invalidate(context.Context, ...int64) error { return nil }
