package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
)

// CartView is a cart with its lines priced against current product snapshots.
type CartView struct {
	Cart  entity.Cart
	Lines []entity.Line
	Total int64
}

// Carts is the cart domain engine: item and cart lifecycle, validation and purchase.
type Carts struct {
	tx       TxManager
	products ProductRepo
	items    CartItemRepo
	carts    CartRepo
	outbox   OutboxRepo
	idem     IdempotencyStore
	cache    ProductCache
	obs      Observer
	now      func() time.Time
}

type CartsOption func(*Carts)

// WithIdempotency enables Idempotency-Key handling on Purchase.
func WithIdempotency(s IdempotencyStore) CartsOption {
	return func(c *Carts) { c.idem = s }
}

// WithProductCache invalidates cached products whose inventory a purchase changed.
func WithProductCache(pc ProductCache) CartsOption {
	return func(c *Carts) {
		if pc != nil {
			c.cache = pc
		}
	}
}

func WithObserver(o Observer) CartsOption {
	return func(c *Carts) {
		if o != nil {
			c.obs = o
		}
	}
}

// WithOutbox records a cart.purchased event in the purchase transaction.
func WithOutbox(o OutboxRepo) CartsOption {
	return func(c *Carts) { c.outbox = o }
}

func NewCarts(tx TxManager, products ProductRepo, items CartItemRepo, carts CartRepo, opts ...CartsOption) *Carts {
	c := &Carts{
		tx:       tx,
		products: products,
		items:    items,
		carts:    carts,
		cache:    nopCache{},
		obs:      nopObserver{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- cart items ----

func (c *Carts) CreateCartItem(ctx context.Context, productID int64, qty int) (entity.CartItem, error) {
	if err := entity.ValidateQuantity(qty); err != nil {
		return entity.CartItem{}, err
	}
	it := entity.CartItem{ProductID: productID, Quantity: qty}
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.requireProduct(ctx, productID); err != nil {
			return err
		}
		if err := c.items.Create(ctx, &it); err != nil {
			if errors.Is(err, entity.ErrRecordNotFound) {
				return entity.ErrInvalidProductID()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return entity.CartItem{}, err
	}
	return it, nil
}

func (c *Carts) GetCartItem(ctx context.Context, id int64) (entity.CartItem, error) {
	it, err := c.items.GetByID(ctx, id)
	if err != nil {
		return entity.CartItem{}, itemErr(err, id)
	}
	return it, nil
}

func (c *Carts) UpdateCartItem(ctx context.Context, id int64, patch entity.CartItemPatch) (entity.CartItem, error) {
	if patch.ProductID.IsNull() {
		return entity.CartItem{}, entity.ErrInvalidProductID()
	}
	if patch.Quantity.IsNull() {
		return entity.CartItem{}, entity.ValidateQuantity(0)
	}
	var out entity.CartItem
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		it, err := c.items.GetByID(ctx, id)
		if err != nil {
			return itemErr(err, id)
		}
		if pid, ok := patch.ProductID.Get(); ok {
			if err := c.requireProduct(ctx, pid); err != nil {
				return err
			}
			it.ProductID = pid
		}
		if qty, ok := patch.Quantity.Get(); ok {
			if err := entity.ValidateQuantity(qty); err != nil {
				return err
			}
			it.Quantity = qty
		}
		if err := c.items.Update(ctx, it); err != nil {
			if errors.Is(err, entity.ErrRecordNotFound) {
				return entity.ErrInvalidProductID()
			}
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return entity.CartItem{}, err
	}
	return out, nil
}

// ---- carts ----

// CreateCart validates every listed item before creating anything; one failure
// leaves no cart behind.
func (c *Carts) CreateCart(ctx context.Context, userID int64, currency entity.Currency, itemRefs []string) (CartView, error) {
	cur, err := entity.ParseCurrency(string(currency))
	if err != nil {
		return CartView{}, err
	}
	var view CartView
	err = c.tx.WithinTx(ctx, func(ctx context.Context) error {
		ids, err := c.validateItems(ctx, itemRefs)
		if err != nil {
			return err
		}
		cart := entity.Cart{UserID: userID, Currency: cur}
		if err := c.carts.Create(ctx, &cart); err != nil {
			return err
		}
		if err := c.items.Attach(ctx, cart.ID, ids); err != nil {
			return err
		}
		view, err = c.load(ctx, cart)
		return err
	})
	if err != nil {
		c.observeFailure(err)
		return CartView{}, err
	}
	return view, nil
}

func (c *Carts) GetCart(ctx context.Context, id int64) (CartView, error) {
	cart, err := c.carts.GetByID(ctx, id)
	if err != nil {
		return CartView{}, cartErr(err, id)
	}
	return c.load(ctx, cart)
}

func (c *Carts) ListCarts(ctx context.Context, userID int64) ([]CartView, error) {
	carts, err := c.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]CartView, 0, len(carts))
	for _, cart := range carts {
		v, err := c.load(ctx, cart)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DeleteCart removes the cart and returns how it looked just before. Its items
// are detached, not deleted.
func (c *Carts) DeleteCart(ctx context.Context, id int64) (CartView, error) {
	var view CartView
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := c.carts.GetByID(ctx, id)
		if err != nil {
			return cartErr(err, id)
		}
		if view, err = c.load(ctx, cart); err != nil {
			return err
		}
		if err := c.items.DetachAll(ctx, id); err != nil {
			return err
		}
		if err := c.carts.Delete(ctx, id); err != nil {
			return cartErr(err, id)
		}
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	return view, nil
}

// AddItems validates the items in order and attaches them only if all pass.
func (c *Carts) AddItems(ctx context.Context, cartID int64, itemRefs []string) (CartView, error) {
	var view CartView
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := c.carts.GetByID(ctx, cartID)
		if err != nil {
			return cartErr(err, cartID)
		}
		ids, err := c.validateItems(ctx, itemRefs)
		if err != nil {
			return err
		}
		if err := c.items.Attach(ctx, cartID, ids); err != nil {
			return err
		}
		view, err = c.load(ctx, cart)
		return err
	})
	if err != nil {
		c.observeFailure(err)
		return CartView{}, err
	}
	return view, nil
}

// RemoveItems detaches the items from the cart. Items that are not in it are ignored.
func (c *Carts) RemoveItems(ctx context.Context, cartID int64, itemRefs []string) (CartView, error) {
	ids := make([]int64, 0, len(itemRefs))
	for _, ref := range itemRefs {
		r, err := entity.DecodeRef(ref, entity.KindCartItem)
		if err != nil {
			return CartView{}, err
		}
		ids = append(ids, r.ID)
	}
	var view CartView
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := c.carts.GetByID(ctx, cartID)
		if err != nil {
			return cartErr(err, cartID)
		}
		if err := c.items.Detach(ctx, cartID, ids); err != nil {
			return err
		}
		view, err = c.load(ctx, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return view, nil
}

// Purchase re-validates the cart against current inventory and decrements every
// line's product in one transaction. The cart and its items stay as they were.
//
// A non-empty idemKey makes retries safe: a key that already completed returns
// the cart again without buying twice; one still in flight is rejected.
func (c *Carts) Purchase(ctx context.Context, cartID int64, idemKey string) (CartView, error) {
	log := logging.FromCtx(ctx)
	scope := "purchase:" + strconv.FormatInt(cartID, 10)

	if idemKey != "" && c.idem != nil {
		if _, ok, err := c.idem.Recall(ctx, scope, idemKey); err != nil {
			log.Warn("idempotency recall failed", "err", err)
		} else if ok {
			return c.GetCart(ctx, cartID)
		}
		locked, err := c.idem.TryLock(ctx, scope, idemKey)
		if err != nil {
			return CartView{}, err
		}
		if !locked {
			return CartView{}, entity.WithMetadata(entity.CodeDuplicateRequest,
				"A purchase with this idempotency key is already in progress.",
				map[string]string{"idempotency_key": idemKey})
		}
	}

	view, err := c.purchase(ctx, cartID)
	if err != nil {
		c.observeFailure(err)
		if idemKey != "" && c.idem != nil {
			if rerr := c.idem.Release(ctx, scope, idemKey); rerr != nil {
				log.Warn("idempotency release failed", "err", rerr)
			}
		}
		return CartView{}, err
	}

	if idemKey != "" && c.idem != nil {
		if err := c.idem.Remember(ctx, scope, idemKey, view.Cart.Ref().String()); err != nil {
			log.Warn("idempotency remember failed", "err", err)
		}
	}
	ids := make([]int64, 0, len(view.Lines))
	for _, l := range view.Lines {
		ids = append(ids, l.Product.ID)
	}
	if err := c.cache.Invalidate(ctx, ids...); err != nil {
		log.Warn("product cache invalidate failed", "err", err)
	}
	c.obs.CartPurchased(view.Cart.Currency, view.Total)
	log.Info("cart purchased",
		"cart", view.Cart.Ref().String(), "lines", len(view.Lines),
		"total", view.Total, "currency", string(view.Cart.Currency))
	return view, nil
}

func (c *Carts) purchase(ctx context.Context, cartID int64) (CartView, error) {
	var view CartView
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := c.carts.GetByID(ctx, cartID)
		if err != nil {
			return cartErr(err, cartID)
		}
		items, err := c.items.ListByCart(ctx, cartID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return entity.EmptyCart()
		}

		products, err := c.products.GetMany(ctx, productIDs(items), true)
		if err != nil {
			return err
		}
		for i := range items {
			it := items[i]
			var p *entity.Product
			if snap, ok := products[it.ProductID]; ok {
				p = &snap
			}
			if err := entity.ValidateLine(it.Ref().String(), &it, p); err != nil {
				return err
			}
		}

		for _, it := range items {
			if err := decrement(ctx, c.products, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		if view, err = c.load(ctx, cart); err != nil {
			return err
		}
		if c.outbox != nil {
			payload, err := json.Marshal(purchasedMsg(view, c.now()))
			if err != nil {
				return err
			}
			if err := c.outbox.Insert(ctx, ChannelCartPurchased, payload); err != nil {
				return err
			}
		}
		return nil
	})
	return view, err
}

// validateItems resolves and checks each reference in order, stopping at the
// first failure. It returns the item ids to attach.
func (c *Carts) validateItems(ctx context.Context, refs []string) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		r, ok := entity.ParseRef(ref, entity.KindCartItem)
		if !ok {
			return nil, entity.ItemNotFound(ref)
		}
		ids = append(ids, r.ID)
	}
	items, err := c.items.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	pids := make([]int64, 0, len(items))
	for _, it := range items {
		pids = append(pids, it.ProductID)
	}
	products, err := c.products.GetMany(ctx, pids, false)
	if err != nil {
		return nil, err
	}

	for i, ref := range refs {
		var (
			it *entity.CartItem
			p  *entity.Product
		)
		if v, ok := items[ids[i]]; ok {
			it = &v
			if pv, ok := products[v.ProductID]; ok {
				p = &pv
			}
		}
		if err := entity.ValidateLine(ref, it, p); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// load fetches the cart's items and product snapshots and prices them.
func (c *Carts) load(ctx context.Context, cart entity.Cart) (CartView, error) {
	items, err := c.items.ListByCart(ctx, cart.ID)
	if err != nil {
		return CartView{}, err
	}
	products, err := c.products.GetMany(ctx, productIDs(items), false)
	if err != nil {
		return CartView{}, err
	}
	lines := make([]entity.Line, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, entity.Line{Item: it, Product: p})
	}
	total, err := entity.Total(cart.Currency, lines)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Cart: cart, Lines: lines, Total: total}, nil
}

func (c *Carts) requireProduct(ctx context.Context, id int64) error {
	if _, err := c.products.GetByID(ctx, id); err != nil {
		if errors.Is(err, entity.ErrRecordNotFound) {
			return entity.ErrInvalidProductID()
		}
		return err
	}
	return nil
}

func (c *Carts) observeFailure(err error) {
	var de *entity.Error
	if errors.As(err, &de) {
		c.obs.ValidationFailed(de.Code)
	}
}

func productIDs(items []entity.CartItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func purchasedMsg(v CartView, at time.Time) CartPurchasedMsg {
	msg := CartPurchasedMsg{
		EventID:  uuid.NewString(),
		CartID:   v.Cart.Ref().String(),
		UserID:   v.Cart.UserID,
		Currency: string(v.Cart.Currency),
		Total:    v.Total,
		At:       at.UnixMilli(),
	}
	for _, l := range v.Lines {
		msg.Lines = append(msg.Lines, PurchasedLineMsg{
			ItemID:    l.Item.Ref().String(),
			ProductID: l.Product.Ref().String(),
			Quantity:  l.Item.Quantity,
		})
	}
	return msg
}

func itemErr(err error, id int64) error {
	if errors.Is(err, entity.ErrRecordNotFound) {
		return entity.ItemNotFound(entity.NewRef(entity.KindCartItem, id).String())
	}
	return err
}

func cartErr(err error, id int64) error {
	if errors.Is(err, entity.ErrRecordNotFound) {
		return entity.NotFound(entity.KindCart, entity.NewRef(entity.KindCart, id).String())
	}
	return err
}
