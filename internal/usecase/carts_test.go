package usecase_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/aq2208/storefront-api/internal/adapter/repo"
	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type env struct {
	store   *repo.Store
	catalog *usecase.Catalog
	carts   *usecase.Carts
	outbox  *repo.OutboxRepo
}

func newEnv(t *testing.T, opts ...usecase.CartsOption) env {
	t.Helper()
	s, err := repo.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	products := repo.NewProductRepo(s)
	outbox := repo.NewOutboxRepo(s)
	opts = append([]usecase.CartsOption{usecase.WithOutbox(outbox)}, opts...)
	return env{
		store:   s,
		catalog: usecase.NewCatalog(s, products),
		carts:   usecase.NewCarts(s, products, repo.NewCartItemRepo(s), repo.NewCartRepo(s), opts...),
		outbox:  outbox,
	}
}

func (e env) product(t *testing.T, title string, price int64, cur entity.Currency, inv int, canPurchase bool) entity.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(context.Background(), entity.Product{
		Title: title, Price: price, Currency: cur, InventoryCount: inv, CanPurchase: canPurchase,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (e env) item(t *testing.T, p entity.Product, qty int) string {
	t.Helper()
	it, err := e.carts.CreateCartItem(context.Background(), p.ID, qty)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return it.Ref().String()
}

func (e env) cart(t *testing.T, cur entity.Currency, refs ...string) usecase.CartView {
	t.Helper()
	v, err := e.carts.CreateCart(context.Background(), 1, cur, refs)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	return v
}

func wantCode(t *testing.T, err error, code entity.Code) *entity.Error {
	t.Helper()
	var de *entity.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected %s, got %v", code, err)
	}
	if de.Code != code {
		t.Fatalf("code = %s (%s), want %s", de.Code, de.Message, code)
	}
	return de
}

func TestCreateCartIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	good := e.item(t, e.product(t, "Shirt", 2000, entity.USD, 5, true), 1)
	bad := e.item(t, e.product(t, "Hat", 1000, entity.USD, 0, true), 1)

	_, err := e.carts.CreateCart(ctx, 1, entity.USD, []string{good, bad})
	de := wantCode(t, err, entity.CodeOutOfStock)
	if de.Metadata["item"] != bad {
		t.Fatalf("item = %q, want %q", de.Metadata["item"], bad)
	}

	carts, err := e.carts.ListCarts(ctx, 1)
	if err != nil {
		t.Fatalf("list carts: %v", err)
	}
	if len(carts) != 0 {
		t.Fatalf("cart created despite failure: %+v", carts)
	}
	r, _ := entity.ParseRef(good, entity.KindCartItem)
	it, err := e.carts.GetCartItem(ctx, r.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if it.CartID != nil {
		t.Fatalf("item attached to cart %d", *it.CartID)
	}
}

func TestAddItemsValidation(t *testing.T) {
	e := newEnv(t)
	ok := e.item(t, e.product(t, "Shirt", 2000, entity.USD, 5, true), 1)
	locked := e.item(t, e.product(t, "Display", 2000, entity.USD, 5, false), 1)
	empty := e.item(t, e.product(t, "Hat", 1000, entity.USD, 0, true), 1)
	short := e.item(t, e.product(t, "Socks", 300, entity.USD, 2, true), 3)
	missing := entity.NewRef(entity.KindCartItem, 999).String()

	tests := []struct {
		name string
		refs []string
		code entity.Code
		item string
		msg  string
	}{
		{"malformed ref", []string{"not-a-ref"}, entity.CodeItemNotFound, "not-a-ref", `CartItem "not-a-ref" does not exist.`},
		{"wrong kind", []string{entity.NewRef(entity.KindProduct, 1).String()}, entity.CodeItemNotFound, entity.NewRef(entity.KindProduct, 1).String(), ""},
		{"unknown item", []string{ok, missing}, entity.CodeItemNotFound, missing, ""},
		{"not purchasable", []string{ok, locked}, entity.CodeItemNotPurchasable, locked, `CartItem "` + locked + `" cannot be purchased.`},
		{"out of stock", []string{empty}, entity.CodeOutOfStock, empty, `CartItem "` + empty + `" is out of stock.`},
		{"insufficient stock", []string{short}, entity.CodeInsufficientStock, short, `CartItem "` + short + `" has only 2 units left.`},
		{"first failure wins", []string{locked, empty}, entity.CodeItemNotPurchasable, locked, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			v := e.cart(t, entity.USD)
			_, err := e.carts.AddItems(ctx, v.Cart.ID, tt.refs)
			de := wantCode(t, err, tt.code)
			if de.Metadata["item"] != tt.item {
				t.Errorf("item = %q, want %q", de.Metadata["item"], tt.item)
			}
			if tt.msg != "" && de.Message != tt.msg {
				t.Errorf("message = %q, want %q", de.Message, tt.msg)
			}
			got, err := e.carts.GetCart(ctx, v.Cart.ID)
			if err != nil {
				t.Fatalf("get cart: %v", err)
			}
			if len(got.Lines) != 0 {
				t.Errorf("cart gained %d lines after a failed add", len(got.Lines))
			}
		})
	}
}

func TestRemoveItems(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.product(t, "Shirt", 2000, entity.USD, 5, true)
	a, b := e.item(t, p, 1), e.item(t, p, 2)
	v := e.cart(t, entity.USD, a)

	// b was never in the cart
	got, err := e.carts.RemoveItems(ctx, v.Cart.ID, []string{b})
	if err != nil {
		t.Fatalf("remove absent item: %v", err)
	}
	if len(got.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(got.Lines))
	}

	got, err = e.carts.RemoveItems(ctx, v.Cart.ID, []string{a})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(got.Lines) != 0 || got.Total != 0 {
		t.Fatalf("cart not emptied: %+v", got)
	}

	_, err = e.carts.RemoveItems(ctx, v.Cart.ID, []string{"???"})
	wantCode(t, err, entity.CodeItemNotFound)
}

func TestDeleteCartReturnsSnapshotAndDetaches(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.product(t, "Shirt", 2000, entity.USD, 5, true)
	ref := e.item(t, p, 2)
	v := e.cart(t, entity.USD, ref)

	snap, err := e.carts.DeleteCart(ctx, v.Cart.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(snap.Lines) != 1 || snap.Total != 4000 {
		t.Fatalf("snapshot = %+v", snap)
	}
	_, err = e.carts.GetCart(ctx, v.Cart.ID)
	wantCode(t, err, entity.CodeNotFound)

	r, _ := entity.ParseRef(ref, entity.KindCartItem)
	it, err := e.carts.GetCartItem(ctx, r.ID)
	if err != nil {
		t.Fatalf("item should survive its cart: %v", err)
	}
	if it.CartID != nil {
		t.Fatalf("item still attached to %d", *it.CartID)
	}
}

func TestTotalConvertsPerLine(t *testing.T) {
	e := newEnv(t)
	eur := e.product(t, "Jacket", 10000, entity.EUR, 10, true)
	usd := e.product(t, "Boots", 80000, entity.USD, 10, true)
	v := e.cart(t, entity.CAD, e.item(t, eur, 5), e.item(t, usd, 1))
	if v.Total != 93000 {
		t.Fatalf("total = %d, want 93000", v.Total)
	}
}

func TestPurchaseEmptyCart(t *testing.T) {
	e := newEnv(t)
	v := e.cart(t, entity.USD)
	_, err := e.carts.Purchase(context.Background(), v.Cart.ID, "")
	de := wantCode(t, err, entity.CodeEmptyCart)
	if de.Message != "Cart cannot be purchased. It is empty." {
		t.Fatalf("message = %q", de.Message)
	}
}

func TestPurchaseDecrementsAndKeepsCart(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.product(t, "Shirt", 2000, entity.USD, 5, true)
	q := e.product(t, "Hat", 1000, entity.CAD, 3, true)
	v := e.cart(t, entity.USD, e.item(t, p, 2), e.item(t, q, 3))

	got, err := e.carts.Purchase(ctx, v.Cart.ID, "")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Fatalf("cart lines = %d, want 2", len(got.Lines))
	}

	inv := map[int64]int{}
	for _, id := range []int64{p.ID, q.ID} {
		cur, err := e.catalog.GetProduct(ctx, id)
		if err != nil {
			t.Fatalf("get product: %v", err)
		}
		inv[id] = cur.InventoryCount
	}
	if diff := cmp.Diff(map[int64]int{p.ID: 3, q.ID: 0}, inv); diff != "" {
		t.Fatalf("inventory mismatch (-want +got):\n%s", diff)
	}

	recs, err := e.outbox.ClaimPending(ctx, 10)
	if err != nil {
		t.Fatalf("claim outbox: %v", err)
	}
	if len(recs) != 1 || recs[0].Channel != usecase.ChannelCartPurchased {
		t.Fatalf("outbox = %+v", recs)
	}

	// the same cart now fails on the emptied product
	_, err = e.carts.Purchase(ctx, v.Cart.ID, "")
	wantCode(t, err, entity.CodeOutOfStock)
}

func TestPurchaseRevalidatesCurrentState(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.product(t, "Shirt", 2000, entity.USD, 5, true)
	v := e.cart(t, entity.USD, e.item(t, p, 1))

	if _, err := e.catalog.UpdateProduct(ctx, p.ID, entity.ProductPatch{CanPurchase: entity.Some(false)}); err != nil {
		t.Fatalf("update product: %v", err)
	}
	_, err := e.carts.Purchase(ctx, v.Cart.ID, "")
	wantCode(t, err, entity.CodeItemNotPurchasable)

	cur, _ := e.catalog.GetProduct(ctx, p.ID)
	if cur.InventoryCount != 5 {
		t.Fatalf("inventory = %d, want 5", cur.InventoryCount)
	}
}

func TestPurchaseSameProductTwiceIsAtomic(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.product(t, "Shirt", 2000, entity.USD, 3, true)
	v := e.cart(t, entity.USD, e.item(t, p, 2), e.item(t, p, 2))

	_, err := e.carts.Purchase(ctx, v.Cart.ID, "")
	wantCode(t, err, entity.CodeInsufficientInventory)

	cur, _ := e.catalog.GetProduct(ctx, p.ID)
	if cur.InventoryCount != 3 {
		t.Fatalf("partial decrement: inventory = %d, want 3", cur.InventoryCount)
	}
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.product(t, "Last one", 2000, entity.USD, 1, true)
	first := e.cart(t, entity.USD, e.item(t, p, 1))
	second := e.cart(t, entity.USD, e.item(t, p, 1))

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	for _, id := range []int64{first.Cart.ID, second.Cart.ID} {
		g.Go(func() error {
			_, err := e.carts.Purchase(ctx, id, "")
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		wantCode(t, err, entity.CodeOutOfStock)
	}
	if ok != 1 {
		t.Fatalf("%d purchases succeeded, want 1 (errs: %v)", ok, errs)
	}
	cur, _ := e.catalog.GetProduct(ctx, p.ID)
	if cur.InventoryCount != 0 {
		t.Fatalf("inventory = %d, want 0", cur.InventoryCount)
	}
}

type memIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memIdem) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+key]
	return v, ok, nil
}

func TestPurchaseIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	idem := newMemIdem()
	e := newEnv(t, usecase.WithIdempotency(idem))
	p := e.product(t, "Shirt", 2000, entity.USD, 5, true)
	v := e.cart(t, entity.USD, e.item(t, p, 2))

	for i := 0; i < 2; i++ {
		if _, err := e.carts.Purchase(ctx, v.Cart.ID, "key-1"); err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
	}
	cur, _ := e.catalog.GetProduct(ctx, p.ID)
	if cur.InventoryCount != 3 {
		t.Fatalf("inventory = %d, want 3 after a replayed key", cur.InventoryCount)
	}

	// a key still held by another request is a duplicate
	scope := "purchase:" + strconv.FormatInt(v.Cart.ID, 10)
	if ok, _ := idem.TryLock(ctx, scope, "key-2"); !ok {
		t.Fatal("lock unexpectedly held")
	}
	_, err := e.carts.Purchase(ctx, v.Cart.ID, "key-2")
	wantCode(t, err, entity.CodeDuplicateRequest)
}

func TestPurchaseFailureReleasesKey(t *testing.T) {
	ctx := context.Background()
	idem := newMemIdem()
	e := newEnv(t, usecase.WithIdempotency(idem))
	v := e.cart(t, entity.USD)

	for i := 0; i < 2; i++ {
		_, err := e.carts.Purchase(ctx, v.Cart.ID, "retry")
		wantCode(t, err, entity.CodeEmptyCart)
	}
}
