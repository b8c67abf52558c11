package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a quantity of one product. It references the product by id and
// belongs to at most one cart at a time.
type CartItem struct {
	ID        int64
	CartID    *int64
	ProductID int64
	Quantity  int
}

func (it CartItem) Ref() Ref { return NewRef(KindCartItem, it.ID) }

// InCart reports whether the item is attached to cartID.
func (it CartItem) InCart(cartID int64) bool {
	return it.CartID != nil && *it.CartID == cartID
}

func ValidateQuantity(qty int) error {
	if qty <= 0 {
		return InvalidArgument("Product quantity must be greater than zero.")
	}
	return nil
}

// CartItemPatch is a partial cart item update.
type CartItemPatch struct {
	ProductID Optional[int64]
	Quantity  Optional[int]
}

// Cart is a per-user container of items priced in a fixed currency.
type Cart struct {
	ID        int64
	UserID    int64
	Currency  Currency
	CreatedAt time.Time
}

func (c Cart) Ref() Ref { return NewRef(KindCart, c.ID) }

// Line pairs a cart item with the product snapshot it was priced against.
type Line struct {
	Item    CartItem
	Product Product
}

// ValidateLine runs the purchasability checks for one item, in order, stopping at
// the first failure. ref is the item's external reference as supplied by the caller.
// A nil item or product means the reference did not resolve.
func ValidateLine(ref string, item *CartItem, product *Product) error {
	if item == nil || product == nil {
		return ItemNotFound(ref)
	}
	if !product.CanPurchase {
		return itemNotPurchasable(ref)
	}
	if product.InventoryCount == 0 {
		return outOfStock(ref)
	}
	if product.InventoryCount < item.Quantity {
		return insufficientStock(ref, product.InventoryCount)
	}
	return nil
}

// Total sums the cart lines in the cart's currency.
//
// Each line price is converted with the rate quoted as <cart currency>/<product
// currency>; stored carts and their fixtures were priced this way, e.g. a CAD cart
// holding 5 x 10000 EUR and 1 x 80000 USD totals 93000.
//
// The sum is carried in decimal; a total outside int64 fails with INVALID_ARGUMENT.
func Total(currency Currency, lines []Line) (int64, error) {
	total := decimal.Zero
	for _, l := range lines {
		unit, err := Convert(currency, l.Product.Currency, l.Product.Price)
		if err != nil {
			return 0, err
		}
		total = total.Add(decimal.NewFromInt(unit).Mul(decimal.NewFromInt(int64(l.Item.Quantity))))
	}
	return minorUnits(total)
}

// ParseProductID decodes a product reference supplied for a cart item.
func ParseProductID(ref string) (int64, error) {
	r, ok := ParseRef(ref, KindProduct)
	if !ok {
		return 0, ErrInvalidProductID()
	}
	return r.ID, nil
}

// ErrInvalidProductID is returned when a cart item names a product that does not resolve.
func ErrInvalidProductID() *Error {
	return InvalidArgument("Product ID is invalid.")
}
