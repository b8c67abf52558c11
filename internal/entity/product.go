package entity

import "strings"

// Product is a catalog entry. Price is in minor units of Currency.
type Product struct {
	ID             int64
	Title          string
	Price          int64
	Currency       Currency
	InventoryCount int
	CanPurchase    bool
}

func (p Product) Ref() Ref { return NewRef(KindProduct, p.ID) }

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return InvalidArgument("Product title is required.")
	}
	if p.Price < 0 {
		return InvalidArgument("Product price must not be negative.")
	}
	if !p.Currency.Valid() {
		return InvalidArgument(`Currency "` + string(p.Currency) + `" is not supported.`)
	}
	if p.InventoryCount < 0 {
		return InvalidArgument("Product inventory count must not be negative.")
	}
	return nil
}

// ProductFilter narrows a product listing. Nil fields do not filter.
type ProductFilter struct {
	ID               *int64
	Title            *string
	InventoryMinimum *int
	CanPurchase      *bool
}

// ProductPatch is a partial product update.
type ProductPatch struct {
	Title          Optional[string]   `json:"title"`
	Price          Optional[int64]    `json:"price"`
	Currency       Optional[Currency] `json:"currency"`
	InventoryCount Optional[int]      `json:"inventory_count"`
	CanPurchase    Optional[bool]     `json:"can_purchase"`
}

// Apply writes every present field onto p and validates the result.
// A present-but-null field is rejected: none of the product columns are nullable.
func (pp ProductPatch) Apply(p *Product) error {
	nulls := []struct {
		name string
		null bool
	}{
		{"title", pp.Title.IsNull()},
		{"price", pp.Price.IsNull()},
		{"currency", pp.Currency.IsNull()},
		{"inventory_count", pp.InventoryCount.IsNull()},
		{"can_purchase", pp.CanPurchase.IsNull()},
	}
	for _, f := range nulls {
		if f.null {
			return InvalidArgument("Product " + f.name + " cannot be null.")
		}
	}
	if v, ok := pp.Title.Get(); ok {
		p.Title = v
	}
	if v, ok := pp.Price.Get(); ok {
		p.Price = v
	}
	if v, ok := pp.Currency.Get(); ok {
		c, err := ParseCurrency(string(v))
		if err != nil {
			return err
		}
		p.Currency = c
	}
	if v, ok := pp.InventoryCount.Get(); ok {
		p.InventoryCount = v
	}
	if v, ok := pp.CanPurchase.Get(); ok {
		p.CanPurchase = v
	}
	return p.Validate()
}
