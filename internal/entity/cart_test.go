package entity

import (
	"math"
	"testing"
)

func TestValidateLineOrder(t *testing.T) {
	item := &CartItem{ID: 7, ProductID: 1, Quantity: 3}
	tests := []struct {
		name    string
		item    *CartItem
		product *Product
		code    Code
		meta    map[string]string
	}{
		{"missing item", nil, nil, CodeItemNotFound, map[string]string{"item": "ref"}},
		{"not purchasable wins over out of stock", item, &Product{CanPurchase: false, InventoryCount: 0}, CodeItemNotPurchasable, nil},
		{"out of stock", item, &Product{CanPurchase: true, InventoryCount: 0}, CodeOutOfStock, nil},
		{"insufficient", item, &Product{CanPurchase: true, InventoryCount: 2}, CodeInsufficientStock, map[string]string{"item": "ref", "remaining": "2"}},
		{"exact stock passes", item, &Product{CanPurchase: true, InventoryCount: 3}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLine("ref", tt.item, tt.product)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := CodeOf(err); got != tt.code {
				t.Fatalf("code = %s, want %s (err=%v)", got, tt.code, err)
			}
			de := err.(*Error)
			for k, v := range tt.meta {
				if de.Metadata[k] != v {
					t.Fatalf("metadata[%s] = %q, want %q", k, de.Metadata[k], v)
				}
			}
		})
	}
}

func TestInsufficientStockMessage(t *testing.T) {
	err := ValidateLine("Q2FydEl0ZW06Nw==", &CartItem{Quantity: 9}, &Product{CanPurchase: true, InventoryCount: 4})
	want := `CartItem "Q2FydEl0ZW06Nw==" has only 4 units left.`
	if err == nil || err.Error() != want {
		t.Fatalf("error = %v, want %q", err, want)
	}
}

func TestTotalReferenceFixture(t *testing.T) {
	lines := []Line{
		{Item: CartItem{Quantity: 5}, Product: Product{Price: 10000, Currency: EUR}},
		{Item: CartItem{Quantity: 1}, Product: Product{Price: 80000, Currency: USD}},
	}
	got, err := Total(CAD, lines)
	if err != nil {
		t.Fatal(err)
	}
	if got != 93000 {
		t.Fatalf("Total = %d, want 93000", got)
	}
}

func TestTotalSameCurrency(t *testing.T) {
	lines := []Line{
		{Item: CartItem{Quantity: 2}, Product: Product{Price: 1999, Currency: USD}},
		{Item: CartItem{Quantity: 1}, Product: Product{Price: 1, Currency: USD}},
	}
	got, err := Total(USD, lines)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3999 {
		t.Fatalf("Total = %d, want 3999", got)
	}
}

func TestTotalEmpty(t *testing.T) {
	got, err := Total(EUR, nil)
	if err != nil || got != 0 {
		t.Fatalf("Total(nil) = %d, %v", got, err)
	}
}

func TestTotalOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		cur   Currency
		lines []Line
	}{
		{"sum overflows", USD, []Line{
			{Item: CartItem{Quantity: 3}, Product: Product{Price: math.MaxInt64 / 2, Currency: USD}},
		}},
		{"lines overflow together", USD, []Line{
			{Item: CartItem{Quantity: 1}, Product: Product{Price: math.MaxInt64, Currency: USD}},
			{Item: CartItem{Quantity: 1}, Product: Product{Price: 1, Currency: USD}},
		}},
		{"conversion overflows", USD, []Line{
			{Item: CartItem{Quantity: 1}, Product: Product{Price: math.MaxInt64, Currency: CAD}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Total(tt.cur, tt.lines)
			if !HasCode(err, CodeInvalidArgument) {
				t.Fatalf("Total = %d, %v; want INVALID_ARGUMENT", got, err)
			}
		})
	}
}

func TestTotalAtLimit(t *testing.T) {
	lines := []Line{{Item: CartItem{Quantity: 1}, Product: Product{Price: math.MaxInt64, Currency: EUR}}}
	got, err := Total(EUR, lines)
	if err != nil || got != math.MaxInt64 {
		t.Fatalf("Total = %d, %v", got, err)
	}
}
