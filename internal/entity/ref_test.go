package entity

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestRefRoundTrip(t *testing.T) {
	r := NewRef(KindCartItem, 42)
	if got := r.String(); got != base64.StdEncoding.EncodeToString([]byte("CartItem:42")) {
		t.Fatalf("String() = %q", got)
	}
	back, ok := ParseRef(r.String(), KindCartItem)
	if !ok || back != r {
		t.Fatalf("ParseRef = %+v, %v", back, ok)
	}
}

func TestParseRefRejects(t *testing.T) {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	for _, in := range []string{
		"",
		"not base64!!",
		enc("CartItem"),
		enc("CartItem:abc"),
		enc("CartItem:-1"),
		enc("CartItem:0"),
		enc("Product:3"),
	} {
		if _, ok := ParseRef(in, KindCartItem); ok {
			t.Errorf("ParseRef(%q) accepted", in)
		}
	}
}

func TestDecodeRefErrors(t *testing.T) {
	if _, err := DecodeRef("garbage", KindCartItem); !HasCode(err, CodeItemNotFound) {
		t.Fatalf("cart item: %v", err)
	}
	if _, err := DecodeRef("garbage", KindCart); !HasCode(err, CodeNotFound) {
		t.Fatalf("cart: %v", err)
	}
}

func TestOptionalPresence(t *testing.T) {
	var patch ProductPatch
	if err := json.Unmarshal([]byte(`{"price": 0, "title": null}`), &patch); err != nil {
		t.Fatal(err)
	}
	if v, ok := patch.Price.Get(); !ok || v != 0 {
		t.Fatalf("price = %v, %v; want present zero", v, ok)
	}
	if !patch.Title.IsNull() {
		t.Fatalf("title should be an explicit null")
	}
	if patch.InventoryCount.IsSet() {
		t.Fatalf("inventory_count should be absent")
	}

	p := Product{Title: "Shoe", Price: 500, Currency: USD, InventoryCount: 1}
	if err := patch.Apply(&p); !HasCode(err, CodeInvalidArgument) {
		t.Fatalf("Apply with null title error = %v", err)
	}
}

func TestProductPatchApply(t *testing.T) {
	p := Product{Title: "Shoe", Price: 500, Currency: USD, InventoryCount: 1, CanPurchase: true}
	patch := ProductPatch{
		Price:       Some[int64](0),
		Currency:    Some(Currency("eur")),
		CanPurchase: Some(false),
	}
	if err := patch.Apply(&p); err != nil {
		t.Fatal(err)
	}
	want := Product{Title: "Shoe", Price: 0, Currency: EUR, InventoryCount: 1, CanPurchase: false}
	if p != want {
		t.Fatalf("got %+v, want %+v", p, want)
	}

	neg := ProductPatch{InventoryCount: Some(-1)}
	if err := neg.Apply(&p); !HasCode(err, CodeInvalidArgument) {
		t.Fatalf("negative inventory error = %v", err)
	}
}
