package cache

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aq2208/storefront-api/internal/entity"
)

func TestProductEncoding(t *testing.T) {
	p := entity.Product{ID: 7, Title: "Mug", Price: 900, Currency: entity.CAD, InventoryCount: 3, CanPurchase: true}
	raw, err := encodeProduct(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeProduct(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("product mismatch (-want +got):\n%s", diff)
	}
}

func TestKeys(t *testing.T) {
	if got := productKey(42); got != "product:42" {
		t.Errorf("productKey = %q", got)
	}
	if got := lockKey("purchase:1", "k"); got != "idemp:purchase:1:k" {
		t.Errorf("lockKey = %q", got)
	}
	if got := resultKey("purchase:1", "k"); got != "idemp:map:purchase:1:k" {
		t.Errorf("resultKey = %q", got)
	}
}
