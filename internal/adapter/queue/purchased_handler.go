package queue

import (
	"context"
	"fmt"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// CartPurchasedHandler evicts the purchased products from the product cache.
type CartPurchasedHandler struct {
	cache usecase.ProductCache
}

func NewCartPurchasedHandler(cache usecase.ProductCache) *CartPurchasedHandler {
	return &CartPurchasedHandler{cache: cache}
}

// HandlePurchased is intended to be used with the JSON adapter (queue.JSONHandler[CartPurchasedMsg]).
func (h *CartPurchasedHandler) HandlePurchased(ctx context.Context, msg usecase.CartPurchasedMsg) error {
	ids := make([]int64, 0, len(msg.Lines))
	for _, l := range msg.Lines {
		ref, ok := entity.ParseRef(l.ProductID, entity.KindProduct)
		if !ok {
			return fmt.Errorf("%w: bad product ref %q", ErrPoison, l.ProductID)
		}
		ids = append(ids, ref.ID)
	}
	return h.cache.Invalidate(ctx, ids...)
}
