package kafka

import (
	"context"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// Restocker is satisfied by usecase.Catalog.
type Restocker interface {
	Restock(ctx context.Context, id int64, qty int) (entity.Product, error)
}

type RestockHandler struct {
	catalog Restocker
}

func NewRestockHandler(catalog Restocker) *RestockHandler {
	return &RestockHandler{catalog: catalog}
}

// Handle applies one inventory.restocked event. Events that can never apply
// (unknown product, bad quantity) are logged and skipped; anything else is
// returned so the message is redelivered.
func (h *RestockHandler) Handle(ctx context.Context, ev usecase.RestockMsg) error {
	log := logging.FromCtx(ctx)
	ref, ok := entity.ParseRef(ev.ProductID, entity.KindProduct)
	if !ok {
		log.Warn("restock for malformed product ref", "product", ev.ProductID)
		return nil
	}
	_, err := h.catalog.Restock(ctx, ref.ID, ev.Quantity)
	switch entity.CodeOf(err) {
	case entity.CodeNotFound, entity.CodeInvalidArgument:
		log.Warn("restock skipped", "product", ev.ProductID, "quantity", ev.Quantity, "err", err)
		return nil
	}
	return err
}
