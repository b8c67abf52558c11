package http

import (
	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type productDTO struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Price          int64  `json:"price"`
	Currency       string `json:"currency"`
	InventoryCount int    `json:"inventory_count"`
	CanPurchase    bool   `json:"can_purchase"`
}

func toProductDTO(p entity.Product) productDTO {
	return productDTO{
		ID:             p.Ref().String(),
		Title:          p.Title,
		Price:          p.Price,
		Currency:       string(p.Currency),
		InventoryCount: p.InventoryCount,
		CanPurchase:    p.CanPurchase,
	}
}

type cartItemDTO struct {
	ID       string  `json:"id"`
	Cart     *string `json:"cart"`
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
}

func toCartItemDTO(it entity.CartItem) cartItemDTO {
	out := cartItemDTO{
		ID:       it.Ref().String(),
		Product:  entity.NewRef(entity.KindProduct, it.ProductID).String(),
		Quantity: it.Quantity,
	}
	if it.CartID != nil {
		ref := entity.NewRef(entity.KindCart, *it.CartID).String()
		out.Cart = &ref
	}
	return out
}

type lineDTO struct {
	ID       string     `json:"id"`
	Quantity int        `json:"quantity"`
	Product  productDTO `json:"product"`
}

type cartDTO struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Currency  string    `json:"currency"`
	Items     []lineDTO `json:"items"`
	Total     int64     `json:"total"`
	CreatedAt int64     `json:"created_at"`
}

func toCartDTO(v usecase.CartView) cartDTO {
	out := cartDTO{
		ID:        v.Cart.Ref().String(),
		UserID:    v.Cart.UserID,
		Currency:  string(v.Cart.Currency),
		Items:     make([]lineDTO, 0, len(v.Lines)),
		Total:     v.Total,
		CreatedAt: v.Cart.CreatedAt.UnixMilli(),
	}
	for _, l := range v.Lines {
		out.Items = append(out.Items, lineDTO{
			ID:       l.Item.Ref().String(),
			Quantity: l.Item.Quantity,
			Product:  toProductDTO(l.Product),
		})
	}
	return out
}
