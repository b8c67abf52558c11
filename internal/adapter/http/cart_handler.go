package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type CartHandler struct {
	carts   *usecase.Carts
	timeout time.Duration
}

func NewCartHandler(carts *usecase.Carts, timeout time.Duration) *CartHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &CartHandler{carts: carts, timeout: timeout}
}

type createCartItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemReq struct {
	ProductID entity.Optional[string] `json:"product_id"`
	Quantity  entity.Optional[int]    `json:"quantity"`
}

type createCartReq struct {
	UserID   *int64   `json:"user_id" binding:"required"`
	Currency string   `json:"currency" binding:"required"`
	Items    []string `json:"items"`
}

type itemsReq struct {
	Items []string `json:"items"`
}

func (h *CartHandler) CreateCartItem(c *gin.Context) {
	var req createCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Malformed cart item.")
		return
	}
	pid, err := entity.ParseProductID(req.ProductID)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	it, err := h.carts.CreateCartItem(ctx, pid, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "cart_item": toCartItemDTO(it)})
}

func (h *CartHandler) GetCartItem(c *gin.Context) {
	ref, err := entity.DecodeRef(c.Param("id"), entity.KindCartItem)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	it, err := h.carts.GetCartItem(ctx, ref.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart_item": toCartItemDTO(it)})
}

func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	ref, err := entity.DecodeRef(c.Param("id"), entity.KindCartItem)
	if err != nil {
		writeError(c, err)
		return
	}
	var req updateCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Malformed cart item patch.")
		return
	}
	patch := entity.CartItemPatch{Quantity: req.Quantity}
	switch {
	case req.ProductID.IsNull():
		patch.ProductID = entity.Null[int64]()
	case req.ProductID.IsSet():
		v, _ := req.ProductID.Get()
		pid, err := entity.ParseProductID(v)
		if err != nil {
			writeError(c, err)
			return
		}
		patch.ProductID = entity.Some(pid)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	it, err := h.carts.UpdateCartItem(ctx, ref.ID, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cart_item": toCartItemDTO(it)})
}

func (h *CartHandler) CreateCart(c *gin.Context) {
	var req createCartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id and currency are required.")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	v, err := h.carts.CreateCart(ctx, *req.UserID, entity.Currency(req.Currency), req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "cart": toCartDTO(v)})
}

func (h *CartHandler) ListCarts(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		badRequest(c, "user_id must be an integer.")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	views, err := h.carts.ListCarts(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]cartDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toCartDTO(v))
	}
	c.JSON(http.StatusOK, gin.H{"carts": out})
}

func (h *CartHandler) GetCart(c *gin.Context) {
	h.withCart(c, func(ctx context.Context, id int64) (usecase.CartView, error) {
		return h.carts.GetCart(ctx, id)
	}, false)
}

func (h *CartHandler) DeleteCart(c *gin.Context) {
	h.withCart(c, func(ctx context.Context, id int64) (usecase.CartView, error) {
		return h.carts.DeleteCart(ctx, id)
	}, true)
}

func (h *CartHandler) AddItems(c *gin.Context) {
	var req itemsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "items must be a list of cart item ids.")
		return
	}
	h.withCart(c, func(ctx context.Context, id int64) (usecase.CartView, error) {
		return h.carts.AddItems(ctx, id, req.Items)
	}, true)
}

func (h *CartHandler) RemoveItems(c *gin.Context) {
	var req itemsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "items must be a list of cart item ids.")
		return
	}
	h.withCart(c, func(ctx context.Context, id int64) (usecase.CartView, error) {
		return h.carts.RemoveItems(ctx, id, req.Items)
	}, true)
}

// Purchase honours an optional Idempotency-Key header.
func (h *CartHandler) Purchase(c *gin.Context) {
	idemKey := c.GetHeader("Idempotency-Key")
	h.withCart(c, func(ctx context.Context, id int64) (usecase.CartView, error) {
		return h.carts.Purchase(ctx, id, idemKey)
	}, true)
}

func (h *CartHandler) withCart(c *gin.Context, fn func(ctx context.Context, id int64) (usecase.CartView, error), mutation bool) {
	ref, err := entity.DecodeRef(c.Param("id"), entity.KindCart)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	v, err := fn(ctx, ref.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if mutation {
		c.JSON(http.StatusOK, gin.H{"ok": true, "cart": toCartDTO(v)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": toCartDTO(v)})
}
