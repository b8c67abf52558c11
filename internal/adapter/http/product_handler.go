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

type ProductHandler struct {
	catalog *usecase.Catalog
	timeout time.Duration
}

func NewProductHandler(catalog *usecase.Catalog, timeout time.Duration) *ProductHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProductHandler{catalog: catalog, timeout: timeout}
}

type createProductReq struct {
	Title          string `json:"title" binding:"required"`
	Price          *int64 `json:"price" binding:"required"`
	Currency       string `json:"currency" binding:"required"`
	InventoryCount int    `json:"inventory_count"`
	CanPurchase    *bool  `json:"can_purchase"`
}

type restockReq struct {
	Quantity int `json:"quantity"`
}

// ListProducts filters by any of id, title, inventory_minimum and can_purchase.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var f entity.ProductFilter
	if v, ok := c.GetQuery("id"); ok {
		ref, err := entity.DecodeRef(v, entity.KindProduct)
		if err != nil {
			writeError(c, err)
			return
		}
		f.ID = &ref.ID
	}
	if v, ok := c.GetQuery("title"); ok {
		f.Title = &v
	}
	if v, ok := c.GetQuery("inventory_minimum"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "inventory_minimum must be an integer.")
			return
		}
		f.InventoryMinimum = &n
	}
	if v, ok := c.GetQuery("can_purchase"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "can_purchase must be a boolean.")
			return
		}
		f.CanPurchase = &b
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx, f)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]productDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ref, err := entity.DecodeRef(c.Param("id"), entity.KindProduct)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.GetProduct(ctx, ref.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": toProductDTO(p)})
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title, price and currency are required.")
		return
	}
	in := entity.Product{
		Title:          req.Title,
		Price:          *req.Price,
		Currency:       entity.Currency(req.Currency),
		InventoryCount: req.InventoryCount,
		CanPurchase:    true,
	}
	if req.CanPurchase != nil {
		in.CanPurchase = *req.CanPurchase
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.CreateProduct(ctx, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "product": toProductDTO(p)})
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	ref, err := entity.DecodeRef(c.Param("id"), entity.KindProduct)
	if err != nil {
		writeError(c, err)
		return
	}
	var patch entity.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Malformed product patch.")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.UpdateProduct(ctx, ref.ID, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "product": toProductDTO(p)})
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	ref, err := entity.DecodeRef(c.Param("id"), entity.KindProduct)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.DeleteProduct(ctx, ref.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "product": toProductDTO(p)})
}

func (h *ProductHandler) RestockProduct(c *gin.Context) {
	ref, err := entity.DecodeRef(c.Param("id"), entity.KindProduct)
	if err != nil {
		writeError(c, err)
		return
	}
	var req restockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Malformed restock request.")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.Restock(ctx, ref.ID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "product": toProductDTO(p)})
}
