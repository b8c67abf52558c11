package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/logging"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(l *slog.Logger, ph *ProductHandler, ch *CartHandler, db Pinger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logging.From(c).Error("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/products", ph.ListProducts)
		v1.POST("/products", ph.CreateProduct)
		v1.GET("/products/:id", ph.GetProduct)
		v1.PATCH("/products/:id", ph.UpdateProduct)
		v1.DELETE("/products/:id", ph.DeleteProduct)
		v1.POST("/products/:id/restock", ph.RestockProduct)

		v1.POST("/cart-items", ch.CreateCartItem)
		v1.GET("/cart-items/:id", ch.GetCartItem)
		v1.PATCH("/cart-items/:id", ch.UpdateCartItem)

		v1.GET("/carts", ch.ListCarts)
		v1.POST("/carts", ch.CreateCart)
		v1.GET("/carts/:id", ch.GetCart)
		v1.DELETE("/carts/:id", ch.DeleteCart)
		v1.POST("/carts/:id/add-items", ch.AddItems)
		v1.POST("/carts/:id/remove-items", ch.RemoveItems)
		v1.POST("/carts/:id/purchase", ch.Purchase)
	}

	return r
}
