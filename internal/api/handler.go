package api

import (
	"net/http"
	"time"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	auth    *service.AuthService
	catalog *service.CatalogService
	orders  *service.OrderService
	stats   *service.StatsService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	catalog *service.CatalogService,
	orders *service.OrderService,
	stats *service.StatsService,
) *Handler {
	return &Handler{
		auth:    auth,
		catalog: catalog,
		orders:  orders,
		stats:   stats,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	categories := router.Group("/categories")
	{
		categories.GET("", h.listCategories)
		categories.GET("/:id", h.getCategory)
		categories.POST("", h.authenticate, h.requireAdmin, h.createCategory)
		categories.PUT("/:id", h.authenticate, h.requireAdmin, h.updateCategory)
		categories.DELETE("/:id", h.authenticate, h.requireAdmin, h.deleteCategory)
	}

	products := router.Group("/products")
	{
		products.GET("", h.optionalAuth, h.listProducts)
		products.GET("/stats", h.authenticate, h.requireAdmin, h.salesStats)
		products.GET("/:id", h.getProduct)
		products.POST("", h.authenticate, h.requireAdmin, h.createProduct)
		products.PUT("/:id", h.authenticate, h.requireAdmin, h.updateProduct)
		products.PATCH("/:id/stock", h.authenticate, h.requireAdmin, h.adjustStock)
		products.PATCH("/:id/tags/add", h.authenticate, h.requireAdmin, h.addTag)
		products.PATCH("/:id/tags/remove", h.authenticate, h.requireAdmin, h.removeTag)
		products.DELETE("/:id", h.authenticate, h.requireAdmin, h.deleteProduct)
	}

	orders := router.Group("/orders", h.authenticate)
	{
		orders.GET("", h.listOrders)
		orders.POST("", h.createOrder)
		orders.GET("/:id", h.getOrder)
		orders.PUT("/:id/status", h.requireAdmin, h.updateOrderStatus)
		orders.DELETE("/:id", h.requireAdmin, h.deleteOrder)
	}
}

// healthCheck handles liveness requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readinessCheck handles readiness requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
