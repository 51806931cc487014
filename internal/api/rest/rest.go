package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/pricewatch/catalog-aggregator/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Product endpoints (public read access)
		v1.GET("/products", handler.ListProducts)
		v1.GET("/products/stale", handler.ListStaleProducts)
		v1.GET("/products/:id", handler.GetProduct)
		v1.GET("/products/:id/price-history", handler.GetPriceHistory)

		// Derived change endpoints (public read access)
		v1.GET("/changes", handler.GetChanges)
		v1.GET("/changes/stream", handler.StreamChanges)

		// Catalog statistics (public read access)
		v1.GET("/statistics", handler.GetStatistics)

		// Aggregation run journal (requires authentication)
		v1.GET("/aggregations", middleware.Auth(authCfg), handler.ListAggregations)

		// Provider liveness (requires authentication)
		v1.GET("/providers/health", middleware.Auth(authCfg), handler.ProviderHealth)
	}
}
