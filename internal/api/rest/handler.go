package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/api/executor"
	"github.com/pricewatch/catalog-aggregator/internal/feed"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
)

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// GetProduct retrieves a single product by id
	// GET /api/v1/products/:id
	GetProduct(c *gin.Context)

	// ListProducts retrieves products with optional filters
	// GET /api/v1/products?name=<substr>&min_price=<p>&max_price=<p>&available=<bool>&provider_id=<id>&currency=<ccy>&limit=<limit>&offset=<offset>
	ListProducts(c *gin.Context)

	// GetPriceHistory retrieves a product's price history, newest first
	// GET /api/v1/products/:id/price-history?limit=<limit>
	GetPriceHistory(c *gin.Context)

	// ListStaleProducts retrieves products whose upstream data went stale
	// GET /api/v1/products/stale?limit=<limit>
	ListStaleProducts(c *gin.Context)

	// GetChanges derives price change events for a time window
	// GET /api/v1/changes?start=<rfc3339>&end=<rfc3339>&limit=<limit>
	GetChanges(c *gin.Context)

	// StreamChanges streams price change envelopes over SSE
	// GET /api/v1/changes/stream
	StreamChanges(c *gin.Context)

	// GetStatistics summarizes the catalog
	// GET /api/v1/statistics
	GetStatistics(c *gin.Context)

	// ListAggregations retrieves aggregation job executions
	// GET /api/v1/aggregations?status=<SUCCESS|FAILED>&limit=<limit>&offset=<offset>
	ListAggregations(c *gin.Context)

	// ProviderHealth probes every active provider
	// GET /api/v1/providers/health
	ProviderHealth(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor       executor.Executor
	feedPublisher  *feed.Publisher
	staleThreshold time.Duration
}

// NewHandler creates a new REST API handler
func NewHandler(exec executor.Executor, feedPublisher *feed.Publisher, staleThreshold time.Duration) Handler {
	return &handler{
		executor:       exec,
		feedPublisher:  feedPublisher,
		staleThreshold: staleThreshold,
	}
}

// GetProduct retrieves a single product by id
func (h *handler) GetProduct(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "Product id is required")
		return
	}

	product, err := h.executor.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to get product")
		return
	}
	if product == nil {
		respondNotFound(c, "Product not found")
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListProducts retrieves products with optional filters
func (h *handler) ListProducts(c *gin.Context) {
	filter, err := ParseListProductsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondInternalError(c, err, "Failed to list products")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetPriceHistory retrieves a product's price history
func (h *handler) GetPriceHistory(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "Product id is required")
		return
	}

	limit := capLimit(intQuery(c, "limit", 20))
	history, err := h.executor.GetPriceHistory(c.Request.Context(), id, limit)
	if err != nil {
		respondInternalError(c, err, "Failed to get price history")
		return
	}
	if history == nil {
		respondNotFound(c, "Product not found")
		return
	}

	c.JSON(http.StatusOK, history)
}

// ListStaleProducts retrieves products whose upstream data went stale
func (h *handler) ListStaleProducts(c *gin.Context) {
	limit := capLimit(intQuery(c, "limit", 20))
	olderThan := time.Now().Add(-h.staleThreshold)

	products, err := h.executor.ListStaleProducts(c.Request.Context(), olderThan, limit)
	if err != nil {
		respondInternalError(c, err, "Failed to list stale products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":   products,
		"older_than": olderThan,
	})
}

// GetChanges derives price change events for a time window
func (h *handler) GetChanges(c *gin.Context) {
	start, end, limit, err := ParseChangesQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.GetChanges(c.Request.Context(), start, end, limit)
	if err != nil {
		respondInternalError(c, err, "Failed to get changes")
		return
	}

	c.JSON(http.StatusOK, response)
}

// StreamChanges streams price change envelopes over SSE. The loop ends when
// the client disconnects.
func (h *handler) StreamChanges(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respondInternalError(c, nil, "Streaming not supported")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := newSSESink(c.Writer, flusher)
	if err := h.feedPublisher.Run(c.Request.Context(), sink); err != nil {
		// the subscriber is gone, nothing to answer
		logger.Debug("SSE subscriber loop ended", zap.Error(err))
	}
}

// GetStatistics summarizes the catalog
func (h *handler) GetStatistics(c *gin.Context) {
	stats, err := h.executor.GetStatistics(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to compute statistics")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListAggregations retrieves aggregation job executions
func (h *handler) ListAggregations(c *gin.Context) {
	filter, err := ParseCronLogsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.ListCronLogs(c.Request.Context(), filter)
	if err != nil {
		respondInternalError(c, err, "Failed to list aggregations")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ProviderHealth probes every active provider
func (h *handler) ProviderHealth(c *gin.Context) {
	statuses, err := h.executor.ProviderHealth(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to check providers")
		return
	}

	c.JSON(http.StatusOK, gin.H{"providers": statuses})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	out, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return out
}
