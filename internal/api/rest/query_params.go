package rest

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/pricewatch/catalog-aggregator/internal/domain"
	"github.com/pricewatch/catalog-aggregator/internal/store"
)

const MAX_PAGE_SIZE = 100

// ListProductsQueryParams holds query parameters for GET /products
type ListProductsQueryParams struct {
	Name       string `form:"name"`
	MinPrice   string `form:"min_price"`
	MaxPrice   string `form:"max_price"`
	Available  string `form:"available"`
	ProviderID string `form:"provider_id"`
	Currency   string `form:"currency"`
	Limit      int    `form:"limit,default=20"`
	Offset     int    `form:"offset,default=0"`
}

// ParseListProductsQuery parses and validates GET /products parameters
func ParseListProductsQuery(c *gin.Context) (store.ProductFilter, error) {
	var params ListProductsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return store.ProductFilter{}, err
	}

	filter := store.ProductFilter{
		Name:       params.Name,
		ProviderID: params.ProviderID,
		Currency:   params.Currency,
		Limit:      capLimit(params.Limit),
		Offset:     max(params.Offset, 0),
	}

	if params.MinPrice != "" {
		min, err := decimal.NewFromString(params.MinPrice)
		if err != nil {
			return store.ProductFilter{}, fmt.Errorf("invalid min_price %q", params.MinPrice)
		}
		filter.MinPrice = &min
	}
	if params.MaxPrice != "" {
		max, err := decimal.NewFromString(params.MaxPrice)
		if err != nil {
			return store.ProductFilter{}, fmt.Errorf("invalid max_price %q", params.MaxPrice)
		}
		filter.MaxPrice = &max
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return store.ProductFilter{}, fmt.Errorf("min_price exceeds max_price")
	}

	switch params.Available {
	case "":
	case "true":
		v := true
		filter.Availability = &v
	case "false":
		v := false
		filter.Availability = &v
	default:
		return store.ProductFilter{}, fmt.Errorf("invalid available %q, want true or false", params.Available)
	}

	return filter, nil
}

// ChangesQueryParams holds query parameters for GET /changes
type ChangesQueryParams struct {
	Start string `form:"start"`
	End   string `form:"end"`
	Limit int    `form:"limit,default=100"`
}

// ParseChangesQuery parses GET /changes parameters. Without explicit bounds
// the window is the trailing hour.
func ParseChangesQuery(c *gin.Context) (start, end time.Time, limit int, err error) {
	var params ChangesQueryParams
	if err = c.ShouldBindQuery(&params); err != nil {
		return
	}

	end = time.Now().UTC()
	if params.End != "" {
		end, err = time.Parse(time.RFC3339, params.End)
		if err != nil {
			err = fmt.Errorf("invalid end %q, want RFC3339", params.End)
			return
		}
	}

	start = end.Add(-time.Hour)
	if params.Start != "" {
		start, err = time.Parse(time.RFC3339, params.Start)
		if err != nil {
			err = fmt.Errorf("invalid start %q, want RFC3339", params.Start)
			return
		}
	}

	// the window is inclusive on both ends, so start == end is a valid
	// single-instant query
	if start.After(end) {
		err = fmt.Errorf("start must not be after end")
		return
	}

	limit = capLimit(params.Limit)
	return
}

// CronLogsQueryParams holds query parameters for GET /aggregations
type CronLogsQueryParams struct {
	Status string `form:"status"`
	Limit  int    `form:"limit,default=20"`
	Offset int    `form:"offset,default=0"`
}

// ParseCronLogsQuery parses and validates GET /aggregations parameters
func ParseCronLogsQuery(c *gin.Context) (store.CronLogFilter, error) {
	var params CronLogsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return store.CronLogFilter{}, err
	}

	filter := store.CronLogFilter{
		Type:   domain.JobTypeProductAggregation,
		Limit:  capLimit(params.Limit),
		Offset: max(params.Offset, 0),
	}

	switch params.Status {
	case "":
	case string(domain.JobStatusSuccess), string(domain.JobStatusFailed):
		filter.Status = domain.JobStatus(params.Status)
	default:
		return store.CronLogFilter{}, fmt.Errorf("invalid status %q", params.Status)
	}

	return filter, nil
}

func capLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > MAX_PAGE_SIZE {
		return MAX_PAGE_SIZE
	}
	return limit
}
