package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// JobType identifies a kind of recurring job.
type JobType string

const (
	JobTypeProductAggregation JobType = "product_aggregation"
)

// JobStatus is the terminal status of one job attempt.
type JobStatus string

const (
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// NormalizedProduct is the canonical product shape every provider record is
// mapped into before it reaches the aggregation engine. It is transient and
// never persisted as-is.
type NormalizedProduct struct {
	ExternalID   string          `json:"external_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Availability bool            `json:"availability"`
	LastUpdated  time.Time       `json:"last_updated"`
	ProviderID   string          `json:"provider_id"`
}

// Validate reports whether the normalized record has all required fields.
// Partial records are rejected rather than silently stored.
func (p *NormalizedProduct) Validate() error {
	if p.ExternalID == "" {
		return fmt.Errorf("%w: missing external id", ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: missing name for %q", ErrValidation, p.ExternalID)
	}
	if p.Currency == "" {
		return fmt.Errorf("%w: missing currency for %q", ErrValidation, p.ExternalID)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for %q", ErrValidation, p.ExternalID)
	}
	if p.LastUpdated.IsZero() {
		return fmt.Errorf("%w: missing last updated timestamp for %q", ErrValidation, p.ExternalID)
	}
	if p.ProviderID == "" {
		return fmt.Errorf("%w: missing provider id for %q", ErrValidation, p.ExternalID)
	}
	return nil
}

// PriceChange is one observed price transition between two consecutive
// history rows of a product. It is derived at read time and never stored.
type PriceChange struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	ProviderName     string          `json:"provider_name"`
	OldPrice         decimal.Decimal `json:"old_price"`
	NewPrice         decimal.Decimal `json:"new_price"`
	Currency         string          `json:"currency"`
	ChangePercentage decimal.Decimal `json:"change_percentage"`
	Timestamp        time.Time       `json:"timestamp"`
}

// ChangePercentage computes (new - old) / old * 100 rounded to two decimal
// places. The caller must guarantee old is non-zero.
func ChangePercentage(oldPrice, newPrice decimal.Decimal) decimal.Decimal {
	return newPrice.Sub(oldPrice).
		Div(oldPrice).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// JobResult is the opaque payload persisted with a cron log. Input carries
// the original job input so a retry can re-run with the same arguments.
type JobResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Input   any    `json:"input,omitempty"`
}

// StatusFromResult maps a job result onto the persisted log status.
func StatusFromResult(r JobResult) JobStatus {
	if r.Success {
		return JobStatusSuccess
	}
	return JobStatusFailed
}

var (
	// ErrProviderUnavailable marks a transport or auth failure of a single
	// upstream provider. It is local to that provider and never aborts a
	// whole aggregation run.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrValidation marks a malformed normalized record. The record is
	// skipped; the rest of the batch proceeds.
	ErrValidation = errors.New("validation failed")

	// ErrAggregation marks a failure of the aggregation run itself, i.e.
	// the provider list could not be read.
	ErrAggregation = errors.New("aggregation failed")
)
