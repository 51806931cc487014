package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/pricewatch/catalog-aggregator/internal/domain"
)

// CronLog represents the cron_logs table - one row per logical job
// execution. The ID is a deterministic key derived from job type and
// trigger window, which is what makes re-entrant triggers idempotent:
// a second trigger for the same logical run finds the existing row.
type CronLog struct {
	// ID is the deterministic logical key of the execution
	ID string `gorm:"column:id;primaryKey"`
	// Type is the job type this log belongs to
	Type domain.JobType `gorm:"column:type;not null;index:idx_cron_logs_type_status,priority:1"`
	// Status is the outcome of the latest attempt
	Status domain.JobStatus `gorm:"column:status;not null;index:idx_cron_logs_type_status,priority:2"`
	// StartTime is when the latest attempt started
	StartTime time.Time `gorm:"column:start_time;not null;type:timestamptz"`
	// EndTime is when the latest attempt finished
	EndTime time.Time `gorm:"column:end_time;not null;type:timestamptz"`
	// RetryCount is the number of attempts recorded for this logical run
	RetryCount int `gorm:"column:retry_count;not null;default:0"`
	// Result is the opaque job result payload, input included for retries
	Result datatypes.JSON `gorm:"column:result"`
	// Error is the human-readable cause of the latest failure, nil on success
	Error *string `gorm:"column:error"`
	// CreatedAt is the timestamp when this log was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this log was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the CronLog model
func (CronLog) TableName() string {
	return "cron_logs"
}
