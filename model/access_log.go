package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Alert severity levels, ordered from least to most urgent.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Duration buckets used for latency reporting. Bins are half-open:
// [0,0.1) [0.1,0.5) [0.5,1) [1,2) [2,inf).
const (
	BucketUnder100ms = "<100ms"
	BucketUnder500ms = "<500ms"
	BucketUnder1s    = "<1s"
	BucketUnder2s    = "<2s"
	BucketOver2s     = ">2s"
)

// APIAccessLog is one record per completed request, assembled at response time
// and never mutated after creation.
type APIAccessLog struct {
	ID                      string    `json:"id" gorm:"column:id;type:varchar(36);primaryKey"`
	RequestMethod           string    `json:"request_method" gorm:"column:request_method;type:varchar(10)"`
	URLPath                 string    `json:"url_path" gorm:"column:url_path;type:text;index:idx_access_log_path,length:191"`
	ViewName                string    `json:"view_name" gorm:"column:view_name;type:varchar(255)"`
	ExecutionTime           float64   `json:"execution_time" gorm:"column:execution_time"`
	DurationBucket          string    `json:"duration_bucket" gorm:"column:duration_bucket;type:varchar(20)"`
	MemoryUsage             float64   `json:"memory_usage" gorm:"column:memory_usage"`
	CPUPercent              float64   `json:"cpu_percent" gorm:"column:cpu_percent"`
	StatusCode              int       `json:"status_code" gorm:"column:status_code;index"`
	QueryCount              int       `json:"query_count" gorm:"column:query_count"`
	IsError                 bool      `json:"is_error" gorm:"column:is_error"`
	ErrorType               string    `json:"error_type" gorm:"column:error_type;type:varchar(255)"`
	ErrorDescription        string    `json:"error_description" gorm:"column:error_description;type:text"`
	FingerprintID           string    `json:"fingerprint_id" gorm:"column:fingerprint_id;type:varchar(36);index"`
	IsSuspicious            bool      `json:"is_suspicious" gorm:"column:is_suspicious"`
	SuspiciousReason        string    `json:"suspicious_reason" gorm:"column:suspicious_reason;type:text"`
	IsSQLInjectionSuspected bool      `json:"is_sql_injection_suspected" gorm:"column:is_sql_injection_suspected"`
	SQLInjectionPattern     string    `json:"sql_injection_pattern" gorm:"column:sql_injection_pattern;type:text"`
	Severity                string    `json:"severity" gorm:"column:severity;type:varchar(20);index"`
	CreatedAt               time.Time `json:"created_at" gorm:"column:created_at;index"`
}

func (APIAccessLog) TableName() string {
	return "api_access_logs"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (l *APIAccessLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
