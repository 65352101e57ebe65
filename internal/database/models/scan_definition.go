package models

type ScanFrequency string

const (
	FrequencyHourly  ScanFrequency = "hourly"
	FrequencyDaily   ScanFrequency = "daily"
	FrequencyWeekly  ScanFrequency = "weekly"
	FrequencyMonthly ScanFrequency = "monthly"
	FrequencyCustom  ScanFrequency = "custom"
)

// ScanDefinition is a recurring certificate scan over a set of targets.
type ScanDefinition struct {
	Base
	Name  string   `gorm:"size:255;not null" json:"name"`
	Hosts []string `gorm:"serializer:json;not null" json:"hosts"`
	Ports []int    `gorm:"serializer:json;not null" json:"ports"`

	// Frequency selects a named cadence; CronExpr carries the raw
	// expression only when Frequency is custom.
	Frequency ScanFrequency `gorm:"size:16;not null" json:"frequency"`
	CronExpr  string        `gorm:"size:100" json:"cron_expr,omitempty"`

	Active bool `gorm:"default:true;index" json:"active"`

	// Timing (Unix timestamps, UTC); scheduler-maintained, never set by callers
	NextRunAt *int64 `gorm:"index" json:"next_run_at,omitempty"`
	LastRunAt *int64 `json:"last_run_at,omitempty"`
}

func (ScanDefinition) TableName() string {
	return "scan_definitions"
}
