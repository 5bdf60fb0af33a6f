package audit

import (
	"context"
	"time"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record describes one finished completion call. It carries the failure cause
// that the conversation itself never shows.
type Record struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	SessionID uint64 `gorm:"index;not null" json:"session_id"`
	Provider  string `gorm:"type:varchar(32);not null" json:"provider"`
	Model     string `gorm:"type:varchar(128);not null" json:"model"`

	Status Status `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error,omitempty"`

	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Record) TableName() string { return "completion_audit" }

type Recorder interface {
	Save(ctx context.Context, r *Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

type NopRecorder struct{}

func (NopRecorder) Save(context.Context, *Record) error { return nil }

func (NopRecorder) Recent(context.Context, int) ([]Record, error) { return nil, nil }
