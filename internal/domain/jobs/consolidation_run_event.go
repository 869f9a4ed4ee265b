package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RunEventKind string

const (
	RunEventStarted   RunEventKind = "started"
	RunEventProgress  RunEventKind = "progress"
	RunEventFailed    RunEventKind = "failed"
	RunEventSucceeded RunEventKind = "succeeded"
)

// ConsolidationRunEvent is an append-only timeline of a run's progress messages.
type ConsolidationRunEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"run_id"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"`
	Stage     string         `gorm:"column:stage;not null" json:"stage"`
	Message   string         `gorm:"column:message" json:"message,omitempty"`
	Data      datatypes.JSON `gorm:"column:data" json:"data,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ConsolidationRunEvent) TableName() string { return "consolidation_run_event" }

func (e *ConsolidationRunEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
