package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// ConsolidationRun is one ledger row per executed stage (or per full pipeline run,
// with Stage "run"). Counts holds the stage report as JSON.
type ConsolidationRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ParentID   *uuid.UUID     `gorm:"type:uuid;column:parent_id;index" json:"parent_id,omitempty"`
	Stage      string         `gorm:"column:stage;not null;index" json:"stage"`
	Input      string         `gorm:"column:input" json:"input,omitempty"`
	Output     string         `gorm:"column:output" json:"output,omitempty"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Counts     datatypes.JSON `gorm:"column:counts" json:"counts,omitempty"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	NodesIn    int            `gorm:"column:nodes_in" json:"nodes_in"`
	LinksIn    int            `gorm:"column:links_in" json:"links_in"`
	NodesOut   int            `gorm:"column:nodes_out" json:"nodes_out"`
	LinksOut   int            `gorm:"column:links_out" json:"links_out"`
	StartedAt  time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ConsolidationRun) TableName() string { return "consolidation_run" }

func (r *ConsolidationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	return nil
}
