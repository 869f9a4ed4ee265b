package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/pkg/dbctx"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type RunEventRepo interface {
	Append(dbc dbctx.Context, runID uuid.UUID, kind types.RunEventKind, stage, message string, data any) error
	ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.ConsolidationRunEvent, error)
}

type runEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunEventRepo(db *gorm.DB, baseLog *logger.Logger) RunEventRepo {
	return &runEventRepo{
		db:  db,
		log: baseLog.With("repo", "RunEventRepo"),
	}
}

func (r *runEventRepo) Append(dbc dbctx.Context, runID uuid.UUID, kind types.RunEventKind, stage, message string, data any) error {
	ev := &types.ConsolidationRunEvent{
		ID:        uuid.New(),
		RunID:     runID,
		Kind:      string(kind),
		Stage:     stage,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			r.log.Warn("run event data not encodable", "run_id", runID, "error", err)
		} else {
			ev.Data = datatypes.JSON(b)
		}
	}
	return dbc.DB(r.db).Create(ev).Error
}

func (r *runEventRepo) ListByRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.ConsolidationRunEvent, error) {
	var out []*types.ConsolidationRunEvent
	err := dbc.DB(r.db).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
