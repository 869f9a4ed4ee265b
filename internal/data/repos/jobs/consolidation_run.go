package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/pkg/dbctx"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type RunRepo interface {
	Create(dbc dbctx.Context, run *types.ConsolidationRun) (*types.ConsolidationRun, error)
	Finish(dbc dbctx.Context, id uuid.UUID, status string, counts []byte, nodesOut, linksOut int, runErr string) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ConsolidationRun, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*types.ConsolidationRun, error)
	ListChildren(dbc dbctx.Context, parentID uuid.UUID) ([]*types.ConsolidationRun, error)
}

type runRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunRepo(db *gorm.DB, baseLog *logger.Logger) RunRepo {
	return &runRepo{
		db:  db,
		log: baseLog.With("repo", "RunRepo"),
	}
}

func (r *runRepo) Create(dbc dbctx.Context, run *types.ConsolidationRun) (*types.ConsolidationRun, error) {
	if run == nil {
		return nil, errors.New("run required")
	}
	if run.Status == "" {
		run.Status = types.RunStatusRunning
	}
	if err := dbc.DB(r.db).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *runRepo) Finish(dbc dbctx.Context, id uuid.UUID, status string, counts []byte, nodesOut, linksOut int, runErr string) error {
	if id == uuid.Nil {
		return errors.New("run id required")
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      status,
		"nodes_out":   nodesOut,
		"links_out":   linksOut,
		"error":       runErr,
		"finished_at": now,
		"updated_at":  now,
	}
	if len(counts) > 0 {
		updates["counts"] = datatypes.JSON(counts)
	}
	res := dbc.DB(r.db).Model(&types.ConsolidationRun{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID returns (nil, nil) when the run does not exist.
func (r *runRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ConsolidationRun, error) {
	var run types.ConsolidationRun
	err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

// ListRecent lists top-level runs, newest first.
func (r *runRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.ConsolidationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []*types.ConsolidationRun
	err := dbc.DB(r.db).
		Where("parent_id IS NULL").
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *runRepo) ListChildren(dbc dbctx.Context, parentID uuid.UUID) ([]*types.ConsolidationRun, error) {
	var out []*types.ConsolidationRun
	err := dbc.DB(r.db).
		Where("parent_id = ?", parentID).
		Order("started_at ASC").
		Find(&out).Error
	return out, err
}
