package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/kgconsolidate/internal/data/repos/jobs"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type RunRepo = jobs.RunRepo
type RunEventRepo = jobs.RunEventRepo

// Repos groups the ledger repositories.
type Repos struct {
	Runs   RunRepo
	Events RunEventRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Runs:   jobs.NewRunRepo(db, log),
		Events: jobs.NewRunEventRepo(db, log),
	}
}
