package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

// Open connects to the run ledger. postgres:// and postgresql:// DSNs use
// Postgres; anything else is treated as a SQLite path (":memory:" included).
func Open(logg *logger.Logger, dsn string) (*gorm.DB, error) {
	if logg == nil {
		return nil, fmt.Errorf("db: logger required")
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}

	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		dialector gorm.Dialector
		driver    string
	)
	if IsPostgresDSN(dsn) {
		dialector, driver = postgres.Open(dsn), "postgres"
	} else {
		dialector, driver = sqlite.Open(dsn), "sqlite"
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	logg.With("service", "LedgerDB").Debug("ledger database opened", "driver", driver)
	return db, nil
}

func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
