package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yungbote/kgconsolidate/internal/config"
	"github.com/yungbote/kgconsolidate/internal/data/db"
	"github.com/yungbote/kgconsolidate/internal/data/graphstore"
	"github.com/yungbote/kgconsolidate/internal/data/repos"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/jobs/runtime"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/naming"
	"github.com/yungbote/kgconsolidate/internal/observability"
	"github.com/yungbote/kgconsolidate/internal/platform/envutil"
	"github.com/yungbote/kgconsolidate/internal/platform/gcp"
	"github.com/yungbote/kgconsolidate/internal/platform/gemini"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
	"github.com/yungbote/kgconsolidate/internal/platform/openai"
)

// app holds the process-wide wiring shared by every subcommand.
type app struct {
	log     *logger.Logger
	cfg     config.Engine
	store   *graphstore.Store
	objects gcp.ObjectStore
	ledger  *repos.Repos
	stdout  io.Writer

	closers []func(context.Context)
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	log, err := logger.New(opts.logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.provider != "" {
		cfg.Embed.Provider = opts.provider
	}
	if opts.naming != "" {
		cfg.Naming.Provider = opts.naming
	}

	a := &app{log: log, cfg: cfg, stdout: os.Stdout}
	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "kgconsolidate",
		Environment: envutil.String("KG_ENV", "local"),
	})
	a.closers = append(a.closers, func(ctx context.Context) { _ = shutdown(ctx) })

	if gcp.IsURI(opts.in) || gcp.IsURI(opts.out) {
		objects, err := gcp.NewObjectStore(ctx, log)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.objects = objects
		a.closers = append(a.closers, func(context.Context) { _ = objects.Close() })
	}
	a.store = graphstore.New(log, a.objects)

	if dsn := envutil.String("KG_DB_DSN", ""); dsn != "" {
		gdb, err := db.Open(log, dsn)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		if err := db.AutoMigrateAll(gdb); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("migrate ledger: %w", err)
		}
		r := repos.New(gdb, log)
		a.ledger = &r
		a.closers = append(a.closers, func(context.Context) {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
	a.log.Sync()
}

// embedder picks the provider named by KG_EMBED_PROVIDER or --provider.
func (a *app) embedder(ctx context.Context) (embed.Provider, error) {
	switch p := strings.ToLower(strings.TrimSpace(a.cfg.Embed.Provider)); p {
	case "openai":
		return openai.NewClient(a.log)
	case "gemini":
		return gemini.NewClient(ctx, a.log, gemini.ConfigFromEnv())
	case "hash":
		return embed.NewStaticProvider(envutil.PositiveInt("KG_HASH_EMBED_DIM", 256)), nil
	case "":
		return nil, types.ErrNoEmbedder
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", p)
	}
}

// namer returns nil for keyword naming; the cluster stage falls back to keywords itself.
func (a *app) namer(ctx context.Context) (naming.Namer, error) {
	opts := naming.ServiceOptions{
		RequestsPerMinute: a.cfg.Naming.RequestsPerMinute,
		MaxSummaryChars:   a.cfg.Naming.MaxSummaryChars,
	}
	switch p := strings.ToLower(strings.TrimSpace(a.cfg.Naming.Provider)); p {
	case "", "keywords":
		return nil, nil
	case "openai":
		c, err := openai.NewClient(a.log)
		if err != nil {
			return nil, err
		}
		return naming.NewServiceNamer(c, a.log, opts), nil
	case "gemini":
		c, err := gemini.NewClient(ctx, a.log, gemini.ConfigFromEnv())
		if err != nil {
			return nil, err
		}
		return naming.NewServiceNamer(c, a.log, opts), nil
	default:
		return nil, fmt.Errorf("unknown naming provider %q", p)
	}
}

func (a *app) jobContext(ctx context.Context) *runtime.Context {
	if a.ledger == nil {
		return runtime.NewContext(ctx, a.log, nil, nil)
	}
	return runtime.NewContext(ctx, a.log, a.ledger.Runs, a.ledger.Events)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
