package consolidate

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/jobs/runtime"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/embed"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/naming"
	"github.com/yungbote/kgconsolidate/internal/observability"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

type Deps struct {
	Log      *logger.Logger
	Embedder embed.Provider
	Namer    naming.Namer
	Config   config.Engine
	// Stages overrides the YAML order when non-empty.
	Stages []string
	// StructuralOnly limits orphan repair to missing hierarchy links.
	StructuralOnly bool
	// Commit, when set, persists the final graph before the run is marked succeeded.
	Commit func(ctx context.Context, g types.Graph) error
}

type StageReport struct {
	Name       string `json:"name"`
	NodesIn    int    `json:"nodes_in"`
	LinksIn    int    `json:"links_in"`
	NodesOut   int    `json:"nodes_out"`
	LinksOut   int    `json:"links_out"`
	DurationMS int64  `json:"duration_ms"`
	Counts     any    `json:"counts"`
}

type Report struct {
	Stages         []StageReport `json:"stages"`
	EmbeddingCalls int           `json:"embedding_calls"`
}

type Pipeline struct {
	log      *logger.Logger
	cfg      config.Engine
	embedder embed.Provider
	cache    *embed.Cache
	namer    naming.Namer
	stages   []string
	commit   func(ctx context.Context, g types.Graph) error

	structuralOnly bool
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("consolidate: missing deps")
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}
	order := deps.Stages
	if len(order) == 0 {
		order = StageOrder(deps.Log)
	}
	for _, name := range order {
		if _, ok := stageTable[name]; !ok {
			return nil, fmt.Errorf("consolidate: %w: %s", types.ErrUnknownStage, name)
		}
	}
	p := &Pipeline{
		log:    deps.Log.With("pipeline", "consolidate"),
		cfg:    deps.Config,
		namer:  deps.Namer,
		stages: append([]string{}, order...),
		commit: deps.Commit,

		structuralOnly: deps.StructuralOnly,
	}
	if deps.Embedder != nil {
		// Stages embed the same node texts repeatedly within one run.
		p.cache = embed.NewCache(deps.Embedder)
		p.embedder = p.cache
	} else if NeedsEmbedder(order, deps.StructuralOnly) {
		return nil, fmt.Errorf("consolidate: %w", types.ErrNoEmbedder)
	}
	return p, nil
}

// NeedsEmbedder reports whether any of the stages calls the embedding provider.
func NeedsEmbedder(stages []string, structuralOnly bool) bool {
	for _, name := range stages {
		if name == StageRepairOrphans && structuralOnly {
			continue
		}
		if stageTable[name].needsEmbedder {
			return true
		}
	}
	return false
}

func (p *Pipeline) Stages() []string { return append([]string{}, p.stages...) }

// Run executes every stage on the previous stage's snapshot. On failure the
// input graph is returned unchanged together with the partial report.
func (p *Pipeline) Run(jc *runtime.Context, in types.Graph) (types.Graph, Report, error) {
	report := Report{}
	if jc == nil {
		jc = runtime.NewContext(context.Background(), p.log, nil, nil)
	}
	if jc.Run == nil {
		if err := jc.Start("run", "", "", len(in.Nodes), len(in.Links)); err != nil {
			return in, report, fmt.Errorf("consolidate: start run: %w", err)
		}
	}

	cur := in
	for _, name := range p.stages {
		if err := jc.Ctx.Err(); err != nil {
			jc.Fail(name, err)
			return in, report, err
		}
		def := stageTable[name]
		sr := StageReport{Name: name, NodesIn: len(cur.Nodes), LinksIn: len(cur.Links)}
		child := jc.StartStage(name, sr.NodesIn, sr.LinksIn)
		ctx, span := observability.StartStage(jc.Ctx, name)
		start := time.Now()

		next, counts, err := def.run(ctx, p, cur)

		sr.DurationMS = time.Since(start).Milliseconds()
		sr.Counts = counts
		if err == nil {
			sr.NodesOut, sr.LinksOut = len(next.Nodes), len(next.Links)
		}
		observability.EndStage(span, err, map[string]int{
			"nodes_in":  sr.NodesIn,
			"links_in":  sr.LinksIn,
			"nodes_out": sr.NodesOut,
			"links_out": sr.LinksOut,
		})
		jc.FinishStage(child, counts, sr.NodesOut, sr.LinksOut, err)
		report.Stages = append(report.Stages, sr)
		if err != nil {
			err = fmt.Errorf("consolidate: stage %s: %w", name, err)
			jc.Fail(name, err)
			return in, report, err
		}
		jc.Progress(name, "stage finished", map[string]int{"nodes": sr.NodesOut, "links": sr.LinksOut})
		cur = next
	}
	if p.cache != nil {
		report.EmbeddingCalls = p.cache.Misses()
	}
	if p.commit != nil {
		if err := p.commit(jc.Ctx, cur); err != nil {
			err = fmt.Errorf("consolidate: commit: %w", err)
			jc.Fail("commit", err)
			return in, report, err
		}
	}
	jc.Succeed(report, len(cur.Nodes), len(cur.Links))
	p.log.Info("consolidation finished",
		"stages", len(report.Stages),
		"nodes_in", len(in.Nodes),
		"links_in", len(in.Links),
		"nodes_out", len(cur.Nodes),
		"links_out", len(cur.Links),
	)
	return cur, report, nil
}
