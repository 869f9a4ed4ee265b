package consolidate

import (
	"context"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/steps"
)

const (
	StageSanitize           = "sanitize"
	StageDedupeNodes        = "dedupe_nodes"
	StageSynthesizeLinks    = "synthesize_links"
	StageDedupeLinks        = "dedupe_links"
	StagePruneLinks         = "prune_links"
	StageBuildClusters      = "build_clusters"
	StageMergeSmallClusters = "merge_small_clusters"
	StageBridgeComponents   = "bridge_components"
	StageRepairOrphans      = "repair_orphans"
)

// A stage reads one snapshot and returns the next plus its counts.
type stageFunc func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error)

type stageDef struct {
	run           stageFunc
	needsEmbedder bool
}

var stageTable = map[string]stageDef{
	StageSanitize: {run: func(_ context.Context, _ *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, rep := g.Sanitize()
		return out, rep, nil
	}},
	StageDedupeNodes: {run: func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, err := steps.DedupeNodes(ctx, steps.DedupeNodesDeps{Log: p.log}, steps.DedupeNodesInput{Graph: g, Config: p.cfg.Dedupe})
		return out.Graph, out, err
	}},
	StageSynthesizeLinks: {needsEmbedder: true, run: func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, err := steps.SynthesizeLinks(ctx, steps.SynthesizeLinksDeps{Log: p.log, Embedder: p.embedder}, steps.SynthesizeLinksInput{
			Graph: g, Config: p.cfg.Link, BatchSize: p.cfg.Embed.BatchSize,
		})
		return out.Graph, out, err
	}},
	StageDedupeLinks: {run: func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, err := steps.DedupeLinks(ctx, steps.DedupeLinksDeps{Log: p.log}, steps.DedupeLinksInput{Graph: g})
		return out.Graph, out, err
	}},
	StagePruneLinks: {run: func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, err := steps.PruneLinks(ctx, steps.PruneLinksDeps{Log: p.log}, steps.PruneLinksInput{Graph: g, Config: p.cfg.Prune})
		return out.Graph, out, err
	}},
	StageBuildClusters: {needsEmbedder: true, run: func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, err := steps.BuildClusters(ctx, steps.BuildClustersDeps{Log: p.log, Embedder: p.embedder, Namer: p.namer}, steps.BuildClustersInput{
			Graph: g, Config: p.cfg.Cluster, BatchSize: p.cfg.Embed.BatchSize,
		})
		return out.Graph, out, err
	}},
	StageMergeSmallClusters: {needsEmbedder: true, run: func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, err := steps.MergeSmallClusters(ctx, steps.MergeSmallClustersDeps{Log: p.log, Embedder: p.embedder}, steps.MergeSmallClustersInput{
			Graph: g, Config: p.cfg.Cluster, BatchSize: p.cfg.Embed.BatchSize,
		})
		return out.Graph, out, err
	}},
	StageBridgeComponents: {needsEmbedder: true, run: func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, err := steps.BridgeComponents(ctx, steps.BridgeComponentsDeps{Log: p.log, Embedder: p.embedder}, steps.BridgeComponentsInput{
			Graph: g, Config: p.cfg.Repair, BatchSize: p.cfg.Embed.BatchSize,
		})
		return out.Graph, out, err
	}},
	StageRepairOrphans: {needsEmbedder: true, run: func(ctx context.Context, p *Pipeline, g types.Graph) (types.Graph, any, error) {
		out, err := steps.RepairOrphans(ctx, steps.RepairOrphansDeps{Log: p.log, Embedder: p.embedder}, steps.RepairOrphansInput{
			Graph: g, Config: p.cfg.Repair, BatchSize: p.cfg.Embed.BatchSize, SkipSemantic: p.structuralOnly,
		})
		return out.Graph, out, err
	}},
}
