package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/kgconsolidate/internal/config"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/jobs/pipeline/consolidate"
)

type stageRun struct {
	name           string
	stages         []string
	structuralOnly bool
	// tune applies command flags on top of the environment config.
	tune func(cmd *cobra.Command, cfg *config.Engine)
	// full prints the whole report instead of the single stage's counts.
	full bool
}

func runStages(cmd *cobra.Command, opts *rootOptions, sr stageRun) error {
	return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
		if sr.tune != nil {
			sr.tune(cmd, &a.cfg)
		}
		stages := sr.stages
		if len(stages) == 0 {
			stages = consolidate.StageOrder(a.log)
		}
		g, err := loadForStages(ctx, a, opts.in, stages)
		if err != nil {
			return err
		}
		deps := consolidate.Deps{
			Log:            a.log,
			Config:         a.cfg,
			Stages:         stages,
			StructuralOnly: sr.structuralOnly,
			Commit: func(ctx context.Context, out types.Graph) error {
				return a.store.Save(ctx, opts.out, out)
			},
		}
		if consolidate.NeedsEmbedder(stages, sr.structuralOnly) {
			if deps.Embedder, err = a.embedder(ctx); err != nil {
				return err
			}
		}
		for _, s := range stages {
			if s == consolidate.StageBuildClusters {
				if deps.Namer, err = a.namer(ctx); err != nil {
					return err
				}
			}
		}
		p, err := consolidate.New(deps)
		if err != nil {
			return err
		}

		jc := a.jobContext(ctx)
		if err := jc.Start(sr.name, opts.in, opts.out, len(g.Nodes), len(g.Links)); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
		_, report, err := p.Run(jc, g)
		if err != nil {
			return err
		}
		if sr.full || len(report.Stages) != 1 {
			return a.printJSON(report)
		}
		return a.printJSON(report.Stages[0].Counts)
	})
}

// loadForStages leaves sanitizing to the pipeline when it runs first, so its
// counts land in the stage report and the run ledger.
func loadForStages(ctx context.Context, a *app, in string, stages []string) (types.Graph, error) {
	if len(stages) > 0 && stages[0] == consolidate.StageSanitize {
		return a.store.LoadRaw(ctx, in)
	}
	g, _, err := a.store.Load(ctx, in)
	return g, err
}

func newDedupeNodesCmd(opts *rootOptions) *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "dedupe-nodes",
		Short: "Merge or disambiguate nodes that share a name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, opts, stageRun{
				name:   consolidate.StageDedupeNodes,
				stages: []string{consolidate.StageDedupeNodes},
				tune: func(cmd *cobra.Command, cfg *config.Engine) {
					if cmd.Flags().Changed("threshold") {
						cfg.Dedupe.MergeThreshold = threshold
					}
				},
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0.8, "description similarity needed to merge a name group")
	return cmd
}

func newLinkCmd(opts *rootOptions) *cobra.Command {
	var (
		topK      int
		minSim    float64
		degreeCap int
		noKeyword bool
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Add semantically_similar links between embedding neighbours",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, opts, stageRun{
				name:   consolidate.StageSynthesizeLinks,
				stages: []string{consolidate.StageSynthesizeLinks},
				tune: func(cmd *cobra.Command, cfg *config.Engine) {
					f := cmd.Flags()
					if f.Changed("top-k") {
						cfg.Link.TopK = topK
					}
					if f.Changed("min-similarity") {
						cfg.Link.MinSimilarity = minSim
					}
					if f.Changed("degree-cap") {
						cfg.Link.DegreeCap = degreeCap
					}
					if noKeyword {
						cfg.Link.KeywordFilter = false
					}
				},
			})
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 5, "neighbours considered per node")
	cmd.Flags().Float64Var(&minSim, "min-similarity", 0.5, "minimum cosine similarity")
	cmd.Flags().IntVar(&degreeCap, "degree-cap", 3, "maximum semantic links per node")
	cmd.Flags().BoolVar(&noKeyword, "no-keyword-filter", false, "do not require a shared keyword")
	return cmd
}

func newDedupeLinksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe-links",
		Short: "Collapse duplicate and reversed links; report type conflicts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, opts, stageRun{
				name:   consolidate.StageDedupeLinks,
				stages: []string{consolidate.StageDedupeLinks},
			})
		},
	}
}

func newPruneLinksCmd(opts *rootOptions) *cobra.Command {
	var maxPerNode int
	cmd := &cobra.Command{
		Use:   "prune-links",
		Short: "Drop hierarchical semantic links and cap semantic degree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, opts, stageRun{
				name:   consolidate.StagePruneLinks,
				stages: []string{consolidate.StagePruneLinks},
				tune: func(cmd *cobra.Command, cfg *config.Engine) {
					if cmd.Flags().Changed("max-per-node") {
						cfg.Prune.MaxPerNode = maxPerNode
					}
				},
			})
		},
	}
	cmd.Flags().IntVar(&maxPerNode, "max-per-node", 3, "semantic links kept per node")
	return cmd
}

func newClusterCmd(opts *rootOptions) *cobra.Command {
	var (
		threshold float64
		minSize   int
	)
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Rebuild high-level topics by agglomerative clustering",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, opts, stageRun{
				name:   consolidate.StageBuildClusters,
				stages: []string{consolidate.StageBuildClusters},
				tune: func(cmd *cobra.Command, cfg *config.Engine) {
					if cmd.Flags().Changed("threshold") {
						cfg.Cluster.SimilarityThreshold = threshold
					}
					if cmd.Flags().Changed("min-size") {
						cfg.Cluster.MinSize = minSize
					}
				},
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0.7, "average similarity needed to join clusters")
	cmd.Flags().IntVar(&minSize, "min-size", 3, "smallest cluster kept")
	return cmd
}

func newMergeClustersCmd(opts *rootOptions) *cobra.Command {
	var (
		smallSize int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "merge-clusters",
		Short: "Fold small high-level topics into their closest large topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, opts, stageRun{
				name:   consolidate.StageMergeSmallClusters,
				stages: []string{consolidate.StageMergeSmallClusters},
				tune: func(cmd *cobra.Command, cfg *config.Engine) {
					if cmd.Flags().Changed("small-size") {
						cfg.Cluster.SmallSize = smallSize
					}
					if cmd.Flags().Changed("threshold") {
						cfg.Cluster.MergeThreshold = threshold
					}
				},
			})
		},
	}
	cmd.Flags().IntVar(&smallSize, "small-size", 10, "topics with fewer members are small")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "mean similarity needed to merge")
	return cmd
}

func newBridgeCmd(opts *rootOptions) *cobra.Command {
	var (
		threshold     float64
		minComponents int
	)
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Link disconnected components to the main component",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, opts, stageRun{
				name:   consolidate.StageBridgeComponents,
				stages: []string{consolidate.StageBridgeComponents},
				tune: func(cmd *cobra.Command, cfg *config.Engine) {
					if cmd.Flags().Changed("threshold") {
						cfg.Repair.BridgeThreshold = threshold
					}
					if cmd.Flags().Changed("min-components") {
						cfg.Repair.MinComponents = minComponents
					}
				},
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0.25, "similarity needed for a bridge link")
	cmd.Flags().IntVar(&minComponents, "min-components", 3, "only bridge when there are more components than this")
	return cmd
}

func newOrphansCmd(opts *rootOptions) *cobra.Command {
	var (
		threshold      float64
		structuralOnly bool
	)
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Give hierarchy orphans a sub topic parent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, opts, stageRun{
				name:           consolidate.StageRepairOrphans,
				stages:         []string{consolidate.StageRepairOrphans},
				structuralOnly: structuralOnly,
				tune: func(cmd *cobra.Command, cfg *config.Engine) {
					if cmd.Flags().Changed("threshold") {
						cfg.Repair.ParentThreshold = threshold
					}
				},
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0.25, "similarity needed for a semantic parent")
	cmd.Flags().BoolVar(&structuralOnly, "structural-only", false, "only add links implied by dotted ids")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var stages string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the consolidation pipeline",
		Long: `Run executes the stages of the embedded pipeline.yaml (or KG_PIPELINE_YAML)
in order. Each stage works on the previous stage's output; --out is written only
after every stage succeeds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list []string
			for _, s := range strings.Split(stages, ",") {
				if s = strings.TrimSpace(s); s != "" {
					list = append(list, s)
				}
			}
			return runStages(cmd, opts, stageRun{name: "run", stages: list, full: true})
		},
	}
	cmd.Flags().StringVar(&stages, "stages", "", "comma separated stage subset (default: pipeline order)")
	return cmd
}
