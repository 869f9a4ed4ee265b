package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/kgconsolidate/internal/data/graph"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/modules/consolidation/steps"
	"github.com/yungbote/kgconsolidate/internal/observability"
	"github.com/yungbote/kgconsolidate/internal/pkg/dbctx"
	"github.com/yungbote/kgconsolidate/internal/platform/neo4jdb"
)

func newConflictsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List node pairs joined by links of different types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				g, _, err := a.store.Load(ctx, opts.in)
				if err != nil {
					return err
				}
				conflicts := steps.FindConflicts(g)
				if conflicts == nil {
					conflicts = []steps.Conflict{}
				}
				return a.printJSON(conflicts)
			})
		},
	}
}

type resolveReport struct {
	Resolution string `json:"resolution"`
	Resolved   int    `json:"resolved"`
	Removed    int    `json:"removed"`
}

func newResolveConflictCmd(opts *rootOptions) *cobra.Command {
	var (
		source     string
		target     string
		resolution string
		all        bool
	)
	cmd := &cobra.Command{
		Use:   "resolve-conflict",
		Short: "Apply a resolution to one conflicting pair, or to all of them",
		Long: `Resolutions:
  keep_first   keep the first link of the pair in document order
  keep_last    keep the last link of the pair in document order
  delete_both  remove every link between the pair
  keep_all     leave the pair as it is`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := steps.ParseResolution(resolution)
			if err != nil {
				return err
			}
			if !all && (source == "" || target == "") {
				return fmt.Errorf("either --all or both --a and --b are required")
			}
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				g, _, err := a.store.Load(ctx, opts.in)
				if err != nil {
					return err
				}
				rep := resolveReport{Resolution: string(r)}
				want := types.PairKey{}
				if !all {
					want = steps.Conflict{A: source, B: target}.Pair()
				}
				for _, c := range steps.FindConflicts(g) {
					if !all && c.Pair() != want {
						continue
					}
					var removed int
					if g, removed, err = steps.ResolveConflict(g, c, r); err != nil {
						return err
					}
					rep.Resolved++
					rep.Removed += removed
				}
				if !all && rep.Resolved == 0 {
					return fmt.Errorf("no conflict between %s and %s", source, target)
				}
				if err := a.store.Save(ctx, opts.out, g); err != nil {
					return err
				}
				return a.printJSON(rep)
			})
		},
	}
	cmd.Flags().StringVar(&source, "a", "", "one node id of the pair")
	cmd.Flags().StringVar(&target, "b", "", "the other node id of the pair")
	cmd.Flags().StringVar(&resolution, "resolution", string(steps.ResolveKeepFirst), "keep_first, keep_last, delete_both or keep_all")
	cmd.Flags().BoolVar(&all, "all", false, "apply the resolution to every conflict")
	return cmd
}

func newDuplicateIDsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate-ids",
		Short: "List nodes that share an id, with every member's fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				g, err := a.store.LoadRaw(ctx, opts.in)
				if err != nil {
					return err
				}
				groups := g.DuplicateIDs()
				if groups == nil {
					groups = []types.DuplicateIDGroup{}
				}
				return a.printJSON(groups)
			})
		},
	}
}

func newResolveDuplicateIDCmd(opts *rootOptions) *cobra.Command {
	var (
		id         string
		resolution string
		all        bool
	)
	cmd := &cobra.Command{
		Use:   "resolve-duplicate-id",
		Short: "Settle nodes that share an id before they are sanitized away",
		Long: `Resolutions:
  keep_first  keep the first node with the id in document order
  keep_last   keep the last node with the id in document order
  merge       fold the later nodes' urls and descriptions into the first
  reassign    give each later node a fresh id by bumping its last segment`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := steps.ParseIDResolution(resolution)
			if err != nil {
				return err
			}
			if !all && id == "" {
				return fmt.Errorf("either --all or --id is required")
			}
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				g, err := a.store.LoadRaw(ctx, opts.in)
				if err != nil {
					return err
				}
				rep := resolveReport{Resolution: string(r)}
				for _, group := range g.DuplicateIDs() {
					if !all && group.ID != id {
						continue
					}
					var n int
					if g, n, err = steps.ResolveDuplicateID(g, group, r); err != nil {
						return err
					}
					rep.Resolved++
					rep.Removed += n
				}
				if !all && rep.Resolved == 0 {
					return fmt.Errorf("id %s is not repeated", id)
				}
				if err := a.store.Save(ctx, opts.out, g); err != nil {
					return err
				}
				return a.printJSON(rep)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "the repeated node id")
	cmd.Flags().StringVar(&resolution, "resolution", string(steps.IDKeepFirst), "keep_first, keep_last, merge or reassign")
	cmd.Flags().BoolVar(&all, "all", false, "apply the resolution to every repeated id")
	return cmd
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Report the similarity distribution and keyword co-occurrence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				g, _, err := a.store.Load(ctx, opts.in)
				if err != nil {
					return err
				}
				emb, err := a.embedder(ctx)
				if err != nil {
					return err
				}
				ctx, span := observability.StartStage(ctx, "analyze")
				out, err := steps.Analyze(ctx, steps.AnalyzeDeps{Log: a.log, Embedder: emb}, steps.AnalyzeInput{
					Graph:     g,
					Config:    a.cfg.Analysis,
					BatchSize: a.cfg.Embed.BatchSize,
				})
				observability.EndStage(span, err, map[string]int{"nodes": out.Nodes})
				if err != nil {
					return err
				}
				return a.printJSON(out)
			})
		},
	}
}

type statsReport struct {
	steps.GraphStats
	Sanitized types.SanitizeReport `json:"sanitized"`
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print structural statistics of a graph document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				g, rep, err := a.store.Load(ctx, opts.in)
				if err != nil {
					return err
				}
				return a.printJSON(statsReport{GraphStats: steps.Stats(g), Sanitized: rep})
			})
		},
	}
}

func newExportNeo4jCmd(opts *rootOptions) *cobra.Command {
	var graphID string
	cmd := &cobra.Command{
		Use:   "export-neo4j",
		Short: "Upsert a graph document into Neo4j (NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				g, _, err := a.store.Load(ctx, opts.in)
				if err != nil {
					return err
				}
				client, err := neo4jdb.NewFromEnv(a.log)
				if err != nil {
					return err
				}
				if client == nil {
					return fmt.Errorf("NEO4J_URI is not set")
				}
				defer client.Close(context.Background())

				id := strings.TrimSpace(graphID)
				if id == "" {
					id = strings.TrimSuffix(filepath.Base(opts.in), filepath.Ext(opts.in))
				}
				ctx, span := observability.StartStage(ctx, "export_neo4j")
				err = graph.UpsertConsolidatedGraph(ctx, client, a.log, id, g)
				observability.EndStage(span, err, map[string]int{"nodes": len(g.Nodes), "links": len(g.Links)})
				if err != nil {
					return err
				}
				return a.printJSON(map[string]any{
					"graph_id": id,
					"nodes":    len(g.Nodes),
					"links":    len(g.Links),
					"topics":   len(g.HighLevelTopics),
				})
			})
		},
	}
	cmd.Flags().StringVar(&graphID, "graph-id", "", "graph key in Neo4j (default: input file name)")
	return cmd
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the run ledger (KG_DB_DSN)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				if a.ledger == nil {
					return fmt.Errorf("KG_DB_DSN is not set")
				}
				dbc := dbctx.Context{Ctx: ctx}
				if runID == "" {
					runs, err := a.ledger.Runs.ListRecent(dbc, limit)
					if err != nil {
						return err
					}
					return a.printJSON(runs)
				}
				id, err := uuid.Parse(runID)
				if err != nil {
					return fmt.Errorf("invalid run id: %w", err)
				}
				run, err := a.ledger.Runs.GetByID(dbc, id)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", id)
				}
				children, err := a.ledger.Runs.ListChildren(dbc, id)
				if err != nil {
					return err
				}
				events, err := a.ledger.Events.ListByRun(dbc, id)
				if err != nil {
					return err
				}
				return a.printJSON(map[string]any{"run": run, "stages": children, "events": events})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent runs")
	cmd.Flags().StringVar(&runID, "id", "", "show one run with its stages and events")
	return cmd
}
