package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/kgconsolidate/internal/platform/envutil"
)

type rootOptions struct {
	in       string
	out      string
	provider string
	naming   string
	logMode  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "kgconsolidate",
		Short: "Consolidate an auto-generated knowledge graph",
		Long: `kgconsolidate cleans up a knowledge graph document of topic nodes, links
and high-level topics: it merges duplicate nodes, synthesizes semantic links,
builds topic clusters and repairs connectivity.

Every stage command reads --in and writes --out (defaults to --in) only after
the stage succeeds. Locations are local paths or gs://bucket/key URIs.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.in, "in", "", "input graph document (path or gs:// URI)")
	root.PersistentFlags().StringVar(&opts.out, "out", "", "output graph document (default: --in)")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "embedding provider: openai, gemini or hash (default: KG_EMBED_PROVIDER)")
	root.PersistentFlags().StringVar(&opts.naming, "naming", "", "cluster naming: keywords, openai or gemini (default: KG_NAMING_PROVIDER)")
	root.PersistentFlags().StringVar(&opts.logMode, "log-mode", envutil.String("LOG_MODE", "development"), "log encoder: development or production")

	root.AddCommand(
		newDedupeNodesCmd(opts),
		newLinkCmd(opts),
		newDedupeLinksCmd(opts),
		newConflictsCmd(opts),
		newResolveConflictCmd(opts),
		newDuplicateIDsCmd(opts),
		newResolveDuplicateIDCmd(opts),
		newPruneLinksCmd(opts),
		newClusterCmd(opts),
		newMergeClustersCmd(opts),
		newBridgeCmd(opts),
		newOrphansCmd(opts),
		newAnalyzeCmd(opts),
		newStatsCmd(opts),
		newRunCmd(opts),
		newExportNeo4jCmd(opts),
		newRunsCmd(opts),
	)
	return root
}

// withApp wires the app for one command invocation and tears it down afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, needsInput bool, fn func(ctx context.Context, a *app) error) error {
	if needsInput && strings.TrimSpace(opts.in) == "" {
		return fmt.Errorf("--in is required")
	}
	if opts.out == "" {
		opts.out = opts.in
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	a.stdout = cmd.OutOrStdout()
	defer a.close(context.Background())
	return fn(ctx, a)
}
