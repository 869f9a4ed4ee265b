package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Engine holds every tunable threshold of the consolidation stages. The defaults are
// empirical; the bridge and parent thresholds in particular accept weak matches.
type Engine struct {
	Dedupe   DedupeConfig
	Link     LinkConfig
	Prune    PruneConfig
	Cluster  ClusterConfig
	Repair   RepairConfig
	Embed    EmbedConfig
	Naming   NamingConfig
	Analysis AnalysisConfig
}

type DedupeConfig struct {
	MergeThreshold float64 `env:"KG_MERGE_THRESHOLD" envDefault:"0.8"`
	DiscardFloor   int     `env:"KG_DISCARD_FLOOR_CHARS" envDefault:"50"`
	DiscardRatio   float64 `env:"KG_DISCARD_RATIO" envDefault:"0.5"`
}

type LinkConfig struct {
	TopK          int     `env:"KG_LINK_TOPK" envDefault:"5"`
	MinSimilarity float64 `env:"KG_LINK_MIN_SIMILARITY" envDefault:"0.5"`
	DegreeCap     int     `env:"KG_LINK_DEGREE_CAP" envDefault:"3"`
	KeywordFilter bool    `env:"KG_LINK_KEYWORD_FILTER" envDefault:"true"`
}

type PruneConfig struct {
	MaxPerNode int `env:"KG_PRUNE_MAX_PER_NODE" envDefault:"3"`
}

type ClusterConfig struct {
	SimilarityThreshold float64 `env:"KG_CLUSTER_THRESHOLD" envDefault:"0.7"`
	MinSize             int     `env:"KG_CLUSTER_MIN_SIZE" envDefault:"3"`
	SmallSize           int     `env:"KG_CLUSTER_SMALL_SIZE" envDefault:"10"`
	MergeThreshold      float64 `env:"KG_CLUSTER_MERGE_THRESHOLD" envDefault:"0.5"`
}

type RepairConfig struct {
	BridgeThreshold float64 `env:"KG_BRIDGE_THRESHOLD" envDefault:"0.25"`
	MinComponents   int     `env:"KG_BRIDGE_MIN_COMPONENTS" envDefault:"3"`
	ParentThreshold float64 `env:"KG_PARENT_THRESHOLD" envDefault:"0.25"`
}

type EmbedConfig struct {
	Provider  string `env:"KG_EMBED_PROVIDER" envDefault:"openai"`
	BatchSize int    `env:"KG_EMBED_BATCH_SIZE" envDefault:"64"`
}

type NamingConfig struct {
	Provider          string `env:"KG_NAMING_PROVIDER" envDefault:"keywords"`
	RequestsPerMinute int    `env:"KG_NAMING_RPM" envDefault:"4"`
	MaxSummaryChars   int    `env:"KG_NAMING_MAX_SUMMARY_CHARS" envDefault:"4000"`
}

type AnalysisConfig struct {
	CooccurrencePairs int     `env:"KG_ANALYSIS_PAIRS" envDefault:"1000"`
	Seed              int64   `env:"KG_ANALYSIS_SEED" envDefault:"42"`
	ParentFloor       float64 `env:"KG_ANALYSIS_PARENT_FLOOR" envDefault:"0.25"`
}

// Load parses the environment into an Engine and validates it.
func Load() (Engine, error) {
	cfg := Engine{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the built-in defaults, ignoring the environment.
func Default() Engine {
	return Engine{
		Dedupe:   DedupeConfig{MergeThreshold: 0.8, DiscardFloor: 50, DiscardRatio: 0.5},
		Link:     LinkConfig{TopK: 5, MinSimilarity: 0.5, DegreeCap: 3, KeywordFilter: true},
		Prune:    PruneConfig{MaxPerNode: 3},
		Cluster:  ClusterConfig{SimilarityThreshold: 0.7, MinSize: 3, SmallSize: 10, MergeThreshold: 0.5},
		Repair:   RepairConfig{BridgeThreshold: 0.25, MinComponents: 3, ParentThreshold: 0.25},
		Embed:    EmbedConfig{Provider: "openai", BatchSize: 64},
		Naming:   NamingConfig{Provider: "keywords", RequestsPerMinute: 4, MaxSummaryChars: 4000},
		Analysis: AnalysisConfig{CooccurrencePairs: 1000, Seed: 42, ParentFloor: 0.25},
	}
}

func (c Engine) Validate() error {
	sims := []struct {
		name string
		v    float64
	}{
		{"KG_MERGE_THRESHOLD", c.Dedupe.MergeThreshold},
		{"KG_LINK_MIN_SIMILARITY", c.Link.MinSimilarity},
		{"KG_CLUSTER_THRESHOLD", c.Cluster.SimilarityThreshold},
		{"KG_CLUSTER_MERGE_THRESHOLD", c.Cluster.MergeThreshold},
		{"KG_BRIDGE_THRESHOLD", c.Repair.BridgeThreshold},
		{"KG_PARENT_THRESHOLD", c.Repair.ParentThreshold},
		{"KG_ANALYSIS_PARENT_FLOOR", c.Analysis.ParentFloor},
	}
	for _, s := range sims {
		if s.v < -1 || s.v > 1 {
			return fmt.Errorf("config: %s=%v outside [-1,1]", s.name, s.v)
		}
	}
	if c.Dedupe.DiscardRatio < 0 {
		return fmt.Errorf("config: KG_DISCARD_RATIO must be >= 0")
	}
	ints := []struct {
		name string
		v    int
	}{
		{"KG_LINK_TOPK", c.Link.TopK},
		{"KG_LINK_DEGREE_CAP", c.Link.DegreeCap},
		{"KG_PRUNE_MAX_PER_NODE", c.Prune.MaxPerNode},
		{"KG_CLUSTER_MIN_SIZE", c.Cluster.MinSize},
		{"KG_CLUSTER_SMALL_SIZE", c.Cluster.SmallSize},
		{"KG_EMBED_BATCH_SIZE", c.Embed.BatchSize},
		{"KG_NAMING_RPM", c.Naming.RequestsPerMinute},
	}
	for _, i := range ints {
		if i.v < 1 {
			return fmt.Errorf("config: %s must be positive", i.name)
		}
	}
	if c.Repair.MinComponents < 0 {
		return fmt.Errorf("config: KG_BRIDGE_MIN_COMPONENTS must be >= 0")
	}
	return nil
}
