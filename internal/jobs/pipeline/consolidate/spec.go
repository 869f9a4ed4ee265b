package consolidate

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/platform/envutil"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

const pipelineEnv = "KG_PIPELINE_YAML"

//go:embed pipeline.yaml
var pipelineFS embed.FS

// used when the YAML is missing or invalid
var fallbackStageOrder = []string{
	StageSanitize,
	StageDedupeNodes,
	StageSynthesizeLinks,
	StageDedupeLinks,
	StageBuildClusters,
	StageMergeSmallClusters,
	StageBridgeComponents,
	StageRepairOrphans,
}

type yamlPipelineSpec struct {
	Pipeline string          `yaml:"pipeline"`
	Version  int             `yaml:"version"`
	Stages   []yamlStageSpec `yaml:"stages"`
}

type yamlStageSpec struct {
	Name      string   `yaml:"name"`
	DependsOn []string `yaml:"depends_on"`
	Enabled   *bool    `yaml:"enabled"`
}

var (
	orderOnce  sync.Once
	orderCache []string
	orderErr   error
)

// StageOrder returns the enabled stages in execution order.
func StageOrder(log *logger.Logger) []string {
	orderOnce.Do(func() {
		orderCache, orderErr = loadStageOrder()
	})
	if orderErr != nil {
		if log != nil {
			log.Warn("consolidate: pipeline spec load failed; using fallback", "error", orderErr)
		}
		return append([]string{}, fallbackStageOrder...)
	}
	return append([]string{}, orderCache...)
}

func loadStageOrder() ([]string, error) {
	data, err := readPipelineSpec()
	if err != nil {
		return nil, err
	}
	return parseStageOrder(data)
}

func readPipelineSpec() ([]byte, error) {
	if path := envutil.String(pipelineEnv, ""); path != "" {
		return os.ReadFile(path)
	}
	return pipelineFS.ReadFile("pipeline.yaml")
}

func parseStageOrder(data []byte) ([]string, error) {
	var spec yamlPipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if err := validatePipelineSpec(&spec); err != nil {
		return nil, err
	}
	order := make([]string, 0, len(spec.Stages))
	for _, s := range spec.Stages {
		if s.Enabled != nil && !*s.Enabled {
			continue
		}
		order = append(order, strings.TrimSpace(s.Name))
	}
	return order, nil
}

func validatePipelineSpec(spec *yamlPipelineSpec) error {
	if spec == nil {
		return errors.New("missing spec")
	}
	if strings.TrimSpace(spec.Pipeline) != "consolidate" {
		return fmt.Errorf("unexpected pipeline: %s", spec.Pipeline)
	}
	if len(spec.Stages) == 0 {
		return errors.New("no stages defined")
	}

	declared := map[string]bool{}
	position := map[string]int{}
	for i, s := range spec.Stages {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return errors.New("stage name is required")
		}
		if declared[name] {
			return fmt.Errorf("duplicate stage name: %s", name)
		}
		if _, ok := stageTable[name]; !ok {
			return fmt.Errorf("%w: %s", types.ErrUnknownStage, name)
		}
		declared[name] = true
		if s.Enabled == nil || *s.Enabled {
			position[name] = i
		}
	}
	for _, s := range spec.Stages {
		name := strings.TrimSpace(s.Name)
		pos, enabled := position[name]
		if !enabled {
			continue
		}
		for _, dep := range s.DependsOn {
			dep = strings.TrimSpace(dep)
			if dep == "" {
				continue
			}
			if !declared[dep] {
				return fmt.Errorf("stage %s: unknown dependency %s", name, dep)
			}
			depPos, depEnabled := position[dep]
			if !depEnabled {
				return fmt.Errorf("stage %s: dependency %s is disabled", name, dep)
			}
			if depPos > pos {
				return fmt.Errorf("stage %s: dependency %s appears after stage in order", name, dep)
			}
		}
	}
	return nil
}
