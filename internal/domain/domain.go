package domain

import (
	"errors"

	"github.com/yungbote/kgconsolidate/internal/domain/jobs"
	"github.com/yungbote/kgconsolidate/internal/domain/kg"
)

const (
	LinkSubTopic            = kg.LinkSubTopic
	LinkSemanticallySimilar = kg.LinkSemanticallySimilar
	LinkExtends             = kg.LinkExtends

	RunStatusRunning   = jobs.RunStatusRunning
	RunStatusSucceeded = jobs.RunStatusSucceeded
	RunStatusFailed    = jobs.RunStatusFailed

	RunEventStarted   = jobs.RunEventStarted
	RunEventProgress  = jobs.RunEventProgress
	RunEventFailed    = jobs.RunEventFailed
	RunEventSucceeded = jobs.RunEventSucceeded
)

type (
	Graph            = kg.Graph
	Node             = kg.Node
	Link             = kg.Link
	HighLevelTopic   = kg.HighLevelTopic
	PairKey          = kg.PairKey
	SanitizeReport   = kg.SanitizeReport
	DuplicateIDGroup = kg.DuplicateIDGroup

	ConsolidationRun      = jobs.ConsolidationRun
	ConsolidationRunEvent = jobs.ConsolidationRunEvent
	RunEventKind          = jobs.RunEventKind
)

var (
	ErrNoEmbedder     = errors.New("no embedding provider configured")
	ErrEmbeddingCount = errors.New("embedding count mismatch")
	ErrUnknownStage   = errors.New("unknown stage")
)
