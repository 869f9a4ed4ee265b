package runtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/kgconsolidate/internal/data/repos"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/pkg/dbctx"
	"github.com/yungbote/kgconsolidate/internal/platform/logger"
)

/*
Context is the execution handle for one consolidation run. It owns the run's
ledger row and is the only place pipelines report progress or terminate.

The ledger is optional: with nil repos every method still updates the in-memory
Run and logs, so the CLI works without a database.
*/
type Context struct {
	Ctx    context.Context
	Log    *logger.Logger
	Run    *types.ConsolidationRun
	Runs   repos.RunRepo
	Events repos.RunEventRepo

	mu   sync.Mutex
	done bool
}

func NewContext(ctx context.Context, log *logger.Logger, runs repos.RunRepo, events repos.RunEventRepo) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Context{Ctx: ctx, Log: log, Runs: runs, Events: events}
}

func (c *Context) dbc() dbctx.Context { return dbctx.Context{Ctx: c.Ctx} }

// Start opens the top-level run row.
func (c *Context) Start(stage, input, output string, nodesIn, linksIn int) error {
	run := &types.ConsolidationRun{
		ID:        uuid.New(),
		Stage:     stage,
		Input:     input,
		Output:    output,
		Status:    types.RunStatusRunning,
		NodesIn:   nodesIn,
		LinksIn:   linksIn,
		StartedAt: time.Now().UTC(),
	}
	if c.Runs != nil {
		if _, err := c.Runs.Create(c.dbc(), run); err != nil {
			return err
		}
	}
	c.Run = run
	c.event(types.RunEventStarted, stage, "run started", nil)
	return nil
}

// StartStage opens a child ledger row for one stage of the current run.
func (c *Context) StartStage(stage string, nodesIn, linksIn int) *types.ConsolidationRun {
	child := &types.ConsolidationRun{
		ID:        uuid.New(),
		Stage:     stage,
		Status:    types.RunStatusRunning,
		NodesIn:   nodesIn,
		LinksIn:   linksIn,
		StartedAt: time.Now().UTC(),
	}
	if c.Run != nil {
		child.ParentID = &c.Run.ID
	}
	if c.Runs != nil {
		if _, err := c.Runs.Create(c.dbc(), child); err != nil {
			c.Log.Warn("ledger: stage row not created", "stage", stage, "error", err)
		}
	}
	return child
}

// FinishStage closes a child row. Ledger failures are logged, never returned.
func (c *Context) FinishStage(child *types.ConsolidationRun, counts any, nodesOut, linksOut int, stageErr error) {
	if child == nil {
		return
	}
	status, msg := types.RunStatusSucceeded, ""
	if stageErr != nil {
		status, msg = types.RunStatusFailed, stageErr.Error()
	}
	now := time.Now().UTC()
	child.Status, child.Error = status, msg
	child.NodesOut, child.LinksOut = nodesOut, linksOut
	child.FinishedAt = &now
	if c.Runs == nil {
		return
	}
	if err := c.Runs.Finish(c.dbc(), child.ID, status, encodeCounts(c.Log, counts), nodesOut, linksOut, msg); err != nil {
		c.Log.Warn("ledger: stage row not finished", "stage", child.Stage, "error", err)
	}
}

// Progress records a non-terminal message for the run.
func (c *Context) Progress(stage, msg string, data any) {
	c.Log.Info(msg, "stage", stage)
	c.event(types.RunEventProgress, stage, msg, data)
}

// Succeed marks the run succeeded. Only the first terminal call has effect.
func (c *Context) Succeed(counts any, nodesOut, linksOut int) {
	if !c.terminate() {
		return
	}
	now := time.Now().UTC()
	if c.Run != nil {
		c.Run.Status = types.RunStatusSucceeded
		c.Run.NodesOut, c.Run.LinksOut = nodesOut, linksOut
		c.Run.FinishedAt = &now
		if c.Runs != nil {
			if err := c.Runs.Finish(c.dbc(), c.Run.ID, types.RunStatusSucceeded, encodeCounts(c.Log, counts), nodesOut, linksOut, ""); err != nil {
				c.Log.Warn("ledger: run not finished", "error", err)
			}
		}
	}
	c.event(types.RunEventSucceeded, "run", "run succeeded", counts)
}

// Fail marks the run failed at stage. Only the first terminal call has effect.
func (c *Context) Fail(stage string, err error) {
	if !c.terminate() {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.Log.Error("run failed", "stage", stage, "error", msg)
	now := time.Now().UTC()
	if c.Run != nil {
		c.Run.Status = types.RunStatusFailed
		c.Run.Error = msg
		c.Run.FinishedAt = &now
		if c.Runs != nil {
			if ferr := c.Runs.Finish(c.dbc(), c.Run.ID, types.RunStatusFailed, nil, c.Run.NodesIn, c.Run.LinksIn, msg); ferr != nil {
				c.Log.Warn("ledger: run not finished", "error", ferr)
			}
		}
	}
	c.event(types.RunEventFailed, stage, msg, nil)
}

func (c *Context) terminate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	c.done = true
	return true
}

func (c *Context) event(kind types.RunEventKind, stage, msg string, data any) {
	if c.Events == nil || c.Run == nil {
		return
	}
	if err := c.Events.Append(c.dbc(), c.Run.ID, kind, stage, msg, data); err != nil {
		c.Log.Warn("ledger: event not stored", "kind", kind, "error", err)
	}
}

func encodeCounts(log *logger.Logger, counts any) []byte {
	if counts == nil {
		return nil
	}
	b, err := json.Marshal(counts)
	if err != nil {
		log.Warn("ledger: counts not encodable", "error", err)
		return nil
	}
	return b
}
