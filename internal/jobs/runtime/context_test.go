package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/kgconsolidate/internal/data/repos"
	"github.com/yungbote/kgconsolidate/internal/data/repos/testutil"
	types "github.com/yungbote/kgconsolidate/internal/domain"
	"github.com/yungbote/kgconsolidate/internal/pkg/dbctx"
)

func TestContextWritesLedger(t *testing.T) {
	db := testutil.DB(t)
	r := repos.New(db, testutil.Logger(t))
	jc := NewContext(context.Background(), testutil.Logger(t), r.Runs, r.Events)

	if err := jc.Start("run", "in.json", "out.json", 4, 2); err != nil {
		t.Fatalf("Start: %v", err)
	}
	child := jc.StartStage("dedupe_nodes", 4, 2)
	jc.FinishStage(child, map[string]int{"merged": 1}, 3, 2, nil)
	jc.Progress("dedupe_nodes", "merged duplicates", map[string]int{"merged": 1})
	jc.Succeed(map[string]int{"stages": 1}, 3, 2)
	jc.Fail("late", errors.New("ignored after success"))

	dbc := dbctx.Context{Ctx: context.Background()}
	run, err := r.Runs.GetByID(dbc, jc.Run.ID)
	if err != nil || run == nil {
		t.Fatalf("GetByID: %v %v", run, err)
	}
	if run.Status != types.RunStatusSucceeded || run.NodesOut != 3 {
		t.Fatalf("unexpected run row: %+v", run)
	}
	children, err := r.Runs.ListChildren(dbc, jc.Run.ID)
	if err != nil || len(children) != 1 || children[0].Status != types.RunStatusSucceeded {
		t.Fatalf("children: %v %v", children, err)
	}
	events, err := r.Events.ListByRun(dbc, jc.Run.ID)
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected started, progress and succeeded events, got %d", len(events))
	}
}

func TestContextWithoutLedger(t *testing.T) {
	jc := NewContext(context.Background(), nil, nil, nil)
	if err := jc.Start("run", "in", "out", 1, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	child := jc.StartStage("link", 1, 0)
	jc.FinishStage(child, nil, 1, 0, errors.New("boom"))
	if child.Status != types.RunStatusFailed || child.Error != "boom" {
		t.Fatalf("child not marked failed: %+v", child)
	}
	jc.Fail("link", errors.New("boom"))
	if jc.Run.Status != types.RunStatusFailed {
		t.Fatalf("run not failed")
	}
}
