package processor

import (
	"context"
	"testing"

	"mailassist/internal/model"
	"mailassist/internal/service/agent"
	"mailassist/internal/service/agent/agenttest"

	"go.uber.org/zap"
)

func TestRunner_SingleBatchAtATime(t *testing.T) {
	st := newStore(t, []model.Email{{ID: "e1", Body: "b"}}, categorizePrompt)
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &agenttest.Gateway{
		GenerateFunc: func(agent.PromptRequest) (string, bool) {
			close(started)
			<-release
			return "Spam", true
		},
	}
	r := NewRunner(context.Background(), NewPipeline(st, gw, nil, zap.NewNop()), nil, zap.NewNop())

	if !r.Trigger(context.Background()) {
		t.Fatal("first trigger should start a batch")
	}
	<-started
	if !r.Running() {
		t.Fatal("runner should report running")
	}
	if r.Trigger(context.Background()) {
		t.Fatal("second trigger should be rejected while running")
	}

	close(release)
	r.Wait()

	if r.Running() {
		t.Fatal("runner should be idle after the batch")
	}
	last := r.LastSummary()
	if last == nil || last.Processed != 1 {
		t.Fatalf("unexpected last summary %+v", last)
	}
	if e := mustGet(t, st, "e1"); e.Category != model.CategorySpam {
		t.Fatalf("category = %q", e.Category)
	}
}

func TestRunner_CanRunAgainAfterCompletion(t *testing.T) {
	st := newStore(t, []model.Email{{ID: "e1", Body: "b"}}, categorizePrompt)
	gw := &agenttest.Gateway{
		GenerateFunc: func(agent.PromptRequest) (string, bool) { return "Newsletter", true },
	}
	r := NewRunner(context.Background(), NewPipeline(st, gw, nil, zap.NewNop()), nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		if !r.Trigger(context.Background()) {
			t.Fatalf("trigger %d rejected", i)
		}
		r.Wait()
	}
	if n := gw.CountOp("generate"); n != 2 {
		t.Fatalf("expected 2 categorize calls, got %d", n)
	}
}
