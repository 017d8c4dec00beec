package phase

import (
	"context"
	"strings"
	"testing"

	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

func TestFixPhase_FromFeedback_BuildConfigAndProcessResult(t *testing.T) {
	deps, store, _ := newTestDeps(t, config.DefaultConfig())
	deps.Workspaces = &fakeVersionControl{}
	p := NewFixPhaseFromFeedback(deps, "Add a nil check before dereferencing resp.Body")

	task := workspacedTask()
	task.Status = types.StatusFix
	if err := store.Tasks().Create(task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	pc, err := p.BuildConfig(context.Background(), task)
	if err != nil {
		t.Fatalf("BuildConfig failed: %v", err)
	}
	if !strings.Contains(pc.Prompt, "Add a nil check before dereferencing resp.Body") {
		t.Errorf("prompt missing feedback: %q", pc.Prompt)
	}
	if len(pc.MCPServers) != 1 {
		t.Errorf("FixPhase should always pass the findings MCP server, got %v", pc.MCPServers)
	}

	outcome, err := p.ProcessResult(context.Background(), task, types.SessionOutput{Success: true, ResponseText: "fixed it"})
	if err != nil {
		t.Fatalf("ProcessResult failed: %v", err)
	}
	if outcome.Kind != types.OutcomeTransition || outcome.NextStatus != types.StatusAiReview {
		t.Errorf("outcome = %+v, want transition/ai_review", outcome)
	}
}

func TestFixPhase_FromComments_ResolvesOnSuccess(t *testing.T) {
	deps, store, _ := newTestDeps(t, config.DefaultConfig())
	deps.Workspaces = &fakeVersionControl{}

	task := workspacedTask()
	task.Status = types.StatusFix
	if err := store.Tasks().Create(task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	line := 42
	comment := types.ReviewComment{ID: "c1", TaskID: task.ID, FilePath: "internal/client.go", LineStart: &line, Body: "this leaks a connection", Status: types.CommentOpen}
	if err := store.ReviewComments().Create(comment); err != nil {
		t.Fatalf("Create comment failed: %v", err)
	}

	p := NewFixPhaseFromComments(deps, []types.ReviewComment{comment})

	pc, err := p.BuildConfig(context.Background(), task)
	if err != nil {
		t.Fatalf("BuildConfig failed: %v", err)
	}
	if !strings.Contains(pc.Prompt, "internal/client.go:42") || !strings.Contains(pc.Prompt, "this leaks a connection") {
		t.Errorf("prompt missing comment detail: %q", pc.Prompt)
	}

	if _, err := p.ProcessResult(context.Background(), task, types.SessionOutput{Success: true, ResponseText: "fixed the leak"}); err != nil {
		t.Fatalf("ProcessResult failed: %v", err)
	}

	open, err := store.ReviewComments().ListOpenForTask(task.ID)
	if err != nil {
		t.Fatalf("ListOpenForTask failed: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("expected comment to be resolved, still open: %v", open)
	}
}

func TestFixPhase_BuildConfig_NoWorkspace_Errors(t *testing.T) {
	deps, _, _ := newTestDeps(t, config.DefaultConfig())
	p := NewFixPhaseFromFeedback(deps, "do better")

	if _, err := p.BuildConfig(context.Background(), types.Task{ID: "task-1"}); err == nil {
		t.Errorf("expected WorkspaceRequired, got nil")
	}
}
