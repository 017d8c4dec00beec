package phase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

func workspacedTask() types.Task {
	path := "/tmp/workspace"
	now := time.Now().UTC()
	return types.Task{ID: "task-1", Title: "Add retries", Description: "Wrap calls with retries.", Status: types.StatusAiReview, WorkspacePath: &path, CreatedAt: now, UpdatedAt: now}
}

func TestReviewPhase_BuildConfig_NoWorkspace_Errors(t *testing.T) {
	deps, _, _ := newTestDeps(t, config.DefaultConfig())
	p := NewReviewPhase(deps, 0)

	_, err := p.BuildConfig(context.Background(), types.Task{ID: "task-1"})
	var wsErr WorkspaceRequired
	if err == nil {
		t.Fatalf("expected WorkspaceRequired, got nil")
	}
	if !errors.As(err, &wsErr) {
		t.Errorf("expected WorkspaceRequired, got %v", err)
	}
}

func TestReviewPhase_BuildConfig_PlainTemplate(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UseMCPFindings = false
	deps, _, _ := newTestDeps(t, cfg)
	deps.Workspaces = &fakeVersionControl{diff: "--- a/main.go\n+++ b/main.go\n@@ ...\n"}
	p := NewReviewPhase(deps, 0)

	pc, err := p.BuildConfig(context.Background(), workspacedTask())
	if err != nil {
		t.Fatalf("BuildConfig failed: %v", err)
	}
	if !strings.Contains(pc.Prompt, "APPROVED") {
		t.Errorf("plain review template not used: %q", pc.Prompt)
	}
	if len(pc.MCPServers) != 0 {
		t.Errorf("MCPServers should be empty without UseMCPFindings, got %v", pc.MCPServers)
	}
}

func TestReviewPhase_BuildConfig_MCPTemplate(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UseMCPFindings = true
	deps, _, _ := newTestDeps(t, cfg)
	deps.Workspaces = &fakeVersionControl{diff: "diff text"}
	p := NewReviewPhase(deps, 0)

	pc, err := p.BuildConfig(context.Background(), workspacedTask())
	if err != nil {
		t.Fatalf("BuildConfig failed: %v", err)
	}
	if !strings.Contains(pc.Prompt, "record_finding") {
		t.Errorf("MCP review template not used: %q", pc.Prompt)
	}
	if len(pc.MCPServers) != 1 || !strings.Contains(pc.MCPServers[0], "findings-mcp") {
		t.Errorf("MCPServers = %v", pc.MCPServers)
	}
}

func TestReviewPhase_ProcessResult_ApprovedFromFindings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RequireHumanReview = false
	deps, store, _ := newTestDeps(t, cfg)
	deps.Workspaces = &fakeVersionControl{}
	p := NewReviewPhase(deps, 0)

	task := workspacedTask()
	task.Status = types.StatusAiReview
	if err := store.Tasks().Create(task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := deps.Artifacts.WriteFindings(task.ID, types.ReviewFindings{TaskID: task.ID, Approved: true}); err != nil {
		t.Fatalf("WriteFindings failed: %v", err)
	}

	outcome, err := p.ProcessResult(context.Background(), task, types.SessionOutput{Success: true, ResponseText: "looks good"})
	if err != nil {
		t.Fatalf("ProcessResult failed: %v", err)
	}
	if outcome.Kind != types.OutcomeComplete || outcome.NextStatus != types.StatusDone {
		t.Errorf("outcome = %+v, want complete/done", outcome)
	}
}

func TestReviewPhase_ProcessResult_ApprovedRequiresHumanReview(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RequireHumanReview = true
	deps, store, _ := newTestDeps(t, cfg)
	deps.Workspaces = &fakeVersionControl{}
	p := NewReviewPhase(deps, 0)

	task := workspacedTask()
	if err := store.Tasks().Create(task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	outcome, err := p.ProcessResult(context.Background(), task, types.SessionOutput{Success: true, ResponseText: "APPROVED, looks great."})
	if err != nil {
		t.Fatalf("ProcessResult failed: %v", err)
	}
	if outcome.Kind != types.OutcomeAwaitingApproval || outcome.Phase != types.PhaseReview {
		t.Errorf("outcome = %+v, want awaiting_approval/review", outcome)
	}
}

func TestReviewPhase_ProcessResult_FindingsDetected_CorrectsPaths(t *testing.T) {
	deps, store, _ := newTestDeps(t, config.DefaultConfig())
	deps.Workspaces = &fakeVersionControl{diff: "--- a/internal/clinet.go\n+++ b/internal/clinet.go\n@@\n"}
	p := NewReviewPhase(deps, 0)

	task := workspacedTask()
	if err := store.Tasks().Create(task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := p.BuildConfig(context.Background(), task); err != nil {
		t.Fatalf("BuildConfig failed: %v", err)
	}

	misspelled := "internal/client.go" // off-by-one-letter vs the diff's actual path
	if err := deps.Artifacts.WriteFindings(task.ID, types.ReviewFindings{
		TaskID: task.ID,
		Findings: []types.ReviewFinding{
			{ID: "f1", Title: "missing nil check", Severity: types.SeverityError, FilePath: &misspelled},
		},
	}); err != nil {
		t.Fatalf("WriteFindings failed: %v", err)
	}

	outcome, err := p.ProcessResult(context.Background(), task, types.SessionOutput{Success: true, ResponseText: "see findings"})
	if err != nil {
		t.Fatalf("ProcessResult failed: %v", err)
	}
	if outcome.Kind != types.OutcomeIterate || outcome.Iteration != 1 {
		t.Errorf("outcome = %+v, want iterate/1", outcome)
	}

	corrected, err := deps.Artifacts.ReadFindings(task.ID)
	if err != nil {
		t.Fatalf("ReadFindings failed: %v", err)
	}
	if got := *corrected.Findings[0].FilePath; got != "b/internal/clinet.go" {
		t.Errorf("FilePath not corrected against diff, got %q", got)
	}
}

func TestReviewPhase_ProcessResult_AtIterationLimit_ForcesHumanReview(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxReviewIterations = 2
	deps, store, _ := newTestDeps(t, cfg)
	deps.Workspaces = &fakeVersionControl{}
	p := NewReviewPhase(deps, 2) // already at the limit

	task := workspacedTask()
	if err := store.Tasks().Create(task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	outcome, err := p.ProcessResult(context.Background(), task, types.SessionOutput{Success: true, ResponseText: "NOT APPROVED, still broken"})
	if err != nil {
		t.Fatalf("ProcessResult failed: %v", err)
	}
	if outcome.Kind != types.OutcomeAwaitingApproval || outcome.Phase != types.PhaseReview {
		t.Errorf("outcome = %+v, want awaiting_approval/review at the iteration limit", outcome)
	}
}

func TestReviewPhase_ProcessResult_SessionFailed(t *testing.T) {
	deps, _, _ := newTestDeps(t, config.DefaultConfig())
	p := NewReviewPhase(deps, 0)

	_, err := p.ProcessResult(context.Background(), workspacedTask(), types.SessionOutput{Success: false, Error: "crashed"})
	if err == nil || !strings.Contains(err.Error(), "crashed") {
		t.Errorf("expected session-failed error, got %v", err)
	}
}
