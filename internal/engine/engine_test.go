package engine

import (
	"context"
	"testing"
	"time"

	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/internal/vcs"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// fakePhase is a minimal phase.Phase for exercising ExecutionEngine.Execute
// without pulling in the real phase package's template rendering.
type fakePhase struct {
	phaseType types.SessionPhase
	required  types.RequiredResources
	cfg       types.PhaseConfig
	outcome   types.PhaseOutcome
	gotOutput types.SessionOutput
}

func (p *fakePhase) PhaseType() types.SessionPhase              { return p.phaseType }
func (p *fakePhase) RequiredResources() types.RequiredResources  { return p.required }
func (p *fakePhase) BuildConfig(ctx context.Context, t types.Task) (types.PhaseConfig, error) {
	return p.cfg, nil
}
func (p *fakePhase) ProcessResult(ctx context.Context, t types.Task, output types.SessionOutput) (types.PhaseOutcome, error) {
	p.gotOutput = output
	return p.outcome, nil
}

func TestExecutionEngine_Execute_FullPipeline(t *testing.T) {
	store := newTestStore(t)
	registry := newTestRegistry()
	bus := newTestBus(t)
	backend := opencodeclient.NewFake()

	task := types.Task{ID: "task-1", Title: "Add retries"}
	if err := store.Tasks().Create(task); err != nil {
		t.Fatalf("Create task failed: %v", err)
	}

	eng := New(backend, store.Tasks(), store.Sessions(), registry, &fakeVCS{}, bus, types.ModelRef{ProviderID: "anthropic", ModelID: "claude-sonnet-4"})

	ph := &fakePhase{
		phaseType: types.PhaseImplementation,
		required:  types.RequiredResources{NeedsWorkspace: true},
		cfg:       types.PhaseConfig{Prompt: "implement it", WorkingDir: "/project"},
		outcome:   types.PhaseOutcome{Kind: types.OutcomeContinue},
	}

	done := make(chan struct {
		outcome types.PhaseOutcome
		err     error
	}, 1)
	go func() {
		outcome, _, err := eng.Execute(context.Background(), ph, task)
		done <- struct {
			outcome types.PhaseOutcome
			err     error
		}{outcome, err}
	}()

	time.Sleep(10 * time.Millisecond)
	backend.PushAssistantText("fake-session-1", "done")
	backend.PushEvent("fake-session-1", opencodeclient.SessionIdle{SessionID: "fake-session-1"})

	result := <-done
	if result.err != nil {
		t.Fatalf("Execute failed: %v", result.err)
	}
	if result.outcome.Kind != types.OutcomeContinue {
		t.Errorf("outcome = %+v, want continue", result.outcome)
	}
	if !ph.gotOutput.Success || ph.gotOutput.ResponseText != "done" {
		t.Errorf("ProcessResult saw %+v", ph.gotOutput)
	}

	updatedTask, err := store.Tasks().Get(task.ID)
	if err != nil {
		t.Fatalf("Get task failed: %v", err)
	}
	if updatedTask.WorkspacePath == nil || *updatedTask.WorkspacePath != "/fake/workspace/task-1" {
		t.Errorf("workspace not persisted: %+v", updatedTask)
	}
}

// fakeVCS is a no-shell-out vcs.VersionControl double for engine tests.
type fakeVCS struct{}

func (f *fakeVCS) CreateWorkspace(ctx context.Context, taskID string) (vcs.Workspace, error) {
	return vcs.Workspace{TaskID: taskID, Path: "/fake/workspace/" + taskID, Branch: "task/" + taskID}, nil
}

func (f *fakeVCS) Diff(ctx context.Context, ws vcs.Workspace) (string, error) { return "", nil }

func (f *fakeVCS) Merge(ctx context.Context, ws vcs.Workspace) error { return nil }

func (f *fakeVCS) Delete(ctx context.Context, ws vcs.Workspace) error { return nil }
