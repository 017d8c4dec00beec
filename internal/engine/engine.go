// Package engine implements the ExecutionEngine: the only caller that
// turns a Phase into a dispatched backend session. It owns resource
// acquisition/release, session bookkeeping, and the chaining of phases
// that don't require a human in the loop (spec §4.3-§4.5).
package engine

import (
	"context"
	"fmt"

	"github.com/souky-byte/opencode-studio/internal/activity"
	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/internal/phase"
	"github.com/souky-byte/opencode-studio/internal/vcs"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ExecutionEngine drives one Execute call at a time per task: build the
// session's config, acquire whatever resources it declared, run the
// session to completion, hand the result to the phase, and release the
// resources on every exit path.
type ExecutionEngine struct {
	backend    opencodeclient.Client
	tasks      *db.TaskRepo
	sessions   *db.SessionRepo
	activities *activity.Registry
	workspaces vcs.VersionControl
	bus        *event.Bus
	model      types.ModelRef
}

// New builds an ExecutionEngine bound to one project's resources.
func New(backend opencodeclient.Client, tasks *db.TaskRepo, sessions *db.SessionRepo, activities *activity.Registry, workspaces vcs.VersionControl, bus *event.Bus, model types.ModelRef) *ExecutionEngine {
	return &ExecutionEngine{
		backend:    backend,
		tasks:      tasks,
		sessions:   sessions,
		activities: activities,
		workspaces: workspaces,
		bus:        bus,
		model:      model,
	}
}

// Execute runs the full engine pipeline for one phase against one task:
// build_config -> acquire_resources -> run_session -> process_result,
// releasing resources on every exit path (spec §4.3).
func (e *ExecutionEngine) Execute(ctx context.Context, ph phase.Phase, task types.Task) (types.PhaseOutcome, types.Task, error) {
	cfg, err := ph.BuildConfig(ctx, task)
	if err != nil {
		return types.PhaseOutcome{}, task, fmt.Errorf("build_config: %w", err)
	}

	guard, task, err := acquireResources(ctx, ph.RequiredResources(), cfg, task, e.tasks, e.workspaces, e.bus, cfg.WorkingDir)
	if err != nil {
		return types.PhaseOutcome{}, task, fmt.Errorf("acquire_resources: %w", err)
	}
	defer guard.Release()

	output, err := runSession(ctx, e.backend, e.sessions, e.activities, e.bus, task, ph.PhaseType(), guard.WorkingDir(), cfg.Prompt, e.model)
	if err != nil {
		return types.PhaseOutcome{}, task, fmt.Errorf("run_session: %w", err)
	}

	outcome, err := ph.ProcessResult(ctx, task, output)
	if err != nil {
		return types.PhaseOutcome{}, task, fmt.Errorf("process_result: %w", err)
	}

	if !cfg.SkipStatusUpdate {
		e.bus.Publish(types.PhaseCompleted{TaskID: task.ID, Phase: ph.PhaseType()})
	}

	return outcome, task, nil
}
