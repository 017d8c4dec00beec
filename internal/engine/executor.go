package engine

import (
	"context"
	"fmt"

	"github.com/souky-byte/opencode-studio/internal/artifact"
	"github.com/souky-byte/opencode-studio/internal/logging"
	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/internal/phase"
	"github.com/souky-byte/opencode-studio/internal/project"
	"github.com/souky-byte/opencode-studio/internal/task"
	"github.com/souky-byte/opencode-studio/internal/vcs"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// vcsWorkspace rebuilds the vcs.Workspace handle for a task from its
// persisted WorkspacePath and WorkspaceBranch.
func vcsWorkspace(t types.Task) vcs.Workspace {
	ws := vcs.Workspace{TaskID: t.ID}
	if t.WorkspacePath != nil {
		ws.Path = *t.WorkspacePath
	}
	if t.WorkspaceBranch != nil {
		ws.Branch = *t.WorkspaceBranch
	}
	return ws
}

// TaskExecutor is the concrete project.TaskExecutor: it owns the
// transition table's dispatch side, deciding which Phase a task's
// current status maps to, and chains phases in-process for as long as
// a phase outcome says to continue without a human in the loop (spec
// §4.1, §4.5).
type TaskExecutor struct {
	engine       *ExecutionEngine
	deps         phase.Deps
	transitioner *task.Transitioner
	ctx          *project.ProjectContext
}

// NewExecutorFactory returns a project.ExecutorFactory that wires an
// ExecutionEngine and TaskExecutor to one ProjectContext's resources,
// for use with project.NewManager.
func NewExecutorFactory(backend opencodeclient.Client) project.ExecutorFactory {
	return func(ctx *project.ProjectContext) project.TaskExecutor {
		transitioner := task.New(ctx.Tasks, ctx.Bus)
		deps := phase.Deps{
			Artifacts:      artifact.New(ctx.ArtifactDir()),
			Transitioner:   transitioner,
			Workspaces:     ctx.Workspaces,
			ReviewComments: ctx.ReviewComments,
			Config:         ctx.Config,
			ProjectPath:    ctx.Path,
			ArtifactDir:    ctx.ArtifactDir(),
		}
		return NewTaskExecutor(ctx, backend, deps, transitioner)
	}
}

// NewTaskExecutor builds a TaskExecutor directly, for callers needing
// control over deps construction (e.g. tests).
func NewTaskExecutor(ctx *project.ProjectContext, backend opencodeclient.Client, deps phase.Deps, transitioner *task.Transitioner) *TaskExecutor {
	model := ParseModelRef(ctx.Config.BackendModel)
	eng := New(backend, ctx.Tasks, ctx.Sessions, ctx.Activities, ctx.Workspaces, ctx.Bus, model)
	return &TaskExecutor{engine: eng, deps: deps, transitioner: transitioner, ctx: ctx}
}

// StartPhaseAsync dispatches the correct Phase for task.Status and runs
// it (and every phase it chains into) in a background goroutine,
// returning as soon as the chain is queued (spec line 41's "HTTP ->
// start_phase_async -> execute -> ... background: SSE streams activity
// ... advances task status").
func (e *TaskExecutor) StartPhaseAsync(t types.Task) (types.SessionPhase, error) {
	ph, err := e.dispatch(t)
	if err != nil {
		return "", err
	}

	go e.runChain(context.Background(), ph, t)
	return ph.PhaseType(), nil
}

// dispatch implements the transition table's Phase side: given a
// task's current status, build the Phase that should run next. Adding
// a new phase requires a new case here, a new state in
// internal/task's transition table, and a new Phase implementation.
func (e *TaskExecutor) dispatch(t types.Task) (phase.Phase, error) {
	switch t.Status {
	case types.StatusPlanning:
		return phase.NewPlanningPhase(e.deps), nil

	case types.StatusInProgress:
		return phase.NewImplementationPhase(e.deps, t.ID)

	case types.StatusAiReview:
		iteration, err := e.completedFixIterations(t.ID)
		if err != nil {
			return nil, err
		}
		return phase.NewReviewPhase(e.deps, iteration), nil

	case types.StatusFix:
		comments, err := e.deps.ReviewComments.ListOpenForTask(t.ID)
		if err != nil {
			return nil, fmt.Errorf("dispatch: list open review comments: %w", err)
		}
		return phase.NewFixPhaseFromComments(e.deps, comments), nil

	default:
		return nil, fmt.Errorf("dispatch: no phase starts from status %q", t.Status)
	}
}

// runChain drives Execute in a loop, chaining directly into the next
// phase whenever an outcome doesn't require a human transition through
// the HTTP API to proceed: OutcomeContinue re-enters the same
// multi-phase ImplementationPhase, a Transition into InProgress or
// AiReview starts the matching next phase, and an Iterate from ReviewPhase
// starts a FixPhase carrying its feedback. AwaitingApproval and
// Complete stop the chain; Complete additionally merges and tears down
// the task's workspace.
func (e *TaskExecutor) runChain(ctx context.Context, ph phase.Phase, t types.Task) {
	for {
		outcome, updated, err := e.engine.Execute(ctx, ph, t)
		if err != nil {
			logging.Logger.Error().Err(err).Str("task_id", t.ID).Str("phase", string(ph.PhaseType())).Msg("execute phase")
			e.ctx.Bus.Publish(types.ErrorEvent{TaskID: t.ID, Message: err.Error()})
			return
		}
		t = updated

		switch outcome.Kind {
		case types.OutcomeContinue:
			continue

		case types.OutcomeTransition:
			t.Status = outcome.NextStatus
			next, ok, err := e.nextAfterTransition(t)
			if err != nil {
				logging.Logger.Error().Err(err).Str("task_id", t.ID).Msg("dispatch next phase after transition")
				return
			}
			if !ok {
				// Transitioned into PlanningReview or Review: a human
				// review gate the chain stops at.
				return
			}
			ph = next

		case types.OutcomeIterate:
			transitioned, err := e.transitioner.Transition(t, types.StatusFix)
			if err != nil {
				logging.Logger.Error().Err(err).Str("task_id", t.ID).Msg("transition to fix for review iteration")
				return
			}
			t = transitioned
			ph = phase.NewFixPhaseFromFeedback(e.deps, outcome.Feedback)

		case types.OutcomeAwaitingApproval, types.OutcomeComplete:
			if outcome.Kind == types.OutcomeComplete {
				e.completeTask(ctx, t)
			}
			return
		}
	}
}

// nextAfterTransition decides whether the chain should continue
// in-process after a plain status Transition, without waiting for a
// human to call the HTTP transition endpoint. Only the two fully
// automatic edges continue: skip-approval Planning -> InProgress, and
// Implementation/Fix -> AiReview. Every other transition (into
// PlanningReview, Review, or Done) is a human-review gate or terminal
// state the chain stops at.
func (e *TaskExecutor) nextAfterTransition(t types.Task) (phase.Phase, bool, error) {
	switch t.Status {
	case types.StatusInProgress:
		ph, err := phase.NewImplementationPhase(e.deps, t.ID)
		return ph, true, err
	case types.StatusAiReview:
		iteration, err := e.completedFixIterations(t.ID)
		if err != nil {
			return nil, false, err
		}
		return phase.NewReviewPhase(e.deps, iteration), true, nil
	default:
		return nil, false, nil
	}
}

// completeTask merges the task's workspace back into the project and
// deletes it, now that the task has reached Done. Workspace lifetime
// is the task's, not any one session's, which is why this lives in the
// engine's chain driver rather than in ReviewPhase.ProcessResult.
func (e *TaskExecutor) completeTask(ctx context.Context, t types.Task) {
	if t.WorkspacePath == nil || e.deps.Workspaces == nil {
		return
	}
	ws := vcsWorkspace(t)
	if err := e.deps.Workspaces.Merge(ctx, ws); err != nil {
		logging.Logger.Error().Err(err).Str("task_id", t.ID).Msg("merge workspace on completion")
		e.ctx.Bus.Publish(types.ErrorEvent{TaskID: t.ID, Message: fmt.Sprintf("merge workspace: %v", err)})
		return
	}
	e.ctx.Bus.Publish(types.WorkspaceMerged{TaskID: t.ID})

	if err := e.deps.Workspaces.Delete(ctx, ws); err != nil {
		logging.Logger.Error().Err(err).Str("task_id", t.ID).Msg("delete workspace on completion")
		return
	}
	e.ctx.Bus.Publish(types.WorkspaceDeleted{TaskID: t.ID})
}

// completedFixIterations counts how many Fix-phase sessions have
// already completed for task, used as ReviewPhase's iteration number —
// derived from session history rather than persisted separately, since
// the Session table is already the record of every dispatch.
func (e *TaskExecutor) completedFixIterations(taskID string) (int, error) {
	sessions, err := e.ctx.Sessions.ListForTask(taskID)
	if err != nil {
		return 0, fmt.Errorf("list sessions for iteration count: %w", err)
	}
	n := 0
	for _, s := range sessions {
		if s.Phase == types.PhaseFix && s.Status == types.SessionCompleted {
			n++
		}
	}
	return n, nil
}
