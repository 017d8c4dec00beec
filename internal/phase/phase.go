// Package phase implements the Phase trait and its four
// implementations (PlanningPhase, ImplementationPhase, ReviewPhase,
// FixPhase), the multi-phase AtomicPhaseContext, the plan parser, and
// the review-phase-summary extractor. Each phase is a thin, mostly
// pure function from a task to a PhaseConfig and back from a
// SessionOutput to a PhaseOutcome; ExecutionEngine (internal/engine)
// owns the actual session dispatch.
package phase

import (
	"context"
	"fmt"

	"github.com/souky-byte/opencode-studio/internal/artifact"
	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/task"
	"github.com/souky-byte/opencode-studio/internal/vcs"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// Phase is the common interface the engine drives: declare what a
// session needs, build its prompt, then turn its result into a task
// status change.
type Phase interface {
	// PhaseType returns the session phase tag recorded on the Session row.
	PhaseType() types.SessionPhase

	// RequiredResources is declared up front so the engine knows which
	// resources to acquire before dispatching a session.
	RequiredResources() types.RequiredResources

	// BuildConfig produces the PhaseConfig for the next session. Pure
	// with respect to the task's persisted status: it may read
	// artifacts and the workspace diff but must not call Transition.
	BuildConfig(ctx context.Context, t types.Task) (types.PhaseConfig, error)

	// ProcessResult is called once per session completion. It may
	// write artifacts and call Transition, and returns what the engine
	// should do next.
	ProcessResult(ctx context.Context, t types.Task, output types.SessionOutput) (types.PhaseOutcome, error)
}

// WorkspaceRequired is returned by BuildConfig when a phase needs a
// workspace diff but the task has none configured.
type WorkspaceRequired struct {
	TaskID string
}

func (e WorkspaceRequired) Error() string {
	return fmt.Sprintf("phase: task %s requires a workspace but none is configured", e.TaskID)
}

// Deps bundles the per-project resources every phase needs. Built once
// per ProjectContext and reused across every phase instance the engine
// constructs for that project's tasks.
type Deps struct {
	Artifacts      *artifact.Store
	Transitioner   *task.Transitioner
	Workspaces     vcs.VersionControl // nil when the project's VCS has no implementation (e.g. jujutsu)
	ReviewComments *db.ReviewCommentRepo
	Config         config.StudioConfig
	ProjectPath    string
	ArtifactDir    string
}

// workingDir resolves a task's working directory: its own workspace if
// one has been assigned, otherwise the project root.
func (d Deps) workingDir(t types.Task) string {
	if t.WorkspacePath != nil && *t.WorkspacePath != "" {
		return *t.WorkspacePath
	}
	return d.ProjectPath
}

func sessionFailedErr(phaseName string, output types.SessionOutput) error {
	return fmt.Errorf("%s session failed: %s", phaseName, output.Error)
}
