package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/souky-byte/opencode-studio/internal/activity"
	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/logging"
	"github.com/souky-byte/opencode-studio/internal/vcs"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// TaskExecutor is the capability a ProjectContext hands out to the HTTP
// layer for starting phase execution. Implemented by
// internal/engine.TaskExecutor; declared here (not imported) so this
// package doesn't depend on internal/engine, which itself depends on a
// *ProjectContext to build phases against.
type TaskExecutor interface {
	// StartPhaseAsync dispatches the phase a task's current status maps
	// to and runs it (and every phase it chains into) in the
	// background, returning that phase's type as soon as dispatch
	// resolves it so the HTTP layer can report it before the session
	// itself has been created.
	StartPhaseAsync(task types.Task) (types.SessionPhase, error)
}

// ExecutorFactory builds the TaskExecutor wired to one ProjectContext's
// resources. Called by Manager.Open after every other field is set, so
// the factory can close over ctx.Tasks, ctx.Activities, ctx.Bus, etc.
type ExecutorFactory func(ctx *ProjectContext) TaskExecutor

// ProjectContext bundles every per-project resource the HTTP layer and
// phase machinery need: the DB pool and its typed repositories, the
// activity registry, the workspace manager, and the wired task
// executor.
type ProjectContext struct {
	Path   string
	Info   Info
	Config config.StudioConfig

	Pool *db.Store

	Tasks          *db.TaskRepo
	Sessions       *db.SessionRepo
	ReviewComments *db.ReviewCommentRepo
	Activities     *activity.Registry

	Workspaces vcs.VersionControl // nil if Info.VCS is not git

	Bus      *event.Bus
	Executor TaskExecutor

	artifactDir string
	watcher     *vcs.Watcher // nil if Info.VCS is not git
}

// ArtifactDir returns <path>/.opencode-studio, the root of this
// project's plan/review/findings/phase-context files.
func (c *ProjectContext) ArtifactDir() string {
	return c.artifactDir
}

// close stops the branch watcher, drains the DB pool, and publishes
// ProjectClosed. Exported via Manager.Close/Manager.Open so callers
// never hold a *ProjectContext past its closing.
func (c *ProjectContext) close() error {
	if c.watcher != nil {
		if err := c.watcher.Stop(); err != nil {
			logging.Logger.Error().Err(err).Str("path", c.Path).Msg("stop branch watcher")
		}
	}
	if c.Pool == nil {
		return nil
	}
	if err := c.Pool.Close(); err != nil {
		return fmt.Errorf("close project pool: %w", err)
	}
	c.Bus.Publish(types.ProjectClosed{Path: c.Path})
	return nil
}

// detectVCS reports whether path directly contains a .git or .jj
// directory (not a walk-up search — ProjectManager.open operates on an
// explicit project root, not an arbitrary subdirectory).
func detectVCS(path string) VCSKind {
	if info, err := os.Stat(filepath.Join(path, ".git")); err == nil && info.IsDir() {
		return VCSGit
	}
	if info, err := os.Stat(filepath.Join(path, ".jj")); err == nil && info.IsDir() {
		return VCSJJ
	}
	return VCSNone
}
