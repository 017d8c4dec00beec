package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/souky-byte/opencode-studio/internal/logging"
)

// Workspace is an isolated checkout of the project's source tree, owned
// by one task for the lifetime of its execution.
type Workspace struct {
	TaskID string
	Path   string
	Branch string
}

// VersionControl isolates a task into its own workspace and reports
// what changed in it. internal/engine's acquire_resources calls
// CreateWorkspace, ReviewPhase calls Diff, and the engine's
// TaskExecutor calls Merge and Delete once a task is done. Only a
// git-backed implementation is provided.
type VersionControl interface {
	// CreateWorkspace branches off the project's current HEAD into a
	// new worktree dedicated to taskID.
	CreateWorkspace(ctx context.Context, taskID string) (Workspace, error)

	// Diff returns a human-readable per-file diff ("--- path" and
	// "+++ path" headers followed by +/- lines, without hunk headers)
	// between a workspace and the branch it was created from.
	Diff(ctx context.Context, ws Workspace) (string, error)

	// Merge merges a workspace's branch back into the project's base
	// branch; the git implementation always creates a merge commit
	// (--no-ff).
	Merge(ctx context.Context, ws Workspace) error

	// Delete removes a workspace's worktree and branch.
	Delete(ctx context.Context, ws Workspace) error
}

// GitVersionControl implements VersionControl with `git worktree`,
// shelling out the same way project.go and watcher.go already do.
type GitVersionControl struct {
	projectRoot string
	baseBranch  string
}

// NewGitVersionControl builds a VersionControl for a git project rooted
// at projectRoot. baseBranch is the branch workspaces fork from and
// merge back into; if empty, it is resolved from the current HEAD.
func NewGitVersionControl(projectRoot, baseBranch string) (*GitVersionControl, error) {
	if baseBranch == "" {
		baseBranch = getCurrentBranch(projectRoot)
		if baseBranch == "" {
			return nil, fmt.Errorf("vcs: %s is not a git repository", projectRoot)
		}
	}
	return &GitVersionControl{projectRoot: projectRoot, baseBranch: baseBranch}, nil
}

func (g *GitVersionControl) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (g *GitVersionControl) CreateWorkspace(ctx context.Context, taskID string) (Workspace, error) {
	branch := fmt.Sprintf("task/%s-%s", taskID, uuid.NewString()[:8])
	path := filepath.Join(g.projectRoot, ".opencode-studio", "workspaces", taskID)

	if _, err := g.run(ctx, g.projectRoot, "worktree", "add", "-b", branch, path, g.baseBranch); err != nil {
		return Workspace{}, fmt.Errorf("create workspace: %w", err)
	}

	logging.Logger.Info().Str("task_id", taskID).Str("branch", branch).Str("path", path).Msg("workspace created")
	return Workspace{TaskID: taskID, Path: path, Branch: branch}, nil
}

func (g *GitVersionControl) Diff(ctx context.Context, ws Workspace) (string, error) {
	return diffAgainstBase(ctx, g, ws)
}

func (g *GitVersionControl) Merge(ctx context.Context, ws Workspace) error {
	if _, err := g.run(ctx, g.projectRoot, "merge", "--no-ff", "-m", fmt.Sprintf("merge task %s", ws.TaskID), ws.Branch); err != nil {
		return fmt.Errorf("merge workspace: %w", err)
	}
	logging.Logger.Info().Str("task_id", ws.TaskID).Str("branch", ws.Branch).Msg("workspace merged")
	return nil
}

func (g *GitVersionControl) Delete(ctx context.Context, ws Workspace) error {
	if _, err := g.run(ctx, g.projectRoot, "worktree", "remove", "--force", ws.Path); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	if _, err := g.run(ctx, g.projectRoot, "branch", "-D", ws.Branch); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	logging.Logger.Info().Str("task_id", ws.TaskID).Str("branch", ws.Branch).Msg("workspace deleted")
	return nil
}

// changedFiles lists paths that differ between a workspace's HEAD and
// its base branch.
func (g *GitVersionControl) changedFiles(ctx context.Context, ws Workspace) ([]string, error) {
	out, err := g.run(ctx, ws.Path, "diff", "--name-only", g.baseBranch+"...HEAD")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// fileAt returns a file's contents at a given git ref, or "" if the
// file does not exist there (created or deleted file).
func (g *GitVersionControl) fileAt(ctx context.Context, dir, ref, path string) string {
	out, err := g.run(ctx, dir, "show", ref+":"+path)
	if err != nil {
		return ""
	}
	return out
}
