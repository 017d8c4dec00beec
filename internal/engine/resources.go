package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/logging"
	"github.com/souky-byte/opencode-studio/internal/mcp"
	"github.com/souky-byte/opencode-studio/internal/vcs"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ResourceGuard owns whatever a phase's RequiredResources needed for
// one Execute call: the task's workspace (created lazily, never torn
// down here) and any MCP server connections (always torn down here).
// Release is safe to call more than once and is always deferred by the
// caller immediately after acquireResources returns, regardless of
// which step failed.
type ResourceGuard struct {
	workingDir string
	mcpClient  *mcp.Client
}

// WorkingDir is the directory the session should run in: the task's
// workspace if one was required/created, otherwise the project root.
func (g *ResourceGuard) WorkingDir() string {
	return g.workingDir
}

// Release disconnects any MCP servers this guard connected. Workspaces
// are not released here: their lifetime is the task's, not one
// session's, and they are merged/deleted by the engine only once a
// task reaches Done (see TaskExecutor.completeTask).
func (g *ResourceGuard) Release() {
	if g.mcpClient == nil {
		return
	}
	if err := g.mcpClient.Close(); err != nil {
		logging.Logger.Warn().Err(err).Msg("close mcp client")
	}
}

// acquireResources prepares a task's workspace (creating it on first
// use, if the phase needs one and the task doesn't have one yet) and
// connects the MCP servers a PhaseConfig named, returning a guard that
// owns the latter. It never blocks on anything but the workspace
// checkout and the MCP server handshake.
func acquireResources(
	ctx context.Context,
	required types.RequiredResources,
	cfg types.PhaseConfig,
	task types.Task,
	tasks *db.TaskRepo,
	workspaces vcs.VersionControl,
	bus *event.Bus,
	projectPath string,
) (*ResourceGuard, types.Task, error) {
	guard := &ResourceGuard{workingDir: projectPath}
	if task.WorkspacePath != nil {
		guard.workingDir = *task.WorkspacePath
	}

	if required.NeedsWorkspace && task.WorkspacePath == nil {
		if workspaces == nil {
			return nil, task, fmt.Errorf("acquire_resources: task %s needs a workspace but this project has no version control configured", task.ID)
		}
		ws, err := workspaces.CreateWorkspace(ctx, task.ID)
		if err != nil {
			return nil, task, fmt.Errorf("create workspace: %w", err)
		}
		if err := tasks.SetWorkspace(task.ID, ws.Path, ws.Branch); err != nil {
			return nil, task, fmt.Errorf("persist workspace: %w", err)
		}
		task.WorkspacePath = &ws.Path
		task.WorkspaceBranch = &ws.Branch
		guard.workingDir = ws.Path
		bus.Publish(types.WorkspaceCreated{TaskID: task.ID, Path: ws.Path})
	}

	if len(cfg.MCPServers) > 0 {
		client := mcp.NewClient()
		for i, spawnCmd := range cfg.MCPServers {
			fields := strings.Fields(spawnCmd)
			if len(fields) == 0 {
				continue
			}
			name := fmt.Sprintf("phase-mcp-%d", i)
			if err := client.AddServer(ctx, name, &mcp.Config{
				Enabled: true,
				Type:    mcp.TransportTypeStdio,
				Command: fields,
			}); err != nil {
				_ = client.Close()
				return nil, task, fmt.Errorf("connect mcp server %q: %w", spawnCmd, err)
			}
		}
		guard.mcpClient = client
	}

	return guard, task, nil
}
