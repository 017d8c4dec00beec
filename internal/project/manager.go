package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/souky-byte/opencode-studio/internal/activity"
	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/logging"
	"github.com/souky-byte/opencode-studio/internal/vcs"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// Manager holds the single active ProjectContext and swaps it
// atomically on Open. Every request-serving goroutine reads Current()
// under a read lock, so it always observes either the fully-old or the
// fully-new context — never one under construction.
type Manager struct {
	mu      sync.RWMutex
	current *ProjectContext

	bus         *event.Bus
	newExecutor ExecutorFactory
}

// NewManager constructs a Manager. newExecutor is invoked once per
// Open call, after every other ProjectContext field is populated.
func NewManager(bus *event.Bus, newExecutor ExecutorFactory) *Manager {
	return &Manager{bus: bus, newExecutor: newExecutor}
}

// Current returns the active project context, if one is open.
func (m *Manager) Current() (*ProjectContext, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current != nil
}

// Open switches the manager to the project rooted at path:
//  1. Verify path exists, is a directory, and contains .git or .jj.
//  2. Initialize .opencode-studio/ if absent (idempotent).
//  3. Resolve the project's namespaced SQLite data directory.
//  4. Build every resource (pool, repos, registry, workspace manager,
//     executor) outside any lock.
//  5. Swap the held pointer under the write lock.
//  6. Close the previously active context, if any.
//  7. Publish ProjectOpened.
func (m *Manager) Open(ctx context.Context, path string) (*ProjectContext, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("project path: %w", err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory", path)
	}

	kind := detectVCS(path)
	if kind == VCSNone {
		return nil, fmt.Errorf("project path %s contains neither .git nor .jj", path)
	}

	artifactDir, wasInitialized, err := ensureArtifactDirTracked(path)
	if err != nil {
		return nil, err
	}

	info, err := FromDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("detect project identity: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load project config: %w", err)
	}

	dataDir := config.GetPaths().DataDirFor(db.ProjectHash(path))
	pool, err := db.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open project database: %w", err)
	}

	var workspaces vcs.VersionControl
	var watcher *vcs.Watcher
	if kind == VCSGit {
		workspaces, err = vcs.NewGitVersionControl(path, "")
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("init workspace manager: %w", err)
		}
		watcher, err = vcs.NewWatcher(path)
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("init branch watcher: %w", err)
		}
	}
	// kind == VCSJJ: jujutsu detection is supported, but no
	// VersionControl implementation exists for it. Workspaces stays
	// nil; a phase that needs a workspace then fails with an error
	// (acquire_resources reports that the project has no version
	// control configured) rather than a nil-pointer panic here.

	activities := activity.NewRegistry(pool.Activities())

	newCtx := &ProjectContext{
		Path:           path,
		Info:           *info,
		Config:         cfg,
		Pool:           pool,
		Tasks:          pool.Tasks(),
		Sessions:       pool.Sessions(),
		ReviewComments: pool.ReviewComments(),
		Activities:     activities,
		Workspaces:     workspaces,
		Bus:            m.bus,
		artifactDir:    artifactDir,
		watcher:        watcher,
	}
	if m.newExecutor != nil {
		newCtx.Executor = m.newExecutor(newCtx)
	}
	if watcher != nil {
		watcher.Start()
	}

	m.mu.Lock()
	previous := m.current
	m.current = newCtx
	m.mu.Unlock()

	if previous != nil {
		if err := previous.close(); err != nil {
			logging.Logger.Error().Err(err).Str("path", previous.Path).Msg("close previous project context")
		}
	}

	m.bus.Publish(types.ProjectOpened{
		Path:           path,
		Name:           filepath.Base(path),
		WasInitialized: wasInitialized,
	})

	return newCtx, nil
}

// Close closes the active project context, if any, leaving the
// manager with no current project.
func (m *Manager) Close() error {
	m.mu.Lock()
	current := m.current
	m.current = nil
	m.mu.Unlock()

	if current == nil {
		return nil
	}
	return current.close()
}

// ensureArtifactDirTracked wraps ensureArtifactDir, also reporting
// whether the directory did not already exist (used for the
// ProjectOpened.WasInitialized flag).
func ensureArtifactDirTracked(path string) (dir string, wasInitialized bool, err error) {
	dir = config.ArtifactDir(path)
	if _, statErr := os.Stat(dir); statErr != nil {
		wasInitialized = true
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create artifact dir: %w", err)
	}
	return dir, wasInitialized, nil
}
