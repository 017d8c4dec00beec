package phase

import (
	"context"

	"github.com/souky-byte/opencode-studio/internal/vcs"
)

// fakeVersionControl is a no-shell-out stand-in for vcs.VersionControl,
// used to exercise ReviewPhase/FixPhase without a real git checkout.
type fakeVersionControl struct {
	diff    string
	diffErr error
}

func (f *fakeVersionControl) CreateWorkspace(ctx context.Context, taskID string) (vcs.Workspace, error) {
	return vcs.Workspace{TaskID: taskID}, nil
}

func (f *fakeVersionControl) Diff(ctx context.Context, ws vcs.Workspace) (string, error) {
	return f.diff, f.diffErr
}

func (f *fakeVersionControl) Merge(ctx context.Context, ws vcs.Workspace) error { return nil }

func (f *fakeVersionControl) Delete(ctx context.Context, ws vcs.Workspace) error { return nil }
