package phase

import (
	"testing"

	"github.com/souky-byte/opencode-studio/internal/artifact"
	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/task"
)

// newTestDeps builds a Deps wired to a fresh in-memory-ish store and
// artifact directory, along with the pieces tests need to assert on
// (the store, for creating fixture tasks, and the bus, for asserting
// published events).
func newTestDeps(t *testing.T, cfg config.StudioConfig) (Deps, *db.Store, *event.Bus) {
	t.Helper()

	store, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bus := event.New()
	t.Cleanup(func() { bus.Close() })

	deps := Deps{
		Artifacts:      artifact.New(t.TempDir()),
		Transitioner:   task.New(store.Tasks(), bus),
		ReviewComments: store.ReviewComments(),
		Config:         cfg,
		ProjectPath:    t.TempDir(),
		ArtifactDir:    t.TempDir(),
	}
	return deps, store, bus
}
