package engine

import (
	"testing"

	"github.com/souky-byte/opencode-studio/internal/activity"
	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/event"
)

// newTestStore opens a fresh sqlite-backed store in a temp directory,
// following the same pattern as internal/db's and internal/phase's own
// test helpers.
func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestRegistry() *activity.Registry {
	return activity.NewRegistry(nil)
}

func newTestBus(t *testing.T) *event.Bus {
	t.Helper()
	bus := event.New()
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}
