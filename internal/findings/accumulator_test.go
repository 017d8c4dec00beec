package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

func TestAccumulator_AddAssignsSequentialIDs(t *testing.T) {
	a := NewAccumulator("task-1", "sess-1")

	f1 := a.Add(types.ReviewFinding{Title: "one"})
	f2 := a.Add(types.ReviewFinding{Title: "two"})

	assert.Equal(t, "finding-1", f1.ID)
	assert.Equal(t, "finding-2", f2.ID)
}

func TestAccumulator_Snapshot_DefaultsToNotApproved(t *testing.T) {
	a := NewAccumulator("task-1", "sess-1")
	snap := a.Snapshot()
	assert.False(t, snap.Approved)
	assert.False(t, a.Completed())
}

func TestAccumulator_Complete_SetsApprovedAndSummary(t *testing.T) {
	a := NewAccumulator("task-1", "sess-1")
	a.Complete("all good", true)

	assert.True(t, a.Completed())
	snap := a.Snapshot()
	assert.True(t, snap.Approved)
	assert.Equal(t, "all good", snap.Summary)
}
