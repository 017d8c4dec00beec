// Package task implements the task state machine: the single funnel
// through which every status write must pass.
package task

import (
	"fmt"
	"time"

	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// InvalidTransition is returned when (from, to) is not in the allowed
// transition table.
type InvalidTransition struct {
	From types.TaskStatus
	To   types.TaskStatus
}

func (e InvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// allowed is the transition adjacency table.
// InProgress -> InProgress is intentionally absent: idempotent re-entry
// into the current status is handled by the caller, not by the table
// itself.
var allowed = map[types.TaskStatus]map[types.TaskStatus]bool{
	types.StatusTodo: {
		types.StatusPlanning: true,
	},
	types.StatusPlanning: {
		types.StatusPlanningReview: true,
		types.StatusInProgress:     true, // only when require_plan_approval = false
	},
	types.StatusPlanningReview: {
		types.StatusPlanning:   true, // rejection / re-plan
		types.StatusInProgress: true, // approval
	},
	types.StatusInProgress: {
		types.StatusAiReview: true,
	},
	types.StatusAiReview: {
		types.StatusReview:     true, // AI approved
		types.StatusFix:        true, // findings detected
		types.StatusInProgress: true, // free-form changes requested (legacy path)
	},
	types.StatusFix: {
		types.StatusAiReview: true,
	},
	types.StatusReview: {
		types.StatusDone: true, // approval
		types.StatusFix:  true, // rejection with feedback
	},
	types.StatusDone: {},
}

// Transitioner funnels every task status write through Transition and
// publishes TaskStatusChanged exactly once per successful call.
type Transitioner struct {
	tasks *db.TaskRepo
	bus   *event.Bus
}

// New builds a Transitioner bound to a project's task repository and
// event bus.
func New(tasks *db.TaskRepo, bus *event.Bus) *Transitioner {
	return &Transitioner{tasks: tasks, bus: bus}
}

// IsAllowed reports whether from -> to is in the transition table,
// without requiring require_plan_approval context — callers that need
// the approval-gated Planning -> InProgress rule enforce it themselves
// before calling Transition.
func IsAllowed(from, to types.TaskStatus) bool {
	return allowed[from][to]
}

// Transition validates and applies a status change to task, persists
// it, and publishes TaskStatusChanged exactly once on success.
func (t *Transitioner) Transition(task types.Task, to types.TaskStatus) (types.Task, error) {
	if !IsAllowed(task.Status, to) {
		return task, InvalidTransition{From: task.Status, To: to}
	}

	now := time.Now()
	if err := t.tasks.UpdateStatus(task.ID, to, now); err != nil {
		return task, fmt.Errorf("persist transition: %w", err)
	}

	from := task.Status
	task.Status = to
	task.UpdatedAt = now

	t.bus.Publish(types.TaskStatusChanged{TaskID: task.ID, From: from, To: to})
	return task, nil
}
