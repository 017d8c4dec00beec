package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/task"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// sessionStartWait bounds how long executeTask waits for the dispatched
// phase's session to announce itself before responding without one.
const sessionStartWait = 3 * time.Second

// waitForSessionStarted subscribes to bus before the caller triggers
// dispatch and returns a function that blocks (up to sessionStartWait,
// or until ctx is done) for the first SessionStarted envelope matching
// taskID. Subscribing before dispatch avoids a race against the
// background goroutine StartPhaseAsync launches.
func waitForSessionStarted(ctx context.Context, bus *event.Bus, taskID string) func() (types.SessionStarted, bool) {
	found := make(chan types.SessionStarted, 1)
	unsub := bus.Subscribe(func(env types.EventEnvelope) {
		started, ok := env.Event.(types.SessionStarted)
		if !ok || started.TaskID != taskID {
			return
		}
		select {
		case found <- started:
		default:
		}
	})

	return func() (types.SessionStarted, bool) {
		defer unsub()
		timer := time.NewTimer(sessionStartWait)
		defer timer.Stop()
		select {
		case ev := <-found:
			return ev, true
		case <-timer.C:
			return types.SessionStarted{}, false
		case <-ctx.Done():
			return types.SessionStarted{}, false
		}
	}
}

// executeTaskResponse is the body of a successful POST .../execute
// (spec.md §6.2: "returns {session_id, opencode_session_id, phase}
// with status 202"). SessionID/OpenCodeSessionID are filled in once the
// dispatched phase's session actually starts; StartPhaseAsync only
// resolves the phase synchronously, so the handler waits briefly on the
// event bus for the SessionStarted envelope before responding.
type executeTaskResponse struct {
	SessionID         string            `json:"sessionId,omitempty"`
	OpenCodeSessionID string            `json:"opencodeSessionId,omitempty"`
	Phase             types.SessionPhase `json:"phase"`
}

// executeTask handles POST /api/tasks/{id}/execute: begins or
// continues execution of the task's current phase.
func (s *Server) executeTask(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.currentProject(w)
	if !ok {
		return
	}
	taskID := chi.URLParam(r, "taskID")

	t, err := ctx.Tasks.Get(taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "task not found")
		return
	}
	if ctx.Executor == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "no task executor configured")
		return
	}

	started := waitForSessionStarted(r.Context(), ctx.Bus, taskID)

	phaseType, err := ctx.Executor.StartPhaseAsync(t)
	if err != nil {
		writeError(w, http.StatusConflict, ErrCodeInvalidRequest, err.Error())
		return
	}

	resp := executeTaskResponse{Phase: phaseType}
	if ev, ok := started(); ok {
		resp.SessionID = ev.SessionID
		resp.OpenCodeSessionID = ev.OpenCodeSessionID
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// transitionRequest is the body of POST /api/tasks/{id}/transition.
type transitionRequest struct {
	Status types.TaskStatus `json:"status"`
}

// transitionTask handles POST /api/tasks/{id}/transition: an explicit
// status change through a human approval gate (plan approval, review
// approval/rejection). A transition into a status the executor can run
// from (InProgress, Fix) immediately dispatches that phase, the same
// way the engine's own internal chaining does after an automatic
// transition.
func (s *Server) transitionTask(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.currentProject(w)
	if !ok {
		return
	}
	taskID := chi.URLParam(r, "taskID")

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	t, err := ctx.Tasks.Get(taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "task not found")
		return
	}

	transitioner := task.New(ctx.Tasks, ctx.Bus)
	updated, err := transitioner.Transition(t, req.Status)
	if err != nil {
		var invalid task.InvalidTransition
		if errors.As(err, &invalid) {
			writeError(w, http.StatusConflict, ErrCodeInvalidRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	if ctx.Executor != nil && dispatchableStatus(updated.Status) {
		if _, err := ctx.Executor.StartPhaseAsync(updated); err != nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, updated)
}

// dispatchableStatus reports whether a task landing on status after an
// HTTP-driven transition should resume execution immediately: only
// InProgress (plan approved) and Fix (review rejected) have a phase
// ready to run without further human input. The engine's own chain
// continues by itself into InProgress and AiReview after a Transition
// outcome (TaskExecutor.nextAfterTransition), and into Fix after an
// Iterate outcome.
func dispatchableStatus(status types.TaskStatus) bool {
	switch status {
	case types.StatusInProgress, types.StatusFix:
		return true
	default:
		return false
	}
}
