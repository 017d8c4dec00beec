package engine

import (
	"context"
	"testing"
	"time"

	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

func TestRunSession_SuccessPath(t *testing.T) {
	store := newTestStore(t)
	registry := newTestRegistry()
	bus := newTestBus(t)
	backend := opencodeclient.NewFake()

	task := types.Task{ID: "task-1"}

	var started types.SessionStarted
	var ended types.SessionEnded
	unsub := bus.Subscribe(func(env types.EventEnvelope) {
		switch v := env.Event.(type) {
		case types.SessionStarted:
			started = v
		case types.SessionEnded:
			ended = v
		}
	})
	defer unsub()

	done := make(chan struct {
		out types.SessionOutput
		err error
	}, 1)
	go func() {
		out, err := runSession(context.Background(), backend, store.Sessions(), registry, bus, task, types.PhaseImplementation, "/workspace", "do the thing", types.ModelRef{})
		done <- struct {
			out types.SessionOutput
			err error
		}{out, err}
	}()

	// Give CreateSession+Subscribe a moment to register before pushing
	// events against the deterministic first fake session id.
	time.Sleep(10 * time.Millisecond)
	text := "I did the thing."
	backend.PushAssistantText("fake-session-1", text)
	backend.PushEvent("fake-session-1", opencodeclient.SessionIdle{SessionID: "fake-session-1"})

	result := <-done
	if result.err != nil {
		t.Fatalf("runSession failed: %v", result.err)
	}
	if !result.out.Success {
		t.Errorf("expected success, got %+v", result.out)
	}
	if result.out.ResponseText != text {
		t.Errorf("ResponseText = %q, want %q", result.out.ResponseText, text)
	}
	if result.out.OpenCodeSessionID != "fake-session-1" {
		t.Errorf("OpenCodeSessionID = %q", result.out.OpenCodeSessionID)
	}

	sess, err := store.Sessions().Get(result.out.SessionID)
	if err != nil {
		t.Fatalf("Get session failed: %v", err)
	}
	if sess.Status != types.SessionCompleted {
		t.Errorf("session status = %s, want completed", sess.Status)
	}

	if started.TaskID != "task-1" || started.OpenCodeSessionID != "fake-session-1" {
		t.Errorf("SessionStarted not observed correctly: %+v", started)
	}
	if !ended.Success || ended.TaskID != "task-1" {
		t.Errorf("SessionEnded not observed correctly: %+v", ended)
	}

	activityStore, ok := registry.Get(result.out.SessionID)
	if !ok {
		t.Fatalf("activity store not created for session")
	}
	history := activityStore.History()
	if len(history) == 0 {
		t.Fatalf("expected at least the terminal Finished activity")
	}
	if _, ok := history[len(history)-1].Msg.(types.Finished); !ok {
		t.Errorf("last activity = %T, want Finished", history[len(history)-1].Msg)
	}
}

func TestRunSession_BackendError(t *testing.T) {
	store := newTestStore(t)
	registry := newTestRegistry()
	bus := newTestBus(t)
	backend := opencodeclient.NewFake()

	task := types.Task{ID: "task-2"}

	done := make(chan types.SessionOutput, 1)
	go func() {
		out, _ := runSession(context.Background(), backend, store.Sessions(), registry, bus, task, types.PhaseReview, "/workspace", "review it", types.ModelRef{})
		done <- out
	}()

	time.Sleep(10 * time.Millisecond)
	backend.PushEvent("fake-session-1", opencodeclient.ExecutorError{SessionID: "fake-session-1", Err: errTestBackend})

	out := <-done
	if out.Success {
		t.Errorf("expected failure, got %+v", out)
	}
	sess, err := store.Sessions().Get(out.SessionID)
	if err != nil {
		t.Fatalf("Get session failed: %v", err)
	}
	if sess.Status != types.SessionFailed {
		t.Errorf("session status = %s, want failed", sess.Status)
	}
}

type testBackendError struct{ msg string }

func (e testBackendError) Error() string { return e.msg }

var errTestBackend = testBackendError{"backend blew up"}
