package server

import (
	"bufio"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// readSSEFrame reads one "id/event/data" frame off r, blocking until a
// blank line terminates it or the deadline passes.
func readSSEFrame(t *testing.T, r *bufio.Reader) (id, event string, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "id: "):
			id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if event != "" {
				return id, event, data
			}
		}
	}
}

func TestGlobalEvents_StreamsPublishedEnvelopes(t *testing.T) {
	srv, ctx, _ := newTestServer(t)

	reqCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(reqCtx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Router().ServeHTTP(w, req)
		close(done)
	}()

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	ctx.Bus.Publish(types.TaskCreated{TaskID: "task-9", Title: "hello"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(w.Body.String(), "task.created") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Contains(t, w.Body.String(), "event: task.created")
	require.Contains(t, w.Body.String(), "task-9")

	cancel()
	<-done
}

func TestSessionActivity_ReplaysHistoryThenStops(t *testing.T) {
	srv, ctx, _ := newTestServer(t)

	store, err := ctx.Activities.GetOrCreateWithHistory("sess-1")
	require.NoError(t, err)
	store.Push(types.NewToolCall(time.Now(), "tc-1", "bash", nil))
	store.Push(types.NewFinished(time.Now(), true, nil))

	reqCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/sessions/sess-1/activity", nil).WithContext(reqCtx)
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	body := w.Body.String()
	require.Contains(t, body, "event: tool_call")
	require.Contains(t, body, "event: finished")
}
