package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/souky-byte/opencode-studio/internal/activity"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// sseHeartbeatInterval matches the teacher's own SSE heartbeat cadence.
const sseHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for writing id/event/data frames
// with an immediate flush after each write.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) writeEvent(id, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "id: %s\nevent: %s\ndata: %s\n\n", id, eventType, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprint(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// globalEvents serves GET /api/events?task_ids=a,b,c, the global
// DomainEvent stream (spec.md §6.2). Last-Event-ID replays everything
// buffered after that envelope before the live subscription starts.
func (s *Server) globalEvents(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.currentProject(w)
	if !ok {
		return
	}

	var taskIDs map[string]bool
	if raw := r.URL.Query().Get("task_ids"); raw != "" {
		taskIDs = make(map[string]bool)
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				taskIDs[id] = true
			}
		}
	}
	matches := func(env types.EventEnvelope) bool {
		if taskIDs == nil {
			return true
		}
		return taskIDs[env.Event.AffectedTaskID()]
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	envelopes := make(chan types.EventEnvelope, 32)
	unsub := ctx.Bus.Subscribe(func(env types.EventEnvelope) {
		if !matches(env) {
			return
		}
		select {
		case envelopes <- env:
		default:
		}
	})
	defer unsub()

	if lastID := r.Header.Get("Last-Event-ID"); lastID != "" {
		if id, err := uuid.Parse(lastID); err == nil {
			for _, env := range ctx.Bus.EventsAfter(id) {
				if !matches(env) {
					continue
				}
				if err := sse.writeEvent(env.ID.String(), env.Event.EventName(), env); err != nil {
					return
				}
			}
		}
	}

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case env := <-envelopes:
			if err := sse.writeEvent(env.ID.String(), env.Event.EventName(), env); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}

// sessionActivity serves GET /api/sessions/{id}/activity, the
// per-session ActivityMsg stream (spec.md §6.2). Event ids are history
// sequence numbers, so Last-Event-ID replay is a plain integer
// comparison against activity.Store.After.
func (s *Server) sessionActivity(w http.ResponseWriter, r *http.Request) {
	ctx, ok := s.currentProject(w)
	if !ok {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	store, err := ctx.Activities.GetOrCreateWithHistory(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	live, unsub := store.Subscribe()
	defer unsub()

	lastSeq := -1
	if raw := r.Header.Get("Last-Event-ID"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			lastSeq = n
		}
	}
	var replay []activity.Event
	if lastSeq < 0 {
		replay = store.History()
	} else {
		replay = store.After(lastSeq)
	}
	for _, ev := range replay {
		if err := sse.writeEvent(strconv.Itoa(ev.Seq), ev.Msg.ActivityType(), ev.Msg); err != nil {
			return
		}
		if _, finished := ev.Msg.(types.Finished); finished {
			return
		}
	}

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-live:
			if err := sse.writeEvent(strconv.Itoa(ev.Seq), ev.Msg.ActivityType(), ev.Msg); err != nil {
				return
			}
			if _, finished := ev.Msg.(types.Finished); finished {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
