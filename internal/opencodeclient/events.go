package opencodeclient

import (
	"context"
	"fmt"

	opencode "github.com/sst/opencode-sdk-go"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ExecutorEvent is a tagged sum over the events SessionRunner observes
// while streaming one session's backend activity.
type ExecutorEvent interface{ executorEvent() }

// SessionIdle signals normal completion of a session's current turn.
type SessionIdle struct{ SessionID string }

func (SessionIdle) executorEvent() {}

// StatusChanged carries a raw backend status string (e.g. "idle", "error").
type StatusChanged struct {
	SessionID string
	Status    string
}

func (StatusChanged) executorEvent() {}

// MessagePartUpdated is a backend message.part.updated event, still in
// its raw Part shape — the caller converts it via activity.ParseSSEPart.
type MessagePartUpdated struct {
	SessionID string
	Part      types.Part
	Delta     string
}

func (MessagePartUpdated) executorEvent() {}

// DirectActivity is for backends that already emit the activity schema
// directly, bypassing message-part translation.
type DirectActivity struct {
	SessionID string
	Msg       types.ActivityMsg
}

func (DirectActivity) executorEvent() {}

// ExecutorError reports an SSE transport error or a session-level error.
type ExecutorError struct {
	SessionID string
	Err       error
}

func (ExecutorError) executorEvent() {}

// Disconnected signals the stream ended without a terminal signal (e.g.
// the backend closed the connection).
type Disconnected struct{ SessionID string }

func (Disconnected) executorEvent() {}

// Subscribe opens the backend's global SSE stream for directory and
// filters it down to events about sessionID, translating each into an
// ExecutorEvent. The returned channel is closed when ctx is cancelled
// or the stream ends.
func (c *SDKClient) Subscribe(ctx context.Context, directory, sessionID string) (<-chan ExecutorEvent, error) {
	out := make(chan ExecutorEvent, 64)
	stream := c.api.Event.ListStreaming(ctx, opencode.EventListParams{Directory: opencode.F(directory)})

	go func() {
		defer close(out)
		for stream.Next() {
			evt := stream.Current()
			if ev, ok := translate(evt, sessionID); ok {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case out <- ExecutorError{SessionID: sessionID, Err: err}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- Disconnected{SessionID: sessionID}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// translate maps one backend event onto an ExecutorEvent, dropping
// events not about sessionID. ok is false when the event is either
// irrelevant or of a variant this client does not act on.
func translate(evt opencode.EventListResponse, sessionID string) (ExecutorEvent, bool) {
	switch v := evt.AsUnion().(type) {
	case opencode.EventListResponseEventMessagePartUpdated:
		if v.Properties.Part.SessionID != sessionID {
			return nil, false
		}
		part, ok := convertPart(v.Properties.Part)
		if !ok {
			return nil, false
		}
		return MessagePartUpdated{SessionID: sessionID, Part: part}, true

	case opencode.EventListResponseEventSessionIdle:
		if v.Properties.SessionID != sessionID {
			return nil, false
		}
		return SessionIdle{SessionID: sessionID}, true

	case opencode.EventListResponseEventSessionError:
		if v.Properties.SessionID != sessionID {
			return nil, false
		}
		return ExecutorError{SessionID: sessionID, Err: fmt.Errorf("%s", v.Properties.Error.Name)}, true

	default:
		return nil, false
	}
}

// convertPart maps one opencode.Part onto the backend-contract shape
// consumed by activity.ParseSSEPart.
func convertPart(p opencode.Part) (types.Part, bool) {
	switch v := p.AsUnion().(type) {
	case opencode.TextPart:
		text := v.Text
		return types.Part{ID: v.ID, Type: types.PartText, Text: &text}, true

	case opencode.ReasoningPart:
		text := v.Text
		return types.Part{ID: v.ID, Type: types.PartReasoning, Text: &text}, true

	case opencode.ToolPart:
		tool := v.Tool
		callID := v.CallID
		state := convertToolState(v.State)
		return types.Part{ID: v.ID, Type: types.PartTool, Tool: &tool, CallID: &callID, State: &state}, true

	default:
		return types.Part{}, false
	}
}

func convertToolState(s opencode.ToolPartState) types.ToolState {
	out := types.ToolState{Status: string(s.Status)}
	switch v := s.AsUnion().(type) {
	case opencode.ToolStateCompleted:
		output := v.Output
		out.Output = &output
	case opencode.ToolStateError:
		errText := v.Error
		out.Error = &errText
	}
	return out
}
