package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/souky-byte/opencode-studio/internal/activity"
	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/logging"
	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// runSession implements ExecutionEngine.run_session (spec §4.3-§4.4):
// create the backend session, persist it, stream its activity into the
// session's store until a terminal signal, and return the canonical
// SessionOutput for Phase.ProcessResult.
func runSession(
	ctx context.Context,
	backend opencodeclient.Client,
	sessions *db.SessionRepo,
	activities *activity.Registry,
	bus *event.Bus,
	task types.Task,
	phaseType types.SessionPhase,
	workingDir, prompt string,
	model types.ModelRef,
) (types.SessionOutput, error) {
	sessionID := uuid.NewString()

	opencodeSessionID, err := backend.CreateSession(ctx, workingDir)
	if err != nil {
		return types.SessionOutput{}, fmt.Errorf("run_session: create_session: %w", err)
	}

	now := time.Now()
	sess := types.Session{
		ID:                sessionID,
		TaskID:            task.ID,
		Phase:             phaseType,
		Status:            types.SessionRunning,
		OpenCodeSessionID: &opencodeSessionID,
		CreatedAt:         now,
	}
	if err := sessions.Create(sess); err != nil {
		return types.SessionOutput{}, fmt.Errorf("run_session: persist session: %w", err)
	}

	bus.Publish(types.SessionStarted{
		SessionID:         sessionID,
		TaskID:            task.ID,
		Phase:             phaseType,
		OpenCodeSessionID: opencodeSessionID,
		CreatedAt:         now,
	})

	store := activities.GetOrCreate(sessionID)

	output, runErr := stream(ctx, backend, store, workingDir, opencodeSessionID, prompt, model)
	output.SessionID = sessionID
	output.OpenCodeSessionID = opencodeSessionID

	status := types.SessionCompleted
	if !output.Success {
		status = types.SessionFailed
	}
	if err := sessions.UpdateStatus(sessionID, status); err != nil {
		logging.Logger.Error().Err(err).Str("session_id", sessionID).Msg("update session status")
	}

	var errMsg *string
	if output.Error != "" {
		errMsg = &output.Error
	}
	store.Push(types.NewFinished(time.Now(), output.Success, errMsg))

	bus.Publish(types.SessionEnded{SessionID: sessionID, TaskID: task.ID, Success: output.Success})

	return output, runErr
}

// stream subscribes to the backend's SSE stream for opencodeSessionID,
// sends the prompt, and translates every event into the session's
// activity store until a terminal signal arrives.
func stream(
	ctx context.Context,
	backend opencodeclient.Client,
	store *activity.Store,
	workingDir, opencodeSessionID, prompt string,
	model types.ModelRef,
) (types.SessionOutput, error) {
	events, err := backend.Subscribe(ctx, workingDir, opencodeSessionID)
	if err != nil {
		return types.SessionOutput{Success: false, Error: err.Error()}, fmt.Errorf("subscribe: %w", err)
	}

	if err := backend.SendPrompt(ctx, opencodeSessionID, workingDir, prompt, model); err != nil {
		return types.SessionOutput{Success: false, Error: err.Error()}, fmt.Errorf("send_prompt: %w", err)
	}

	success := true
	var failure string

loop:
	for {
		select {
		case <-ctx.Done():
			success, failure = false, ctx.Err().Error()
			break loop

		case ev, ok := <-events:
			if !ok {
				break loop
			}
			switch v := ev.(type) {
			case opencodeclient.MessagePartUpdated:
				msg, err := activity.ParseSSEPart(v.Part)
				if err != nil {
					continue
				}
				store.Push(msg)

			case opencodeclient.DirectActivity:
				store.Push(v.Msg)

			case opencodeclient.SessionIdle:
				break loop

			case opencodeclient.StatusChanged:
				if v.Status == "error" {
					success, failure = false, "session reported status=error"
					break loop
				}
				if v.Status == "idle" {
					break loop
				}

			case opencodeclient.ExecutorError:
				success, failure = false, v.Err.Error()
				break loop

			case opencodeclient.Disconnected:
				success, failure = false, "backend disconnected before a terminal signal"
				break loop
			}
		}
	}

	text, err := lastAssistantText(ctx, backend, opencodeSessionID)
	if err != nil && success {
		success, failure = false, err.Error()
	}

	return types.SessionOutput{ResponseText: text, Success: success, Error: failure}, nil
}

func lastAssistantText(ctx context.Context, backend opencodeclient.Client, opencodeSessionID string) (string, error) {
	messages, err := backend.SessionMessages(ctx, opencodeSessionID)
	if err != nil {
		return "", fmt.Errorf("session_messages: %w", err)
	}
	return opencodeclient.LastAssistantText(messages), nil
}
