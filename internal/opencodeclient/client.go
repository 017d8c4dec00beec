// Package opencodeclient wraps the OpenCode backend SDK behind a small
// interface the engine can drive, and decouples it from the SDK's
// generated request/response shapes.
package opencodeclient

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	opencode "github.com/sst/opencode-sdk-go"
	"github.com/sst/opencode-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// Message is one turn of a session's history, as returned by
// SessionMessages.
type Message struct {
	Role  string
	Parts []types.Part
}

// Client is the minimal backend surface the execution engine needs:
// create a session, send a prompt, read back the final transcript, and
// subscribe to the session-filtered SSE stream.
type Client interface {
	CreateSession(ctx context.Context, workingDir string) (sessionID string, err error)
	SendPrompt(ctx context.Context, sessionID, workingDir, prompt string, model types.ModelRef) error
	SessionMessages(ctx context.Context, sessionID string) ([]Message, error)
	Subscribe(ctx context.Context, directory, sessionID string) (<-chan ExecutorEvent, error)
}

// SDKClient is the Client backed by the real OpenCode HTTP/SSE backend.
type SDKClient struct {
	api     *opencode.Client
	limiter *rate.Limiter
}

// Config configures an SDKClient.
type Config struct {
	BaseURL string
	APIKey  string
	// RequestsPerSecond caps concurrent create_session/send_prompt
	// calls against one backend instance; zero disables the limiter.
	RequestsPerSecond float64
}

// New builds an SDKClient against cfg.
func New(cfg Config) *SDKClient {
	opts := []option.RequestOption{option.WithBaseURL(cfg.BaseURL)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithHeader("authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)))
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &SDKClient{api: opencode.NewClient(opts...), limiter: limiter}
}

func (c *SDKClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// retry wraps fn with the same exponential-backoff policy the teacher
// uses for LLM provider retries, applied here to backend HTTP calls
// instead.
func retry(ctx context.Context, fn func() error) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(fn, backoff.WithMaxRetries(policy, 3))
}

// CreateSession asks the backend to create a session rooted at workingDir.
func (c *SDKClient) CreateSession(ctx context.Context, workingDir string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	var sessionID string
	err := retry(ctx, func() error {
		created, err := c.api.Session.New(ctx, opencode.SessionNewParams{Directory: opencode.F(workingDir)})
		if err != nil {
			return err
		}
		sessionID = created.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create_session: %w", err)
	}
	return sessionID, nil
}

// SendPrompt issues the asynchronous "kick-off" prompt call; completion
// is observed via the SSE stream, not this call's return.
func (c *SDKClient) SendPrompt(ctx context.Context, sessionID, workingDir, prompt string, model types.ModelRef) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	params := opencode.SessionPromptParams{
		Directory: opencode.F(workingDir),
		Parts: opencode.F([]opencode.SessionPromptParamsPartUnion{
			opencode.TextPartInputParam{
				Type: opencode.F(opencode.TextPartInputTypeText),
				Text: opencode.F(prompt),
			},
		}),
	}
	if model.ProviderID != "" && model.ModelID != "" {
		params.Model = opencode.F(opencode.SessionPromptParamsModel{
			ProviderID: opencode.F(model.ProviderID),
			ModelID:    opencode.F(model.ModelID),
		})
	}

	return retry(ctx, func() error {
		_, err := c.api.Session.Prompt(ctx, sessionID, params)
		return err
	})
}

// SessionMessages fetches the full message history, used once a session
// terminates to obtain the canonical assistant response text.
func (c *SDKClient) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	raw, err := c.api.Session.Messages(ctx, sessionID, opencode.SessionMessagesParams{})
	if err != nil {
		return nil, fmt.Errorf("session_messages: %w", err)
	}

	out := make([]Message, 0, len(*raw))
	for _, m := range *raw {
		msg := Message{Role: string(m.Info.Role)}
		for _, p := range m.Parts {
			if part, ok := convertPart(p); ok {
				msg.Parts = append(msg.Parts, part)
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// LastAssistantText concatenates the text parts of the last assistant
// message in messages, or "" if there is none.
func LastAssistantText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "assistant" {
			continue
		}
		text := ""
		for _, p := range messages[i].Parts {
			if p.Type == types.PartText && p.Text != nil {
				if text != "" {
					text += "\n"
				}
				text += *p.Text
			}
		}
		return text
	}
	return ""
}
