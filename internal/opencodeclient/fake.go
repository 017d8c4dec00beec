package opencodeclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// Fake is a hand-written in-memory Client for tests, following the same
// fake-over-interface style the teacher uses for its provider mock
// (internal/provider's Mock, exercised from citest/service).
type Fake struct {
	mu          sync.Mutex
	nextID      int
	sessions    map[string][]Message
	events      map[string]chan ExecutorEvent
	CreateErr   error
	PromptErr   error
	MessagesErr error
}

// NewFake builds an empty Fake.
func NewFake() *Fake {
	return &Fake{
		sessions: make(map[string][]Message),
		events:   make(map[string]chan ExecutorEvent),
	}
}

func (f *Fake) CreateSession(ctx context.Context, workingDir string) (string, error) {
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("fake-session-%d", f.nextID)
	f.sessions[id] = nil
	f.events[id] = make(chan ExecutorEvent, 64)
	return id, nil
}

func (f *Fake) SendPrompt(ctx context.Context, sessionID, workingDir, prompt string, model types.ModelRef) error {
	if f.PromptErr != nil {
		return f.PromptErr
	}
	f.mu.Lock()
	f.sessions[sessionID] = append(f.sessions[sessionID], Message{Role: "user", Parts: []types.Part{{Type: types.PartText, Text: &prompt}}})
	f.mu.Unlock()
	return nil
}

func (f *Fake) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	if f.MessagesErr != nil {
		return nil, f.MessagesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.sessions[sessionID]))
	copy(out, f.sessions[sessionID])
	return out, nil
}

func (f *Fake) Subscribe(ctx context.Context, directory, sessionID string) (<-chan ExecutorEvent, error) {
	f.mu.Lock()
	ch, ok := f.events[sessionID]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown session %q", sessionID)
	}
	return ch, nil
}

// PushEvent lets a test deliver an ExecutorEvent as if the backend had
// emitted it, for the given session's subscribers to observe.
func (f *Fake) PushEvent(sessionID string, ev ExecutorEvent) {
	f.mu.Lock()
	ch := f.events[sessionID]
	f.mu.Unlock()
	if ch != nil {
		ch <- ev
	}
}

// PushAssistantText appends an assistant message to sessionID's
// transcript, as if SendPrompt had completed and the backend recorded
// the response.
func (f *Fake) PushAssistantText(sessionID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = append(f.sessions[sessionID], Message{Role: "assistant", Parts: []types.Part{{Type: types.PartText, Text: &text}}})
}

var _ Client = (*Fake)(nil)
