package opencodeclient

import (
	"context"
	"testing"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

func TestFake_CreateSendMessages(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	id, err := f.CreateSession(ctx, "/tmp/proj")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := f.SendPrompt(ctx, id, "/tmp/proj", "hello", types.ModelRef{}); err != nil {
		t.Fatalf("SendPrompt failed: %v", err)
	}
	f.PushAssistantText(id, "APPROVED")

	msgs, err := f.SessionMessages(ctx, id)
	if err != nil {
		t.Fatalf("SessionMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if got := LastAssistantText(msgs); got != "APPROVED" {
		t.Errorf("LastAssistantText = %q, want APPROVED", got)
	}
}

func TestFake_Subscribe_DeliversPushedEvents(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	id, _ := f.CreateSession(ctx, "/tmp/proj")

	ch, err := f.Subscribe(ctx, "/tmp/proj", id)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	f.PushEvent(id, SessionIdle{SessionID: id})

	ev := <-ch
	if _, ok := ev.(SessionIdle); !ok {
		t.Errorf("expected SessionIdle, got %T", ev)
	}
}

func TestFake_SessionMessages_UnknownSession(t *testing.T) {
	f := NewFake()
	if _, err := f.Subscribe(context.Background(), "/tmp/proj", "no-such-session"); err == nil {
		t.Error("expected error subscribing to unknown session")
	}
}

func TestLastAssistantText_NoAssistantMessages(t *testing.T) {
	userText := "hi"
	msgs := []Message{{Role: "user", Parts: []types.Part{{Type: types.PartText, Text: &userText}}}}
	if got := LastAssistantText(msgs); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
