package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mukha.dev/mukha-chat/internal/store"
)

// stubGenerator stands in for the Gemini client in tests.
type stubGenerator struct {
	reply          string
	err            error
	knowledgeBlock string
	history        []ChatTurn
	userText       string
}

func (g *stubGenerator) GenerateReply(ctx context.Context, knowledgeBlock string, history []ChatTurn, userText string) (string, error) {
	g.knowledgeBlock = knowledgeBlock
	g.history = history
	g.userText = userText
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newTestChat(t *testing.T, gen Generator) (*ChatService, *store.SQLiteStore, int64) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	user, err := db.CreateUser("a@x.com", "h", nil, false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewChatService(db, gen), db, user.ID
}

func TestSendMessageRecordsBothTurns(t *testing.T) {
	gen := &stubGenerator{reply: "Hello from the model"}
	chat, _, userID := newTestChat(t, gen)

	history := []ChatTurn{{Role: "user", Text: "earlier"}, {Role: "model", Text: "reply"}}
	reply, err := chat.SendMessage(context.Background(), userID, "What are your hours?", history)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Role != "model" || reply.Text != "Hello from the model" {
		t.Errorf("unexpected reply: %+v", reply)
	}

	if gen.userText != "What are your hours?" {
		t.Errorf("generator got wrong text: %q", gen.userText)
	}
	if len(gen.history) != 2 {
		t.Errorf("prior turns not forwarded: %+v", gen.history)
	}

	messages, _ := chat.ListMessages(userID)
	if len(messages) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "model" {
		t.Errorf("turns persisted out of order: %s, %s", messages[0].Role, messages[1].Role)
	}
}

func TestSendMessageInjectsKnowledge(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	chat, db, userID := newTestChat(t, gen)

	if _, err := db.CreateKnowledge("Hours", "Open 9-17"); err != nil {
		t.Fatalf("create knowledge: %v", err)
	}
	if _, err := db.CreateKnowledge("Location", "Tashkent"); err != nil {
		t.Fatalf("create knowledge: %v", err)
	}

	if _, err := chat.SendMessage(context.Background(), userID, "hi", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if !strings.Contains(gen.knowledgeBlock, "Knowledge Base:") {
		t.Errorf("knowledge block missing header: %q", gen.knowledgeBlock)
	}
	if !strings.Contains(gen.knowledgeBlock, "- Hours: Open 9-17") {
		t.Errorf("knowledge block missing entry: %q", gen.knowledgeBlock)
	}
	if !strings.Contains(gen.knowledgeBlock, "- Location: Tashkent") {
		t.Errorf("knowledge block missing entry: %q", gen.knowledgeBlock)
	}
}

func TestSendMessageEmptyKnowledge(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	chat, _, userID := newTestChat(t, gen)

	if _, err := chat.SendMessage(context.Background(), userID, "hi", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gen.knowledgeBlock != "" {
		t.Errorf("expected empty knowledge block, got %q", gen.knowledgeBlock)
	}
}

func TestSendMessageUpstreamFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("upstream exploded")}
	chat, _, userID := newTestChat(t, gen)

	reply, err := chat.SendMessage(context.Background(), userID, "hi", nil)
	if err != nil {
		t.Fatalf("upstream failure must not surface as an error: %v", err)
	}
	if reply.Text != FallbackReply {
		t.Errorf("expected fallback reply, got %q", reply.Text)
	}

	// The user turn stays persisted alongside the fallback.
	messages, _ := chat.ListMessages(userID)
	if len(messages) != 2 {
		t.Fatalf("expected user turn and fallback persisted, got %d messages", len(messages))
	}
	if messages[0].Text != "hi" || messages[1].Text != FallbackReply {
		t.Errorf("transcript inconsistent after failure: %+v", messages)
	}
}

func TestAppendMessageRoleValidation(t *testing.T) {
	chat, _, userID := newTestChat(t, &stubGenerator{})

	if _, err := chat.AppendMessage(userID, "assistant", "hi"); !errors.Is(err, ErrValidation) {
		t.Errorf("invalid role: got %v, want ErrValidation", err)
	}
	if _, err := chat.AppendMessage(userID, "model", "hi"); err != nil {
		t.Errorf("valid role rejected: %v", err)
	}
}
