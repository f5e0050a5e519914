package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mukha.dev/mukha-chat/internal/store"
)

// FallbackReply is recorded and returned when the external generation
// service fails. Upstream failures never surface as HTTP errors; the
// transcript stays consistent with the user turn already persisted.
const FallbackReply = "An error occurred while processing your request."

type ChatService struct {
	dbStore   *store.SQLiteStore
	generator Generator
}

func NewChatService(db *store.SQLiteStore, generator Generator) *ChatService {
	return &ChatService{
		dbStore:   db,
		generator: generator,
	}
}

// SendMessage runs one chat turn: persist the user's message, assemble the
// knowledge context, ask the generation service for a reply, and persist
// whatever comes back (the fallback text if the upstream call failed).
func (s *ChatService) SendMessage(ctx context.Context, userID int64, text string, history []ChatTurn) (*store.Message, error) {
	userMsg := store.Message{
		UserID: userID,
		Role:   "user",
		Text:   text,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	entries, err := s.dbStore.ListKnowledge()
	if err != nil {
		// Proceed without context rather than failing the turn.
		log.Printf("Failed to load knowledge base, proceeding without it: %v", err)
		entries = nil
	}

	replyText, err := s.generator.GenerateReply(ctx, renderKnowledgeBlock(entries), history, text)
	if err != nil {
		log.Printf("Error generating model response for user %d: %v", userID, err)
		replyText = FallbackReply
	}

	modelMsg := store.Message{
		UserID: userID,
		Role:   "model",
		Text:   replyText,
	}
	if err := s.dbStore.CreateMessage(&modelMsg); err != nil {
		return nil, fmt.Errorf("failed to store model message: %w", err)
	}
	return &modelMsg, nil
}

// renderKnowledgeBlock renders the full knowledge base as a bulleted block
// appended to the system instruction. Empty when there are no entries.
func renderKnowledgeBlock(entries []store.KnowledgeEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nKnowledge Base:\n")
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("- %s: %s", entry.Title, entry.Content))
	}
	return b.String()
}

// Transcript operations

func (s *ChatService) ListMessages(userID int64) ([]store.Message, error) {
	return s.dbStore.GetMessagesByUserID(userID)
}

// AppendMessage records a single turn on the caller's transcript. Only the
// two-member role enumeration is validated; text is stored as supplied.
func (s *ChatService) AppendMessage(userID int64, role, text string) (*store.Message, error) {
	if role != "user" && role != "model" {
		return nil, fmt.Errorf("%w: role must be 'user' or 'model'", ErrValidation)
	}
	msg := store.Message{
		UserID: userID,
		Role:   role,
		Text:   text,
	}
	if err := s.dbStore.CreateMessage(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *ChatService) ClearMessages(userID int64) error {
	return s.dbStore.DeleteMessagesByUserID(userID)
}

// Knowledge operations

func (s *ChatService) ListKnowledge() ([]store.KnowledgeEntry, error) {
	return s.dbStore.ListKnowledge()
}

func (s *ChatService) CreateKnowledge(title, content string) (*store.KnowledgeEntry, error) {
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrValidation)
	}
	return s.dbStore.CreateKnowledge(title, content)
}

func (s *ChatService) UpdateKnowledge(id, title, content string) (*store.KnowledgeEntry, error) {
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrValidation)
	}
	return s.dbStore.UpdateKnowledge(id, title, content)
}

func (s *ChatService) DeleteKnowledge(id string) error {
	return s.dbStore.DeleteKnowledge(id)
}
