package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"mukha.dev/mukha-chat/internal/config"
)

const (
	defaultChatModelName = "gemini-3-flash-preview"

	chatSystemInstruction = "You are Mukha, a helpful and sophisticated AI assistant. " +
		"Your tone is professional yet approachable. You provide concise and accurate information."
)

// ChatTurn is one side of a prior exchange, as supplied by the caller.
type ChatTurn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Generator produces a model reply for a chat turn. It is the single
// interaction point with the external generation service: fallible, slow,
// and network-bound, so callers must treat every error as expected.
type Generator interface {
	GenerateReply(ctx context.Context, knowledgeBlock string, history []ChatTurn, userText string) (string, error)
}

type LLMService struct {
	client *genai.Client
}

func NewLLMService() *LLMService {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &LLMService{
		client: client,
	}
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		} else {
			log.Println("GenAI client closed.")
		}
	}
}

// GenerateReply sends the new user message to Gemini along with the fixed
// system instruction, the rendered knowledge block, and the caller-supplied
// prior turns. The request context is threaded through so a disconnected
// client cancels the upstream call.
func (s *LLMService) GenerateReply(ctx context.Context, knowledgeBlock string, history []ChatTurn, userText string) (string, error) {
	model := s.client.GenerativeModel(defaultChatModelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatSystemInstruction + knowledgeBlock)},
	}

	chatSession := model.StartChat()
	for _, turn := range history {
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(userText))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response was empty or had no valid candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}

	if responseText.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}

	return responseText.String(), nil
}
