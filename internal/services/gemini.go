package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"alfredoptarigan/ai-interviewer/internal/models"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	EmbedModel  string
	MaxTokens   int
	Temperature float32
}

type GeminiService struct {
	client *genai.Client
	config GeminiConfig
}

func NewGeminiService(ctx context.Context, cfg GeminiConfig) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &GatewayError{
			Provider: "gemini",
			Code:     GatewayAuth,
			Message:  "failed to create gemini client",
			Err:      err,
		}
	}

	return newGeminiServiceWithClient(client, cfg), nil
}

func newGeminiServiceWithClient(client *genai.Client, cfg GeminiConfig) *GeminiService {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-004"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	return &GeminiService{client: client, config: cfg}
}

func (g *GeminiService) Name() string {
	return "gemini"
}

// Complete implements LLMGateway. System messages become the system instruction, assistant
// turns are sent with the model role.
func (g *GeminiService) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	temperature := g.config.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(g.config.MaxTokens),
	}

	var system []string
	var contents []*genai.Content
	for _, msg := range withLeadingUserTurn(messages) {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, msg.Content)
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, config)
	if err != nil {
		return "", g.wrapError(ctx, err)
	}

	if resp == nil {
		return "", &GatewayError{Provider: "gemini", Code: GatewayMalformed, Message: "no response generated (nil response)"}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &GatewayError{Provider: "gemini", Code: GatewayMalformed, Message: "no text content in response"}
	}

	return text, nil
}

// GenerateEmbedding implements Embedder.
func (g *GeminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long (max ~10000 tokens for embedding)
	text = truncateUTF8(text, maxEmbeddingBytes)

	result, err := g.client.Models.EmbedContent(ctx, g.config.EmbedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

func (g *GeminiService) wrapError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &GatewayError{
			Provider: "gemini",
			Code:     classifyStatus(apiErr.Code),
			Message:  "failed to generate text",
			Err:      err,
		}
	}
	return &GatewayError{
		Provider: "gemini",
		Code:     classifyTransportError(ctx, err),
		Message:  "failed to generate text",
		Err:      err,
	}
}

// withLeadingUserTurn makes sure the first non-system turn comes from the user, which some
// providers require. The interview transcript opens with the interviewer's greeting.
func withLeadingUserTurn(messages []ChatMessage) []ChatMessage {
	for i, msg := range messages {
		if msg.Role == models.RoleSystem {
			continue
		}
		if msg.Role == models.RoleUser {
			return messages
		}
		out := make([]ChatMessage, 0, len(messages)+1)
		out = append(out, messages[:i]...)
		out = append(out, ChatMessage{Role: models.RoleUser, Content: "(The candidate has joined the interview.)"})
		out = append(out, messages[i:]...)
		return out
	}
	return messages
}

const maxEmbeddingBytes = 40000

// truncateUTF8 cuts text to at most maxBytes without splitting a multi-byte character.
func truncateUTF8(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
