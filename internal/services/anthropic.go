package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"alfredoptarigan/ai-interviewer/internal/models"
)

type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// AnthropicService is the alternative LLMGateway, selected with LLM_PROVIDER=anthropic.
type AnthropicService struct {
	client anthropic.Client
	config AnthropicConfig
}

func NewAnthropicService(cfg AnthropicConfig, opts ...option.RequestOption) (*AnthropicService, error) {
	if cfg.APIKey == "" {
		return nil, &GatewayError{Provider: "anthropic", Code: GatewayAuth, Message: "ANTHROPIC_API_KEY is required"}
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicService{
		client: anthropic.NewClient(opts...),
		config: cfg,
	}, nil
}

func (a *AnthropicService) Name() string {
	return "anthropic"
}

// Complete implements LLMGateway.
func (a *AnthropicService) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.config.Model),
		MaxTokens:   int64(a.config.MaxTokens),
		Temperature: anthropic.Float(float64(a.config.Temperature)),
	}

	for _, msg := range withLeadingUserTurn(messages) {
		switch msg.Role {
		case models.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case models.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &GatewayError{
				Provider: "anthropic",
				Code:     classifyStatus(apiErr.StatusCode),
				Message:  "failed to generate text",
				Err:      err,
			}
		}
		return "", &GatewayError{
			Provider: "anthropic",
			Code:     classifyTransportError(ctx, err),
			Message:  "failed to generate text",
			Err:      err,
		}
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", &GatewayError{Provider: "anthropic", Code: GatewayMalformed, Message: "no text content in response"}
	}

	return text, nil
}
