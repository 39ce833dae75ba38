package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
)

// ChatMessage is one turn sent to a language model.
type ChatMessage struct {
	Role    models.MessageRole
	Content string
}

// LLMGateway is the single synchronous call the interview depends on.
type LLMGateway interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	Name() string
}

// Embedder turns text into a vector for the transcript index.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type GatewayErrorCode string

const (
	GatewayAuth        GatewayErrorCode = "auth"
	GatewayRateLimit   GatewayErrorCode = "rate_limit"
	GatewayTimeout     GatewayErrorCode = "timeout"
	GatewayMalformed   GatewayErrorCode = "malformed_response"
	GatewayUnavailable GatewayErrorCode = "unavailable"
)

type GatewayError struct {
	Provider string
	Code     GatewayErrorCode
	Message  string
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Retryable is true for failures a caller may simply try again.
func (e *GatewayError) Retryable() bool {
	switch e.Code {
	case GatewayRateLimit, GatewayTimeout, GatewayUnavailable:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a retryable gateway failure.
func IsRetryable(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Retryable()
	}
	return false
}

// classifyStatus maps an HTTP status from a provider API to a gateway error code.
func classifyStatus(status int) GatewayErrorCode {
	switch {
	case status == 401 || status == 403:
		return GatewayAuth
	case status == 429:
		return GatewayRateLimit
	case status == 408 || status == 504:
		return GatewayTimeout
	case status == 400 || status == 404 || status == 422:
		return GatewayMalformed
	default:
		return GatewayUnavailable
	}
}

// classifyTransportError handles failures that never produced an HTTP status.
func classifyTransportError(ctx context.Context, err error) GatewayErrorCode {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return GatewayTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return GatewayTimeout
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "quota"):
		return GatewayRateLimit
	case strings.Contains(msg, "api key"), strings.Contains(msg, "unauthenticated"),
		strings.Contains(msg, "permission_denied"):
		return GatewayAuth
	default:
		return GatewayUnavailable
	}
}

// RetryPolicy bounds CompleteWithRetry.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// CompleteWithRetry retries retryable failures with exponential backoff. Fatal failures and
// context cancellation return immediately.
func CompleteWithRetry(ctx context.Context, gateway LLMGateway, messages []ChatMessage, policy RetryPolicy, log *zap.Logger) (string, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	delay := policy.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		reply, err := gateway.Complete(ctx, messages)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == policy.MaxAttempts {
			break
		}

		log.Warn("⚠️ LLM attempt failed, retrying",
			zap.String("provider", gateway.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return "", &GatewayError{
				Provider: gateway.Name(),
				Code:     GatewayTimeout,
				Message:  "context cancelled while retrying",
				Err:      ctx.Err(),
			}
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", fmt.Errorf("llm call failed: %w", lastErr)
}
