package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/ai-interviewer/internal/models"
)

func newStubAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewAnthropicService(
		AnthropicConfig{APIKey: "test", Model: "test-model", MaxTokens: 100, Temperature: 0.5},
		option.WithBaseURL(server.URL),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return svc
}

func TestNewAnthropicService_RequiresKey(t *testing.T) {
	_, err := NewAnthropicService(AnthropicConfig{})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, GatewayAuth, gwErr.Code)
}

func TestAnthropicComplete_Success(t *testing.T) {
	var body map[string]any
	svc := newStubAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "test-model",
			"content":       []map[string]any{{"type": "text", "text": "Which databases have you tuned?"}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	})

	reply, err := svc.Complete(context.Background(), []ChatMessage{
		{Role: models.RoleSystem, Content: "You are an interviewer."},
		{Role: models.RoleAssistant, Content: "Hello! What do you do?"},
		{Role: models.RoleUser, Content: "Backend work."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Which databases have you tuned?", reply)

	assert.Equal(t, "test-model", body["model"])
	system, ok := body["system"].([]any)
	require.True(t, ok)
	assert.Len(t, system, 1)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 3)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestAnthropicComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		code   GatewayErrorCode
	}{
		{http.StatusUnauthorized, GatewayAuth},
		{http.StatusTooManyRequests, GatewayRateLimit},
		{http.StatusBadRequest, GatewayMalformed},
		{http.StatusInternalServerError, GatewayUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			svc := newStubAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"type":  "error",
					"error": map[string]any{"type": "api_error", "message": "stub"},
				})
			})

			_, err := svc.Complete(context.Background(), []ChatMessage{{Role: models.RoleUser, Content: "hi"}})

			var gwErr *GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.code, gwErr.Code)
		})
	}
}
