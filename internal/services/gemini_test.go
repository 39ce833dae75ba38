package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"alfredoptarigan/ai-interviewer/internal/models"
)

func newStubGemini(t *testing.T, handler http.HandlerFunc) *GeminiService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     "test",
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: server.Client(),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    server.URL,
			APIVersion: "v1beta",
		},
	})
	require.NoError(t, err)

	return newGeminiServiceWithClient(client, GeminiConfig{APIKey: "test", Model: "test-model", EmbedModel: "test-embed"})
}

func writeGeminiText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}}},
		},
	})
}

func writeGeminiError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": reason, "status": reason},
	})
}

func TestGeminiComplete_Success(t *testing.T) {
	var body map[string]any
	gemini := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		writeGeminiText(w, "  What is your experience with Go?  ")
	})

	reply, err := gemini.Complete(context.Background(), []ChatMessage{
		{Role: models.RoleSystem, Content: "You are an interviewer."},
		{Role: models.RoleAssistant, Content: "Hello! Tell me about yourself?"},
		{Role: models.RoleUser, Content: "I build APIs."},
	})
	require.NoError(t, err)
	assert.Equal(t, "What is your experience with Go?", reply)

	contents, ok := body["contents"].([]any)
	require.True(t, ok)
	// joined turn + greeting + answer
	require.Len(t, contents, 3)
	first := contents[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	assert.Contains(t, body, "systemInstruction")
}

func TestGeminiComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		reason string
		code   GatewayErrorCode
	}{
		{http.StatusUnauthorized, "UNAUTHENTICATED", GatewayAuth},
		{http.StatusForbidden, "PERMISSION_DENIED", GatewayAuth},
		{http.StatusBadRequest, "INVALID_ARGUMENT", GatewayMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			gemini := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
				writeGeminiError(w, tt.status, tt.reason)
			})

			_, err := gemini.Complete(context.Background(), []ChatMessage{{Role: models.RoleUser, Content: "hi"}})
			require.Error(t, err)

			var gwErr *GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, "gemini", gwErr.Provider)
			assert.Equal(t, tt.code, gwErr.Code)
			assert.False(t, gwErr.Retryable())
		})
	}
}

func TestGeminiComplete_EmptyResponseIsMalformed(t *testing.T) {
	gemini := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		writeGeminiText(w, "")
	})

	_, err := gemini.Complete(context.Background(), []ChatMessage{{Role: models.RoleUser, Content: "hi"}})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, GatewayMalformed, gwErr.Code)
}

func TestGeminiGenerateEmbedding(t *testing.T) {
	gemini := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, "test-embed:"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": []map[string]any{{"values": []float32{0.1, 0.2, 0.3}}},
		})
	})

	vector, err := gemini.GenerateEmbedding(context.Background(), "distributed systems")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestWithLeadingUserTurn(t *testing.T) {
	out := withLeadingUserTurn([]ChatMessage{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleAssistant, Content: "Hello?"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, models.RoleSystem, out[0].Role)
	assert.Equal(t, models.RoleUser, out[1].Role)
	assert.Equal(t, models.RoleAssistant, out[2].Role)

	already := []ChatMessage{{Role: models.RoleUser, Content: "hi"}}
	assert.Equal(t, already, withLeadingUserTurn(already))
}
