package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedGateway answers each call with the next scripted reply or error.
type scriptedGateway struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   [][]ChatMessage
	onCall  func(ctx context.Context)
}

func (g *scriptedGateway) Name() string { return "scripted" }

func (g *scriptedGateway) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	g.mu.Lock()
	i := len(g.calls)
	g.calls = append(g.calls, append([]ChatMessage(nil), messages...))
	onCall := g.onCall
	g.mu.Unlock()

	if onCall != nil {
		onCall(ctx)
	}

	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "", &GatewayError{Provider: "scripted", Code: GatewayUnavailable, Message: "script exhausted"}
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *scriptedGateway) lastCall() []ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return nil
	}
	return g.calls[len(g.calls)-1]
}

func TestGatewayErrorRetryable(t *testing.T) {
	retryable := map[GatewayErrorCode]bool{
		GatewayAuth:        false,
		GatewayRateLimit:   true,
		GatewayTimeout:     true,
		GatewayMalformed:   false,
		GatewayUnavailable: true,
	}
	for code, want := range retryable {
		err := &GatewayError{Provider: "test", Code: code}
		assert.Equal(t, want, err.Retryable(), code)
		assert.Equal(t, want, IsRetryable(err), code)
	}

	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, GatewayAuth, classifyStatus(401))
	assert.Equal(t, GatewayAuth, classifyStatus(403))
	assert.Equal(t, GatewayRateLimit, classifyStatus(429))
	assert.Equal(t, GatewayTimeout, classifyStatus(504))
	assert.Equal(t, GatewayMalformed, classifyStatus(400))
	assert.Equal(t, GatewayUnavailable, classifyStatus(500))
	assert.Equal(t, GatewayUnavailable, classifyStatus(503))
}

func TestClassifyTransportError(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, GatewayTimeout, classifyTransportError(ctx, context.DeadlineExceeded))
	assert.Equal(t, GatewayRateLimit, classifyTransportError(ctx, errors.New("RESOURCE_EXHAUSTED: quota")))
	assert.Equal(t, GatewayAuth, classifyTransportError(ctx, errors.New("API key not valid")))
	assert.Equal(t, GatewayUnavailable, classifyTransportError(ctx, errors.New("connection refused")))
}

func TestCompleteWithRetry_RetriesRetryable(t *testing.T) {
	gw := &scriptedGateway{
		errs: []error{
			&GatewayError{Provider: "scripted", Code: GatewayRateLimit},
			&GatewayError{Provider: "scripted", Code: GatewayUnavailable},
		},
		replies: []string{"", "", "What is your favourite language?"},
	}

	reply, err := CompleteWithRetry(context.Background(), gw, nil, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "What is your favourite language?", reply)
	assert.Equal(t, 3, gw.callCount())
}

func TestCompleteWithRetry_FatalStopsImmediately(t *testing.T) {
	gw := &scriptedGateway{
		errs: []error{&GatewayError{Provider: "scripted", Code: GatewayAuth}},
	}

	_, err := CompleteWithRetry(context.Background(), gw, nil, RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond}, zap.NewNop())
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, gw.callCount())
}

func TestCompleteWithRetry_ExhaustedKeepsCode(t *testing.T) {
	timeout := &GatewayError{Provider: "scripted", Code: GatewayTimeout}
	gw := &scriptedGateway{errs: []error{timeout, timeout}}

	_, err := CompleteWithRetry(context.Background(), gw, nil, RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond}, zap.NewNop())
	require.Error(t, err)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, GatewayTimeout, gwErr.Code)
	assert.Equal(t, 2, gw.callCount())
}

func TestCompleteWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw := &scriptedGateway{
		errs: []error{&GatewayError{Provider: "scripted", Code: GatewayUnavailable}},
		onCall: func(context.Context) {
			cancel()
		},
	}

	_, err := CompleteWithRetry(ctx, gw, nil, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Hour}, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, 1, gw.callCount())
}
