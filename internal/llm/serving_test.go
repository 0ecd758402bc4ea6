package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genie-copilot/internal/domain"
)

func newTestServing(t *testing.T, handler http.Handler) *ServingClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewServingClient(srv.URL, "test-token", 5*time.Second)
}

func TestComplete_SendsChatRequest(t *testing.T) {
	var gotBody chatRequest
	var gotPath, gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "COMPLEXITY: SIMPLE"}},
			},
		})
	})

	client := newTestServing(t, handler)
	out, err := client.Complete(context.Background(), "databricks-claude-sonnet-4", "classify this")
	require.NoError(t, err)
	assert.Equal(t, "COMPLEXITY: SIMPLE", out)
	assert.Equal(t, "/serving-endpoints/databricks-claude-sonnet-4/invocations", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, "classify this", gotBody.Messages[0].Content)
	assert.Zero(t, gotBody.Temperature)
}

func TestComplete_RateLimitedIsTransient(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestServing(t, handler)
	_, err := client.Complete(context.Background(), "m", "p")
	require.Error(t, err)
	var transient *domain.TransientError
	assert.ErrorAs(t, err, &transient)
}

func TestComplete_ServerErrorIsTransient(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := newTestServing(t, handler)
	_, err := client.Complete(context.Background(), "m", "p")
	require.Error(t, err)
	var transient *domain.TransientError
	assert.ErrorAs(t, err, &transient)
}

func TestComplete_UnauthorizedIsAuthorizationError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := newTestServing(t, handler)
	_, err := client.Complete(context.Background(), "m", "p")
	require.Error(t, err)
	var authErr *domain.AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestComplete_BadRequestIsNotTransient(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"unknown model"}`))
	})

	client := newTestServing(t, handler)
	_, err := client.Complete(context.Background(), "m", "p")
	require.Error(t, err)
	var transient *domain.TransientError
	assert.False(t, errors.As(err, &transient))
	assert.Contains(t, err.Error(), "unknown model")
}

func TestComplete_NoChoicesIsUnparseable(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	client := newTestServing(t, handler)
	_, err := client.Complete(context.Background(), "m", "p")
	require.Error(t, err)
	var unparseable *domain.UnparseableResponseError
	assert.ErrorAs(t, err, &unparseable)
}
