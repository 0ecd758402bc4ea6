package llm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genie-copilot/internal/domain"
)

// ServingClient talks to a Databricks model serving endpoint using the
// chat completions invocation format.
type ServingClient struct {
	baseURL string
	token   string
	httpc   *http.Client
}

var _ domain.CompletionClient = (*ServingClient)(nil)

func NewServingClient(host, token string, timeout time.Duration) *ServingClient {
	return &ServingClient{
		baseURL: strings.TrimRight(host, "/"),
		token:   token,
		httpc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt as a single user turn and returns the first
// choice. Classification needs determinism, so the temperature is pinned
// to zero.
func (c *ServingClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/serving-endpoints/%s/invocations", c.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", domain.ErrTransient("call serving endpoint %s: %v", model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.ErrTransient("read completion response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.ErrAuthorization("serving endpoint %s returned %d", model, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", domain.ErrTransient("serving endpoint %s returned %d: %s", model, resp.StatusCode, snippet(body))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("serving endpoint %s returned %d: %s", model, resp.StatusCode, snippet(body))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", domain.ErrUnparseable("decode completion response: %v", err)
	}
	if len(out.Choices) == 0 {
		return "", domain.ErrUnparseable("serving endpoint %s returned no choices", model)
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
