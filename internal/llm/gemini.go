package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"genie-copilot/internal/domain"
)

// GeminiClient backs the classifier with the Gemini API instead of a
// Databricks serving endpoint.
type GeminiClient struct {
	client *genai.Client
}

var _ domain.CompletionClient = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	result, err := c.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", mapGeminiError(model, err)
	}
	text := result.Text()
	if text == "" {
		return "", domain.ErrUnparseable("gemini model %s returned no text", model)
	}
	return text, nil
}

func mapGeminiError(model string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return domain.ErrAuthorization("gemini model %s: %s", model, apiErr.Message)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return domain.ErrTransient("gemini model %s: %s", model, apiErr.Message)
		}
	}
	return fmt.Errorf("gemini model %s: %w", model, err)
}
