// Package databricks implements the workspace REST clients behind the
// pipeline's ports: conversation source, instruction store, and function
// registry.
package databricks

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"genie-copilot/internal/domain"
)

const pageSize = 100

// Client talks to a Databricks workspace with bearer-token auth.
// All calls fail fast; retry policy belongs to the callers that can
// safely retry.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a workspace client. host carries the scheme, e.g.
// https://example.cloud.databricks.com.
func NewClient(host, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: host,
		token:   token,
		httpc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		logger: logger,
	}
}

var _ domain.ConversationSource = (*Client)(nil)
var _ domain.InstructionStore = (*Client)(nil)
var _ domain.FunctionRegistry = (*Client)(nil)

type conversationPage struct {
	Conversations []struct {
		ConversationID string `json:"conversation_id"`
		Title          string `json:"title"`
		UserID         string `json:"user_id"`
		CreatedMS      int64  `json:"created_timestamp"`
	} `json:"conversations"`
	NextPageToken string `json:"next_page_token"`
}

// ListConversations pages through all conversations in the space.
func (c *Client) ListConversations(ctx context.Context, spaceID string, includeAllUsers bool) ([]domain.Conversation, error) {
	var out []domain.Conversation
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(pageSize))
		if includeAllUsers {
			q.Set("include_all", "true")
		}
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var page conversationPage
		path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations", url.PathEscape(spaceID))
		if err := c.getJSON(ctx, path, q, &page); err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}

		for _, conv := range page.Conversations {
			out = append(out, domain.Conversation{
				ID:        conv.ConversationID,
				SpaceID:   spaceID,
				Title:     conv.Title,
				OwnerID:   conv.UserID,
				CreatedMS: conv.CreatedMS,
			})
		}

		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

type messagePage struct {
	Messages []struct {
		ID          string `json:"message_id"`
		Status      string `json:"status"`
		Content     string `json:"content"`
		Attachments []struct {
			Query *struct {
				Query      string `json:"query"`
				DurationMS int64  `json:"query_duration_ms"`
			} `json:"query"`
		} `json:"attachments"`
	} `json:"messages"`
	NextPageToken string `json:"next_page_token"`
}

// ListMessages pages through a conversation's messages. The generated SQL
// lives in the first query attachment, when present.
func (c *Client) ListMessages(ctx context.Context, spaceID, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(pageSize))
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var page messagePage
		path := fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages",
			url.PathEscape(spaceID), url.PathEscape(conversationID))
		if err := c.getJSON(ctx, path, q, &page); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, msg := range page.Messages {
			m := domain.Message{
				ID:             msg.ID,
				ConversationID: conversationID,
				Status:         domain.MessageStatus(msg.Status),
				Content:        msg.Content,
			}
			for _, att := range msg.Attachments {
				if att.Query != nil && att.Query.Query != "" {
					m.SQL = att.Query.Query
					m.QueryDurationMS = att.Query.DurationMS
					break
				}
			}
			out = append(out, m)
		}

		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) patchJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.ErrAuthorization("%s %s: status %d", method, path, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
