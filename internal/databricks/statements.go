package databricks

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"genie-copilot/internal/domain"
)

const (
	statementWaitTimeout = "30s"
	statementPollDelay   = 2 * time.Second
	statementPollLimit   = 60
)

type statementStatus struct {
	State string `json:"state"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type statementResponse struct {
	StatementID string          `json:"statement_id"`
	Status      statementStatus `json:"status"`
}

// CreateOrReplaceFunction executes the DDL on the configured warehouse and
// waits for the statement to finish.
func (c *Client) CreateOrReplaceFunction(ctx context.Context, req domain.CreateFunctionRequest) error {
	if err := c.ExecuteStatement(ctx, req.WarehouseID, req.Statement); err != nil {
		return fmt.Errorf("create function %s: %w", req.Identity.FullName(), err)
	}
	c.logger.Debug("function statement succeeded", "function", req.Identity.FullName())
	return nil
}

// ExecuteStatement runs one SQL statement on the warehouse and waits for a
// terminal state. A non-SUCCEEDED terminal state is an error.
func (c *Client) ExecuteStatement(ctx context.Context, warehouseID, statement string) error {
	body := map[string]string{
		"statement":    statement,
		"warehouse_id": warehouseID,
		"wait_timeout": statementWaitTimeout,
	}

	var resp statementResponse
	if err := c.postJSON(ctx, "/api/2.0/sql/statements", body, &resp); err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}

	status, err := c.waitForStatement(ctx, resp)
	if err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	if status.State != "SUCCEEDED" {
		msg := status.Error.Message
		if msg == "" {
			msg = "statement ended in state " + status.State
		}
		return fmt.Errorf("statement %s: %s", resp.StatementID, msg)
	}
	return nil
}

func (c *Client) waitForStatement(ctx context.Context, resp statementResponse) (statementStatus, error) {
	status := resp.Status
	for attempt := 0; status.State == "PENDING" || status.State == "RUNNING"; attempt++ {
		if attempt >= statementPollLimit {
			return status, fmt.Errorf("statement %s still %s after %d polls", resp.StatementID, status.State, attempt)
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(statementPollDelay):
		}

		var poll statementResponse
		path := fmt.Sprintf("/api/2.0/sql/statements/%s", url.PathEscape(resp.StatementID))
		if err := c.getJSON(ctx, path, nil, &poll); err != nil {
			return status, fmt.Errorf("poll statement %s: %w", resp.StatementID, err)
		}
		status = poll.Status
	}
	return status, nil
}

// ListFunctions returns the bare names of the functions registered in the
// catalog schema.
func (c *Client) ListFunctions(ctx context.Context, catalog, schema string) ([]string, error) {
	q := url.Values{}
	q.Set("catalog_name", catalog)
	q.Set("schema_name", schema)
	q.Set("max_results", "100")

	var names []string
	for {
		var resp struct {
			Functions []struct {
				Name string `json:"name"`
			} `json:"functions"`
			NextPageToken string `json:"next_page_token"`
		}
		if err := c.getJSON(ctx, "/api/2.1/unity-catalog/functions", q, &resp); err != nil {
			return nil, fmt.Errorf("list functions in %s.%s: %w", catalog, schema, err)
		}
		for _, fn := range resp.Functions {
			names = append(names, fn.Name)
		}
		if resp.NextPageToken == "" {
			return names, nil
		}
		q.Set("page_token", resp.NextPageToken)
	}
}
