package databricks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"genie-copilot/internal/domain"
)

// The Genie space configuration travels as a JSON document inside the
// serialized_space field. Only the two instruction lists this tool owns
// are decoded; every other key round-trips untouched as raw JSON.

type exampleQuestionSQL struct {
	ID            string   `json:"id"`
	Question      []string `json:"question"`
	SQL           []string `json:"sql"`
	UsageGuidance []string `json:"usage_guidance,omitempty"`
}

type sqlFunction struct {
	ID         string `json:"id"`         // 32-hex UUID without hyphens
	Identifier string `json:"identifier"` // catalog.schema.function_name
}

type spaceDocument struct {
	root         map[string]json.RawMessage
	instructions map[string]json.RawMessage
	examples     []exampleQuestionSQL
	functions    []sqlFunction
}

// ListInstructions returns the curated SQL examples currently attached to
// the space. The entry id is the stable identity.
func (c *Client) ListInstructions(ctx context.Context, spaceID string) ([]domain.InstructionEntry, error) {
	doc, err := c.getSpaceDocument(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.InstructionEntry, 0, len(doc.examples))
	for _, ex := range doc.examples {
		entries = append(entries, domain.InstructionEntry{
			Key:         ex.ID,
			Question:    strings.Join(ex.Question, ""),
			SQL:         strings.Join(ex.SQL, ""),
			Description: strings.Join(ex.UsageGuidance, ""),
		})
	}
	return entries, nil
}

// UpsertInstruction appends the entry, or replaces the existing entry
// carrying the same identity.
func (c *Client) UpsertInstruction(ctx context.Context, spaceID string, entry domain.InstructionEntry) error {
	doc, err := c.getSpaceDocument(ctx, spaceID)
	if err != nil {
		return err
	}

	ex := exampleQuestionSQL{
		ID:       entry.Key,
		Question: []string{entry.Question},
		SQL:      sqlToLines(entry.SQL),
	}
	if entry.Description != "" {
		ex.UsageGuidance = []string{entry.Description}
	}

	replaced := false
	for i := range doc.examples {
		if doc.examples[i].ID == entry.Key {
			doc.examples[i] = ex
			replaced = true
			break
		}
	}
	if !replaced {
		doc.examples = append(doc.examples, ex)
	}

	// The API requires the list sorted by id.
	sort.Slice(doc.examples, func(i, j int) bool { return doc.examples[i].ID < doc.examples[j].ID })

	return c.updateSpaceDocument(ctx, spaceID, doc)
}

// RegisterFunctionWithSpace makes the function invocable from the space.
// Registering an already-registered identifier is a no-op.
func (c *Client) RegisterFunctionWithSpace(ctx context.Context, spaceID, functionFullName string) error {
	doc, err := c.getSpaceDocument(ctx, spaceID)
	if err != nil {
		return err
	}

	for _, fn := range doc.functions {
		if fn.Identifier == functionFullName {
			return nil
		}
	}

	doc.functions = append(doc.functions, sqlFunction{
		ID:         strings.ReplaceAll(uuid.New().String(), "-", ""),
		Identifier: functionFullName,
	})
	sort.Slice(doc.functions, func(i, j int) bool { return doc.functions[i].ID < doc.functions[j].ID })

	return c.updateSpaceDocument(ctx, spaceID, doc)
}

func (c *Client) getSpaceDocument(ctx context.Context, spaceID string) (*spaceDocument, error) {
	var resp struct {
		SerializedSpace string `json:"serialized_space"`
	}
	q := url.Values{}
	q.Set("include_serialized_space", "true")
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s", url.PathEscape(spaceID))
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return nil, fmt.Errorf("get space: %w", err)
	}

	doc := &spaceDocument{
		root:         map[string]json.RawMessage{"version": json.RawMessage("1")},
		instructions: map[string]json.RawMessage{},
	}
	if resp.SerializedSpace == "" {
		return doc, nil
	}

	if err := json.Unmarshal([]byte(resp.SerializedSpace), &doc.root); err != nil {
		return nil, fmt.Errorf("decode serialized space: %w", err)
	}
	if raw, ok := doc.root["instructions"]; ok {
		if err := json.Unmarshal(raw, &doc.instructions); err != nil {
			return nil, fmt.Errorf("decode space instructions: %w", err)
		}
	}
	if raw, ok := doc.instructions["example_question_sqls"]; ok {
		if err := json.Unmarshal(raw, &doc.examples); err != nil {
			return nil, fmt.Errorf("decode example_question_sqls: %w", err)
		}
	}
	if raw, ok := doc.instructions["sql_functions"]; ok {
		if err := json.Unmarshal(raw, &doc.functions); err != nil {
			return nil, fmt.Errorf("decode sql_functions: %w", err)
		}
	}
	return doc, nil
}

func (c *Client) updateSpaceDocument(ctx context.Context, spaceID string, doc *spaceDocument) error {
	examples, err := json.Marshal(doc.examples)
	if err != nil {
		return fmt.Errorf("encode example_question_sqls: %w", err)
	}
	functions, err := json.Marshal(doc.functions)
	if err != nil {
		return fmt.Errorf("encode sql_functions: %w", err)
	}
	doc.instructions["example_question_sqls"] = examples
	doc.instructions["sql_functions"] = functions

	instructions, err := json.Marshal(doc.instructions)
	if err != nil {
		return fmt.Errorf("encode instructions: %w", err)
	}
	doc.root["instructions"] = instructions

	serialized, err := json.Marshal(doc.root)
	if err != nil {
		return fmt.Errorf("encode serialized space: %w", err)
	}

	body := map[string]string{"serialized_space": string(serialized)}
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s", url.PathEscape(spaceID))
	if err := c.patchJSON(ctx, path, body, nil); err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	return nil
}

// sqlToLines splits SQL into the line-array wire format, keeping the
// newline on every line but the last.
func sqlToLines(sql string) []string {
	lines := strings.Split(sql, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		if i < len(lines)-1 {
			out[i] = line + "\n"
		} else {
			out[i] = line
		}
	}
	return out
}
