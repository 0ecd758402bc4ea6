package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"genie-copilot/internal/domain"
)

// Options scope one extraction pass over a space.
type Options struct {
	SpaceID          string
	IncludeAllUsers  bool
	MaxConversations int // 0 means no cap
}

// Stats counts what the extractor saw, for the run summary.
type Stats struct {
	ConversationsProcessed int
	ConversationsSkipped   int
	MessagesSeen           int
	MessagesSkipped        int
	QueriesExtracted       int // includes duplicates collapsed later
}

// Extractor walks conversations and mines unique, successfully executed
// SQL queries.
type Extractor struct {
	source domain.ConversationSource
	logger *slog.Logger
}

// New creates an Extractor reading from the given source.
func New(source domain.ConversationSource, logger *slog.Logger) *Extractor {
	return &Extractor{source: source, logger: logger}
}

// Extract returns the deduplicated set of queries mined from the space.
// A failure listing conversations is fatal; a failure reading one
// conversation's messages skips that conversation only.
func (e *Extractor) Extract(ctx context.Context, opts Options) ([]domain.ExtractedQuery, Stats, error) {
	var stats Stats

	conversations, err := e.source.ListConversations(ctx, opts.SpaceID, opts.IncludeAllUsers)
	if err != nil {
		var authErr *domain.AuthorizationError
		if errors.As(err, &authErr) {
			return nil, stats, err
		}
		return nil, stats, domain.ErrSourceUnavailable("list conversations for space %s: %v", opts.SpaceID, err)
	}

	// The cap bounds conversations, not queries; source order is preserved.
	if opts.MaxConversations > 0 && len(conversations) > opts.MaxConversations {
		conversations = conversations[:opts.MaxConversations]
	}

	var queries []domain.ExtractedQuery
	seen := make(map[string]int) // normalized SQL -> index into queries

	for _, conv := range conversations {
		messages, err := e.source.ListMessages(ctx, opts.SpaceID, conv.ID)
		if err != nil {
			var authErr *domain.AuthorizationError
			if errors.As(err, &authErr) {
				return nil, stats, err
			}
			readErr := &domain.ConversationReadError{ConversationID: conv.ID, Err: err}
			e.logger.Warn("skipping conversation", "conversation_id", conv.ID, "error", readErr)
			stats.ConversationsSkipped++
			continue
		}
		stats.ConversationsProcessed++
		stats.MessagesSeen += len(messages)

		lastQuestion := ""
		for _, msg := range messages {
			// A turn with content and no SQL is the user's question.
			if msg.SQL == "" && msg.Content != "" {
				lastQuestion = msg.Content
				continue
			}
			if msg.Status != domain.MessageStatusCompleted {
				e.logger.Debug("skipping message", "message_id", msg.ID, "status", string(msg.Status))
				stats.MessagesSkipped++
				continue
			}
			sql := strings.TrimSpace(msg.SQL)
			if sql == "" {
				stats.MessagesSkipped++
				continue
			}

			question := lastQuestion
			if question == "" {
				question = msg.Content
			}
			if question == "" {
				question = conv.Title
			}
			lastQuestion = ""

			stats.QueriesExtracted++
			normalized := NormalizeSQL(sql)
			if idx, ok := seen[normalized]; ok {
				queries[idx].Occurrences++
				continue
			}
			seen[normalized] = len(queries)
			queries = append(queries, domain.ExtractedQuery{
				MessageID:      msg.ID,
				ConversationID: conv.ID,
				Question:       question,
				SQL:            sql,
				NormalizedSQL:  normalized,
				FirstSeenIndex: stats.QueriesExtracted - 1,
				Occurrences:    1,
			})
		}
	}

	e.logger.Info("extraction complete",
		"conversations", stats.ConversationsProcessed,
		"messages", stats.MessagesSeen,
		"queries", stats.QueriesExtracted,
		"unique", len(queries))

	return queries, stats, nil
}
