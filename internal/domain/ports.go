package domain

import "context"

// ConversationSource provides read-only access to a space's conversations.
// Implemented by databricks.Client.
type ConversationSource interface {
	ListConversations(ctx context.Context, spaceID string, includeAllUsers bool) ([]Conversation, error)
	ListMessages(ctx context.Context, spaceID, conversationID string) ([]Message, error)
}

// CompletionClient is a stateless text-in/text-out reasoning service.
// Implemented by llm.ServingClient and llm.GeminiClient.
type CompletionClient interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// InstructionStore manages the curated SQL examples attached to a space.
// Implemented by databricks.Client.
type InstructionStore interface {
	// ListInstructions returns the current entries keyed by identity.
	ListInstructions(ctx context.Context, spaceID string) ([]InstructionEntry, error)
	// UpsertInstruction appends the entry, or replaces the existing entry
	// with the same Key when one exists.
	UpsertInstruction(ctx context.Context, spaceID string, entry InstructionEntry) error
}

// CreateFunctionRequest describes one table-valued function to create or replace.
type CreateFunctionRequest struct {
	Identity    TargetIdentity
	Statement   string // full CREATE OR REPLACE FUNCTION statement
	WarehouseID string
}

// FunctionRegistry manages table-valued functions in the target catalog
// and their registration with a space. Implemented by databricks.Client.
type FunctionRegistry interface {
	ListFunctions(ctx context.Context, catalog, schema string) ([]string, error)
	CreateOrReplaceFunction(ctx context.Context, req CreateFunctionRequest) error
	// ExecuteStatement runs an auxiliary SQL statement on the warehouse and
	// waits for it to finish. Used for function tagging and smoke tests.
	ExecuteStatement(ctx context.Context, warehouseID, statement string) error
	RegisterFunctionWithSpace(ctx context.Context, spaceID, functionFullName string) error
}
