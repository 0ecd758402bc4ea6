// Package domain defines core types, interfaces, and errors for the copilot pipeline.
package domain

import (
	"fmt"
	"strings"
)

// MessageStatus is the execution status of a Genie message.
type MessageStatus string

// Message statuses. Anything not listed here is treated as "other" and
// never eligible for extraction.
const (
	MessageStatusCompleted MessageStatus = "COMPLETED"
	MessageStatusFailed    MessageStatus = "FAILED"
	MessageStatusExecuting MessageStatus = "EXECUTING_QUERY"
	MessageStatusCancelled MessageStatus = "CANCELLED"
)

// Conversation is a read-only Genie conversation summary.
type Conversation struct {
	ID        string
	SpaceID   string
	Title     string
	OwnerID   string
	CreatedMS int64 // creation timestamp in epoch milliseconds
}

// Message is a single turn in a Genie conversation. User turns carry
// Content and no SQL; answer turns may carry generated SQL.
type Message struct {
	ID              string
	ConversationID  string
	Status          MessageStatus
	Content         string
	SQL             string
	QueryDurationMS int64
}

// ExtractedQuery is one unique SQL query mined from a space.
// NormalizedSQL is the comparison form used for deduplication; SQL keeps
// the original text for materialization.
type ExtractedQuery struct {
	MessageID      string
	ConversationID string
	Question       string
	SQL            string
	NormalizedSQL  string
	FirstSeenIndex int
	Occurrences    int
}

// ComplexityTier orders query complexity. Unclassifiable sorts below
// Simple so it can never pass a threshold.
type ComplexityTier int

// Complexity tiers.
const (
	TierUnclassifiable ComplexityTier = iota
	TierSimple
	TierModerate
	TierComplex
)

// String returns the wire token for the tier.
func (t ComplexityTier) String() string {
	switch t {
	case TierSimple:
		return "SIMPLE"
	case TierModerate:
		return "MODERATE"
	case TierComplex:
		return "COMPLEX"
	default:
		return "UNCLASSIFIABLE"
	}
}

// ParseTier parses a tier token. It accepts any case.
func ParseTier(s string) (ComplexityTier, error) {
	switch strings.ToUpper(s) {
	case "SIMPLE":
		return TierSimple, nil
	case "MODERATE":
		return TierModerate, nil
	case "COMPLEX":
		return TierComplex, nil
	default:
		return TierUnclassifiable, fmt.Errorf("unknown complexity tier %q", s)
	}
}

// QueryFeatures are the structural traits reported by the classifier.
type QueryFeatures struct {
	HasJoins           bool
	JoinCount          int
	HasSubqueries      bool
	HasCTEs            bool
	HasWindowFunctions bool
	HasAggregations    bool
}

// ClassifiedQuery is an extracted query plus its complexity verdict.
type ClassifiedQuery struct {
	ExtractedQuery
	Tier          ComplexityTier
	Rationale     string
	SuggestedName string
	Features      QueryFeatures
}

// PlanAction is the reconciliation decision for one candidate.
type PlanAction string

// Plan actions.
const (
	ActionCreate     PlanAction = "CREATE"
	ActionSkipExists PlanAction = "SKIP_EXISTS"
	ActionReplace    PlanAction = "REPLACE"
)

// TargetIdentity is the stable name under which artifacts are created.
type TargetIdentity struct {
	Catalog string
	Schema  string
	Name    string
}

// FullName returns the catalog.schema.name form used by the registry.
func (id TargetIdentity) FullName() string {
	return id.Catalog + "." + id.Schema + "." + id.Name
}

// AssetPlanItem is one planned mutation (or planned skip).
type AssetPlanItem struct {
	Query    ClassifiedQuery
	Identity TargetIdentity
	Action   PlanAction
	Reasons  []string
}

// OutcomeKind is the result of a single materialization sub-operation.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeCreated      OutcomeKind = "CREATED"
	OutcomeReplaced     OutcomeKind = "REPLACED"
	OutcomeSkipped      OutcomeKind = "SKIPPED"
	OutcomeFailed       OutcomeKind = "FAILED"
	OutcomeNotAttempted OutcomeKind = "NOT_ATTEMPTED"
)

// Outcome records a sub-operation result. Reason is set for failures
// and not-attempted outcomes.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// MaterializationResult is the per-item outcome across the three
// sub-operations: instruction upsert, function creation, registration.
type MaterializationResult struct {
	Identity     TargetIdentity
	Action       PlanAction
	Instruction  Outcome
	Function     Outcome
	Registration Outcome
}

// InstructionEntry is one curated SQL example attached to a space.
// Key is the stable identity (the suggested name) used for idempotency.
type InstructionEntry struct {
	Key         string
	Question    string
	SQL         string
	Description string
}
