// Package materialize applies an asset plan against the instruction store
// and the function registry, tracking per-item outcomes.
package materialize

import (
	"fmt"
	"strings"

	"genie-copilot/internal/domain"
)

// BuildFunctionStatement renders the deterministic CREATE OR REPLACE
// FUNCTION statement for a candidate. The body is the original
// (non-normalized) SQL with trailing terminators stripped; no parentheses
// follow RETURN so CTE bodies stay valid.
func BuildFunctionStatement(identity domain.TargetIdentity, q domain.ClassifiedQuery) string {
	body := strings.TrimSpace(q.SQL)
	body = strings.TrimSpace(strings.TrimRight(body, ";"))

	return fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s()
RETURNS TABLE
LANGUAGE SQL
COMMENT '%s'
RETURN %s`, identity.FullName(), escapeSQLString(functionComment(q)), body)
}

// BuildTagStatement renders the ALTER FUNCTION that marks a created
// function as auto-generated, so mined assets stay identifiable in the
// catalog.
func BuildTagStatement(identity domain.TargetIdentity) string {
	return fmt.Sprintf(`ALTER FUNCTION %s
SET TAGS (
  'generated_by' = 'genie-copilot',
  'auto_generated' = 'true',
  'source' = 'genie_conversation'
)`, identity.FullName())
}

// BuildSmokeTestStatement renders the existence check run after a function
// is created.
func BuildSmokeTestStatement(identity domain.TargetIdentity) string {
	return "DESCRIBE FUNCTION " + identity.FullName()
}

// functionComment builds the COMMENT text: the classifier's rationale as
// the description, plus the source question for discoverability.
func functionComment(q domain.ClassifiedQuery) string {
	description := strings.TrimSpace(q.Rationale)
	if description == "" {
		description = "Executes a complex analytical query mined from Genie conversations."
	}
	question := strings.TrimSpace(q.Question)
	if len(question) > 300 {
		question = question[:297] + "..."
	}
	if question == "" {
		return description
	}
	return description + " Example question: " + question
}

// instructionDescription is the usage guidance attached to the curated
// example entry for a candidate.
func instructionDescription(q domain.ClassifiedQuery) string {
	if r := strings.TrimSpace(q.Rationale); r != "" {
		return r
	}
	question := q.Question
	if len(question) > 100 {
		question = question[:100]
	}
	return "Use this query to answer: " + question
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
