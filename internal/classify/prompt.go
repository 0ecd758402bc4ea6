// Package classify assigns complexity tiers to extracted SQL queries using
// an external completion service.
package classify

import (
	"fmt"
	"strings"
)

const systemRubric = `You are an expert SQL analyst. Classify the SQL query below into exactly one complexity tier:

- SIMPLE: basic SELECT with simple WHERE clauses, no JOINs or subqueries
- MODERATE: contains JOINs, GROUP BY, or simple aggregations
- COMPLEX: contains multiple JOINs, subqueries, CTEs, window functions, or compound aggregations

A query is COMPLEX when it has 3 or more JOINs, any CTE, window functions, nested subqueries, or business logic worth promoting to a reusable asset.

Answer with exactly these lines and nothing that contradicts them:

COMPLEXITY: <SIMPLE|MODERATE|COMPLEX>
NAME: <short snake_case identifier describing the query intent>
FEATURES: joins=<n> subqueries=<yes|no> ctes=<yes|no> windows=<yes|no> aggregations=<yes|no>
REASONING: <one or two sentences explaining the classification>`

// BuildPrompt renders the classification request for one query.
// The question gives the service intent context for the NAME field.
func BuildPrompt(question, sql string) string {
	var b strings.Builder
	b.WriteString(systemRubric)
	b.WriteString("\n\n")
	if question != "" {
		fmt.Fprintf(&b, "Original question: %s\n\n", question)
	}
	fmt.Fprintf(&b, "SQL:\n```sql\n%s\n```", sql)
	return b.String()
}
