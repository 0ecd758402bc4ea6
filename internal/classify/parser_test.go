package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genie-copilot/internal/domain"
)

func TestParseResponse_StructuredAnswer(t *testing.T) {
	raw := `COMPLEXITY: COMPLEX
NAME: monthly_revenue_by_region
FEATURES: joins=3 subqueries=yes ctes=yes windows=no aggregations=yes
REASONING: multiple joins plus a CTE over an aggregate`

	out, err := parseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.TierComplex, out.Tier)
	assert.Equal(t, "monthly_revenue_by_region", out.Name)
	assert.Equal(t, "multiple joins plus a CTE over an aggregate", out.Rationale)
	assert.Equal(t, 3, out.Features.JoinCount)
	assert.True(t, out.Features.HasJoins)
	assert.True(t, out.Features.HasSubqueries)
	assert.True(t, out.Features.HasCTEs)
	assert.False(t, out.Features.HasWindowFunctions)
	assert.True(t, out.Features.HasAggregations)
}

func TestParseResponse_ToleratesSurroundingProse(t *testing.T) {
	raw := `Sure! Here is my assessment.

COMPLEXITY: **MODERATE**
NAME: active users weekly
Some closing remarks.`

	out, err := parseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.TierModerate, out.Tier)
	assert.Equal(t, "active_users_weekly", out.Name)
}

func TestParseResponse_BareTierToken(t *testing.T) {
	out, err := parseResponse("I would call this query complex overall.")
	require.NoError(t, err)
	assert.Equal(t, domain.TierComplex, out.Tier)
}

func TestParseResponse_WordBoundary(t *testing.T) {
	// "simplest" must not count as a SIMPLE token.
	_, err := parseResponse("this is the simplest case imaginable")
	require.Error(t, err)
	var unparseable *domain.UnparseableResponseError
	assert.ErrorAs(t, err, &unparseable)
}

func TestParseResponse_NoTier(t *testing.T) {
	_, err := parseResponse("I cannot help with that.")
	require.Error(t, err)
	var unparseable *domain.UnparseableResponseError
	assert.ErrorAs(t, err, &unparseable)
}

func TestParseResponse_PrefersMostComplexBareToken(t *testing.T) {
	out, err := parseResponse("somewhere between simple and complex")
	require.NoError(t, err)
	assert.Equal(t, domain.TierComplex, out.Tier)
}
