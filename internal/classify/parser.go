package classify

import (
	"strconv"
	"strings"

	"genie-copilot/internal/domain"
)

// parsedResponse is the structured form of a classification answer.
type parsedResponse struct {
	Tier      domain.ComplexityTier
	Name      string
	Rationale string
	Features  domain.QueryFeatures
}

// parseResponse extracts the structured fields from a completion response,
// tolerating free-form prose around them. It returns an
// UnparseableResponseError when no valid tier token can be found.
func parseResponse(raw string) (parsedResponse, error) {
	var out parsedResponse
	tierFound := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "COMPLEXITY":
			if tier, err := domain.ParseTier(firstWord(value)); err == nil {
				out.Tier = tier
				tierFound = true
			}
		case "NAME":
			out.Name = sanitizeName(value)
		case "REASONING":
			out.Rationale = value
		case "FEATURES":
			out.Features = parseFeatures(value)
		}
	}

	if !tierFound {
		// Last resort: a bare tier token anywhere in the response.
		upper := strings.ToUpper(raw)
		for _, tier := range []domain.ComplexityTier{domain.TierComplex, domain.TierModerate, domain.TierSimple} {
			if containsWord(upper, tier.String()) {
				out.Tier = tier
				tierFound = true
				break
			}
		}
	}
	if !tierFound {
		return parsedResponse{}, domain.ErrUnparseable("no complexity tier token in response: %s", truncate(raw, 120))
	}
	return out, nil
}

func parseFeatures(s string) domain.QueryFeatures {
	var f domain.QueryFeatures
	for _, field := range strings.Fields(s) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		truthy := value == "yes" || value == "true"
		switch strings.ToLower(key) {
		case "joins":
			if n, err := strconv.Atoi(value); err == nil {
				f.JoinCount = n
				f.HasJoins = n > 0
			} else if truthy {
				f.HasJoins = true
			}
		case "subqueries":
			f.HasSubqueries = truthy
		case "ctes":
			f.HasCTEs = truthy
		case "windows":
			f.HasWindowFunctions = truthy
		case "aggregations":
			f.HasAggregations = truthy
		}
	}
	return f
}

// containsWord reports whether token appears in s bounded by non-letters,
// so "SIMPLE" does not match inside "SIMPLEST".
func containsWord(s, token string) bool {
	for start := 0; ; {
		idx := strings.Index(s[start:], token)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx == 0 || !isLetter(s[idx-1])
		afterIdx := idx + len(token)
		after := afterIdx >= len(s) || !isLetter(s[afterIdx])
		if before && after {
			return true
		}
		start = idx + len(token)
	}
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "*`'\".,")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
