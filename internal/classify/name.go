package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	maxNameLen = 50

	// Digest suffix bounds for collision disambiguation, in bytes.
	minDigestWidth = 3
	maxDigestWidth = 10
)

// SuggestName derives a deterministic snake_case function name from a
// question: first five words, lowercased, non-alphanumerics stripped,
// prefixed "genie_" so generated assets are easy to spot in the catalog.
func SuggestName(question string) string {
	words := strings.Fields(strings.ToLower(question))
	if len(words) > 5 {
		words = words[:5]
	}
	name := sanitizeName(strings.Join(words, "_"))
	if name == "" {
		return "genie_query"
	}
	return "genie_" + name
}

// sanitizeName keeps lowercase alphanumerics and underscores, prefixes
// "fn_" when the result would start with a digit, and caps the length.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.':
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "fn_" + name
	}
	if len(name) > maxNameLen {
		name = strings.TrimRight(name[:maxNameLen], "_")
	}
	return name
}

// disambiguate appends a digest of the query's normalized text so two
// distinct queries never share a target name. The digest is derived from
// query content, so it is stable across runs; width sets how many digest
// bytes the suffix carries.
func disambiguate(name, normalizedSQL string, width int) string {
	sum := sha256.Sum256([]byte(normalizedSQL))
	return withSuffix(name, "_"+hex.EncodeToString(sum[:width]))
}

// withSuffix appends suffix to name, trimming the base so the result
// stays within the length cap.
func withSuffix(name, suffix string) string {
	if len(name)+len(suffix) > maxNameLen {
		name = strings.TrimRight(name[:maxNameLen-len(suffix)], "_")
	}
	return name + suffix
}
