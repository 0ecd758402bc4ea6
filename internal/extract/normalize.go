// Package extract mines successfully executed SQL queries from Genie conversations.
package extract

import (
	"strings"
)

// NormalizeSQL produces the comparison form of a SQL text used for
// deduplication: comments stripped, whitespace runs collapsed to one
// space, and everything outside string literals and quoted identifiers
// uppercased. String literal contents are preserved byte-for-byte so
// queries differing only in literal values never merge.
func NormalizeSQL(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	i := 0
	n := len(sql)
	pendingSpace := false

	writeSpace := func() {
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
	}

	for i < n {
		c := sql[i]

		switch {
		// Line comment: -- to end of line.
		case c == '-' && i+1 < n && sql[i+1] == '-':
			for i < n && sql[i] != '\n' {
				i++
			}
			pendingSpace = true

		// Block comment: /* ... */ (unterminated comments run to EOF).
		case c == '/' && i+1 < n && sql[i+1] == '*':
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n
			}
			pendingSpace = true

		// Single-quoted string literal, '' escapes a quote.
		case c == '\'':
			writeSpace()
			start := i
			i++
			for i < n {
				if sql[i] == '\'' {
					if i+1 < n && sql[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			b.WriteString(sql[start:i])

		// Double-quoted identifier: case preserved.
		case c == '"':
			writeSpace()
			start := i
			i++
			for i < n && sql[i] != '"' {
				i++
			}
			if i < n {
				i++
			}
			b.WriteString(sql[start:i])

		// Backtick-quoted identifier (Databricks SQL): case preserved.
		case c == '`':
			writeSpace()
			start := i
			i++
			for i < n && sql[i] != '`' {
				i++
			}
			if i < n {
				i++
			}
			b.WriteString(sql[start:i])

		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			pendingSpace = true
			i++

		default:
			writeSpace()
			if c >= 'a' && c <= 'z' {
				b.WriteByte(c - 'a' + 'A')
			} else {
				b.WriteByte(c)
			}
			i++
		}
	}

	out := strings.TrimSpace(b.String())
	// A trailing statement terminator is not a structural difference.
	out = strings.TrimRight(out, ";")
	return strings.TrimSpace(out)
}
