package codegen

import "strings"

// Expressions are opaque text. The functions here perform the minimal
// escaping each dialect's literal syntax requires and nothing more: no
// operator, function, or literal translation happens between backends.
// Cross-backend expression equivalence is the caller's responsibility.

// pyString renders s as a double-quoted Python string literal.
func pyString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// pyRawPath renders a path as a raw Python string literal, matching the
// pd.read_csv(r"...") shape the staging rewriter looks for. Raw literals
// cannot represent embedded double quotes; those fall back to a normal
// escaped literal.
func pyRawPath(path string) string {
	if strings.Contains(path, `"`) {
		return pyString(path)
	}
	return `r"` + path + `"`
}

// pyList renders an ordered string list as a Python list literal.
func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = pyString(it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// sqlIdent quotes an identifier for SQL when needed: bare if it is
// alphanumeric-plus-underscore and does not start with a digit, otherwise
// double-quoted with embedded quotes doubled.
func sqlIdent(name string) string {
	if name == "" {
		return `""`
	}
	bare := true
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				bare = false
			}
		default:
			bare = false
		}
	}
	if bare {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlString renders s as a single-quoted SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
