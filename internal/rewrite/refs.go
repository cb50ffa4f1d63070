package rewrite

import "regexp"

// The two surface syntaxes a schema-qualified reference takes in SAS
// code and logs: WORK.ORDERS and [WORK].[ORDERS]. Whitespace is allowed
// around the dot; identifier case is preserved in the captured text.
var (
	plainRefPattern   = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\s*\.\s*([a-zA-Z_][a-zA-Z0-9_]*)\b`)
	bracketRefPattern = regexp.MustCompile(`\[([a-zA-Z_][a-zA-Z0-9_]*)\]\s*\.\s*\[([a-zA-Z_][a-zA-Z0-9_]*)\]`)

	// Exact shape required of a dotted-reference field after trimming.
	exactRefPattern = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)\.([a-zA-Z_][a-zA-Z0-9_]*)$`)
)

// Ref is one schema-qualified reference located in a text.
type Ref struct {
	Start     int
	End       int
	Schema    string
	Table     string
	Bracketed bool
}

// findRefs returns every occurrence of one syntax in text, left to right.
func findRefs(text string, pattern *regexp.Regexp, bracketed bool) []Ref {
	idx := pattern.FindAllStringSubmatchIndex(text, -1)
	refs := make([]Ref, 0, len(idx))
	for _, m := range idx {
		refs = append(refs, Ref{
			Start:     m[0],
			End:       m[1],
			Schema:    text[m[2]:m[3]],
			Table:     text[m[4]:m[5]],
			Bracketed: bracketed,
		})
	}

	return refs
}
