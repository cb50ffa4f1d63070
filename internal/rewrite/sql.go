package rewrite

import (
	"regexp"

	"github.com/egp-tools/egp-rewriter/internal/mapping"
)

type edit struct {
	start int
	end   int
	text  string
}

// TransformSQL rewrites every mapped schema.table reference in sql and
// returns the new text with the number of substitutions applied.
//
// Each syntax is a separate pass matched against the then-current text.
// Within a pass the planned replacements are applied back to front so the
// offsets of earlier matches stay valid; matches never overlap because
// every span comes from a single regex match. References with no matching
// rule are left untouched, and the bracket style of the source span is
// kept in the replacement.
func TransformSQL(sql string, rules mapping.Rules) (string, int) {
	out := sql
	count := 0

	passes := []struct {
		pattern   *regexp.Regexp
		bracketed bool
	}{
		{plainRefPattern, false},
		{bracketRefPattern, true},
	}

	for _, pass := range passes {
		refs := findRefs(out, pass.pattern, pass.bracketed)

		edits := make([]edit, 0, len(refs))
		for _, ref := range refs {
			rule := rules.FindFirst(ref.Schema, ref.Table)
			if rule == nil {
				continue
			}

			schema, table := rule.Rewrite(ref.Table)
			text := schema + "." + table
			if ref.Bracketed {
				text = "[" + schema + "].[" + table + "]"
			}

			edits = append(edits, edit{
				start: ref.Start,
				end:   ref.End,
				text:  text,
			})
		}

		for i := len(edits) - 1; i >= 0; i-- {
			e := edits[i]
			out = out[:e.start] + e.text + out[e.end:]
		}
		count += len(edits)
	}

	return out, count
}
