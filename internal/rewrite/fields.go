package rewrite

import (
	"regexp"
	"strings"

	"github.com/egp-tools/egp-rewriter/internal/mapping"
)

// project.xml fields fall into three classes, each with its own content
// contract. The tag lists mirror what the authoring tool emits.
var (
	// Full SAS SQL payloads.
	sqlTags = []string{"TaskCode", "Text"}
	// Single SCHEMA.TABLE values, e.g. WORK.QUERY_FOR_ORDERS.
	refTags = []string{"Label", "InputTableName"}
	// Bare library names, e.g. WORK.
	schemaTags = []string{"LibraryName"}
)

var (
	sqlTagPatterns   = make(map[string]*regexp.Regexp, len(sqlTags))
	valueTagPatterns = make(map[string]*regexp.Regexp, len(refTags)+len(schemaTags))
)

func init() {
	for _, tag := range sqlTags {
		// Non-greedy: shortest content between a matching open and close
		// marker. Nesting is not part of the format.
		sqlTagPatterns[tag] = regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`)
	}
	for _, tag := range refTags {
		valueTagPatterns[tag] = regexp.MustCompile(`<` + tag + `>([^<]+)</` + tag + `>`)
	}
	for _, tag := range schemaTags {
		valueTagPatterns[tag] = regexp.MustCompile(`<` + tag + `>([^<]+)</` + tag + `>`)
	}
}

// TagStats counts the occurrences of one tag: how many the pass scanned
// and how many substitutions it produced.
type TagStats struct {
	Scanned   int `json:"scanned"`
	Rewritten int `json:"rewritten"`
}

// rewriteTag applies fn to the inner content of every <tag> occurrence in
// doc. fn returns the replacement content and its substitution count;
// occurrences with a zero count keep their original bytes, surrounding
// markers always do.
func rewriteTag(doc string, pattern *regexp.Regexp, fn func(content string) (string, int)) (string, TagStats) {
	idx := pattern.FindAllStringSubmatchIndex(doc, -1)
	if len(idx) == 0 {
		return doc, TagStats{}
	}

	var stats TagStats
	var sb strings.Builder
	sb.Grow(len(doc))

	last := 0
	for _, m := range idx {
		stats.Scanned++

		content := doc[m[2]:m[3]]
		repl, n := fn(content)
		if n == 0 {
			continue
		}
		stats.Rewritten += n

		sb.WriteString(doc[last:m[2]])
		sb.WriteString(repl)
		last = m[3]
	}
	sb.WriteString(doc[last:])

	return sb.String(), stats
}

// rewriteDottedRef rewrites a field expected to hold exactly
// schema.table, surrounding whitespace aside. Anything else passes
// through untouched.
func rewriteDottedRef(content string, rules mapping.Rules) (string, int) {
	m := exactRefPattern.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil {
		return content, 0
	}

	rule := rules.FindFirst(m[1], m[2])
	if rule == nil {
		return content, 0
	}

	schema, table := rule.Rewrite(m[2])

	return schema + "." + table, 1
}

// rewriteSchemaName rewrites a field holding a bare library name. Any
// rule whose source schema matches qualifies, table-scoped or not; this
// mirrors the authoring tool's historical behaviour even though the
// dotted and SQL paths honour table scope.
func rewriteSchemaName(content string, rules mapping.Rules) (string, int) {
	rule := rules.FindSchema(strings.TrimSpace(content))
	if rule == nil {
		return content, 0
	}

	return rule.TargetSchema, 1
}

// RewriteDoc runs the three tag classes over a project.xml text: SQL
// payload tags first, then dotted references, then bare library names.
// Each class rewrites the text produced by the previous one. Returns the
// new text, the total substitution count and per-tag statistics.
func RewriteDoc(doc string, rules mapping.Rules) (string, int, map[string]TagStats) {
	out := doc
	total := 0
	tags := make(map[string]TagStats, len(sqlTags)+len(refTags)+len(schemaTags))

	for _, tag := range sqlTags {
		var stats TagStats
		out, stats = rewriteTag(out, sqlTagPatterns[tag], func(content string) (string, int) {
			return TransformSQL(content, rules)
		})
		total += stats.Rewritten
		tags[tag] = stats
	}

	for _, tag := range refTags {
		var stats TagStats
		out, stats = rewriteTag(out, valueTagPatterns[tag], func(content string) (string, int) {
			return rewriteDottedRef(content, rules)
		})
		total += stats.Rewritten
		tags[tag] = stats
	}

	for _, tag := range schemaTags {
		var stats TagStats
		out, stats = rewriteTag(out, valueTagPatterns[tag], func(content string) (string, int) {
			return rewriteSchemaName(content, rules)
		})
		total += stats.Rewritten
		tags[tag] = stats
	}

	return out, total, tags
}
