package mapping

import "strings"

// Rule translates a source schema, and optionally a single table inside
// it, to a target name. A rule without SourceTable covers every table of
// the schema; a rule without TargetTable keeps the original table name.
type Rule struct {
	SourceSchema string
	TargetSchema string
	SourceTable  string
	TargetTable  string
}

// Matches reports whether the rule covers the given reference.
// Comparison is case-insensitive; an empty SourceTable matches any table.
func (r *Rule) Matches(schema, table string) bool {
	if !strings.EqualFold(r.SourceSchema, schema) {
		return false
	}
	if r.SourceTable == "" {
		return true
	}

	return strings.EqualFold(r.SourceTable, table)
}

// Rewrite returns the target pair for a matched reference. The table
// argument is the original table name, kept as is unless the rule names
// a replacement.
func (r *Rule) Rewrite(table string) (string, string) {
	if r.TargetTable != "" {
		return r.TargetSchema, r.TargetTable
	}

	return r.TargetSchema, table
}

// Rules is an ordered rule list. Order is significant: resolution is a
// plain linear scan and the first matching rule wins, so overlapping or
// duplicate rules are legal and resolved by position.
type Rules []Rule

// FindFirst returns the first rule covering (schema, table), or nil when
// no rule matches.
func (rs Rules) FindFirst(schema, table string) *Rule {
	for i := range rs {
		if rs[i].Matches(schema, table) {
			return &rs[i]
		}
	}

	return nil
}

// FindSchema returns the first rule whose source schema matches, ignoring
// any table scope the rule carries. Library-name fields hold no table, so
// a table-scoped rule qualifies just like a schema-wide one.
func (rs Rules) FindSchema(schema string) *Rule {
	for i := range rs {
		if strings.EqualFold(rs[i].SourceSchema, schema) {
			return &rs[i]
		}
	}

	return nil
}
