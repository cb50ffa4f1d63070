package rewrite

import "github.com/egp-tools/egp-rewriter/internal/mapping"

// Project is the decoded textual content of one archive: the metadata
// document (HasDoc false when project.xml was absent or unreadable) and
// auxiliary log texts keyed by name.
type Project struct {
	Doc    string
	HasDoc bool
	Logs   map[string]string
}

// Report summarises one project rewrite.
type Report struct {
	Total int                 `json:"total"`
	Tags  map[string]TagStats `json:"tags,omitempty"`
	Logs  map[string]int      `json:"logs,omitempty"`
}

// RewriteProject transforms a project's texts against the rule table.
// It is pure text in, text out: the caller owns all file and archive
// handling. A missing metadata doc only zeroes the tag counts, the logs
// are processed either way, and zero matches is not an error.
func RewriteProject(p Project, rules mapping.Rules) (Project, Report) {
	out := Project{HasDoc: p.HasDoc}
	var report Report

	if p.HasDoc {
		doc, n, tags := RewriteDoc(p.Doc, rules)
		out.Doc = doc
		report.Total += n
		report.Tags = tags
	}

	if len(p.Logs) > 0 {
		out.Logs = make(map[string]string, len(p.Logs))
		report.Logs = make(map[string]int, len(p.Logs))
		for name, text := range p.Logs {
			newText, n := TransformSQL(text, rules)
			out.Logs[name] = newText
			report.Logs[name] = n
			report.Total += n
		}
	}

	return out, report
}
