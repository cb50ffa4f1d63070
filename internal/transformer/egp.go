package transformer

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/egp-tools/egp-rewriter/internal/egp"
	"github.com/egp-tools/egp-rewriter/internal/mapping"
	"github.com/egp-tools/egp-rewriter/internal/rewrite"
)

const projectDocName = "project.xml"

// EGP rewrites SAS Enterprise Guide project archives: unpack, rewrite
// project.xml and every *.log member, repack.
type EGP struct {
	logger zerolog.Logger
}

func NewEGP(logger zerolog.Logger) *EGP {
	return &EGP{
		logger: logger,
	}
}

func (t *EGP) CanHandle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".egp")
}

func (t *EGP) Transform(input, output string, rules mapping.Rules) *Result {
	dir, err := ioutil.TempDir("", "egp-rewrite-")
	if err != nil {
		return failure(input, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			t.logger.Warn().Err(err).Str("dir", dir).Msg("could not remove temp dir")
		}
	}()

	if err := egp.Extract(input, dir); err != nil {
		return failure(input, err)
	}

	project, docEnc, docErr := t.readDoc(dir)
	if docErr != nil {
		t.logger.Error().Err(docErr).Str("file", input).Msg("could not decode project.xml, rewriting logs only")
	}

	logs, err := t.readLogs(dir)
	if err != nil {
		return failure(input, err)
	}
	project.Logs = logs

	rewritten, report := rewrite.RewriteProject(project, rules)

	if err := t.writeProject(dir, rewritten, docEnc, report); err != nil {
		return failure(input, err)
	}

	if err := egp.Compress(dir, output); err != nil {
		return failure(input, err)
	}

	res := &Result{
		Success:    true,
		InputPath:  input,
		OutputPath: output,
		Rewrites:   report.Total,
		Tags:       report.Tags,
		Logs:       report.Logs,
		LogFiles:   len(project.Logs),
	}
	if docErr != nil {
		res.DocError = docErr.Error()
	}

	return res
}

// readDoc reads the metadata document at the archive root. A missing
// document is not an error, an undecodable one is reported so the caller
// can carry on with the logs alone.
func (t *EGP) readDoc(dir string) (rewrite.Project, egp.Encoding, error) {
	var project rewrite.Project

	docPath := filepath.Join(dir, projectDocName)
	if _, err := os.Stat(docPath); err != nil {
		return project, egp.UTF8, nil
	}

	doc, enc, err := egp.ReadText(docPath)
	if err != nil {
		return project, egp.UTF8, err
	}

	project.Doc = doc
	project.HasDoc = true
	t.logger.Debug().Str("encoding", enc.String()).Msg("decoded project.xml")

	return project, enc, nil
}

// readLogs collects every *.log member, wherever it sits in the archive,
// keyed by archive-relative path. Unreadable logs are skipped with a
// warning.
func (t *EGP) readLogs(dir string) (map[string]string, error) {
	logs := make(map[string]string)

	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.EqualFold(filepath.Ext(p), ".log") {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		text, err := egp.ReadLog(p)
		if err != nil {
			t.logger.Warn().Err(err).Str("log", rel).Msg("could not read log member, skipping")
			return nil
		}
		logs[rel] = text

		return nil
	})
	if err != nil {
		return nil, err
	}

	return logs, nil
}

// writeProject writes the rewritten document back in its original
// encoding and every log that actually changed. Untouched logs keep
// their original bytes.
func (t *EGP) writeProject(dir string, p rewrite.Project, docEnc egp.Encoding, report rewrite.Report) error {
	if p.HasDoc {
		if err := egp.WriteText(filepath.Join(dir, projectDocName), p.Doc, docEnc); err != nil {
			return err
		}
	}

	for rel, text := range p.Logs {
		if report.Logs[rel] == 0 {
			continue
		}
		if err := egp.WriteLog(filepath.Join(dir, rel), text); err != nil {
			return err
		}
	}

	return nil
}
