package transformer

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/egp-tools/egp-rewriter/internal/mapping"
	"github.com/egp-tools/egp-rewriter/internal/rewrite"
)

// Result describes the outcome of transforming one project file.
type Result struct {
	Success    bool                        `json:"success"`
	InputPath  string                      `json:"input"`
	OutputPath string                      `json:"output,omitempty"`
	Error      string                      `json:"error,omitempty"`
	Rewrites   int                         `json:"rewrites"`
	Tags       map[string]rewrite.TagStats `json:"tags,omitempty"`
	Logs       map[string]int              `json:"logs,omitempty"`
	LogFiles   int                         `json:"log_files"`
	// DocError is set when project.xml could not be decoded. The archive
	// is still repacked and the logs still rewritten, so the result as a
	// whole may succeed regardless.
	DocError string `json:"doc_error,omitempty"`
}

func failure(input string, err error) *Result {
	return &Result{
		InputPath: input,
		Error:     err.Error(),
	}
}

// Transformer rewrites one project file of a format it recognises.
type Transformer interface {
	// CanHandle reports whether the transformer recognises the file.
	CanHandle(path string) bool
	// Transform rewrites input into output using the rule table.
	Transform(input, output string, rules mapping.Rules) *Result
}

// Registry dispatches files to transformers in registration order: the
// first transformer recognising a file handles it. Keeping dispatch as an
// ordered list leaves the door open for further container formats.
type Registry struct {
	transformers []Transformer
	logger       zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger,
	}
}

func (r *Registry) Register(t Transformer) {
	r.transformers = append(r.transformers, t)
}

// TransformFile routes the file to the first matching transformer. An
// unrecognised file yields a failed result, not an abort: the surrounding
// batch keeps going.
func (r *Registry) TransformFile(input, output string, rules mapping.Rules) *Result {
	for _, t := range r.transformers {
		if t.CanHandle(input) {
			return t.Transform(input, output, rules)
		}
	}

	return failure(input, errors.Errorf("no transformer registered for %q files", filepath.Ext(input)))
}
