package batch

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/siddontang/go/ioutil2"
	"go.uber.org/atomic"

	"github.com/egp-tools/egp-rewriter/internal/config"
	"github.com/egp-tools/egp-rewriter/internal/mapping"
	"github.com/egp-tools/egp-rewriter/internal/metrics"
	"github.com/egp-tools/egp-rewriter/internal/transformer"
)

// FileResult ties one input archive to its transformation outcome.
type FileResult struct {
	Name   string              `json:"name"`
	Result *transformer.Result `json:"result"`
}

// Summary aggregates one batch run.
type Summary struct {
	Processed int          `json:"processed"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Rewrites  int          `json:"rewrites"`
	Files     []FileResult `json:"files"`
}

// Runner discovers project archives in the input dir and feeds them
// through the transformer registry. One file failing never aborts the
// batch; the summary carries the per-file record.
type Runner struct {
	inputDir   string
	outputDir  string
	reportFile string
	workers    int
	interval   time.Duration

	registry *transformer.Registry
	rules    mapping.Rules
	state    *fileState
	logger   zerolog.Logger
}

func NewRunner(cfg *config.Config, registry *transformer.Registry, rules mapping.Rules, logger zerolog.Logger) (*Runner, error) {
	if err := os.MkdirAll(cfg.Rewrite.OutputDir, 0755); err != nil {
		return nil, err
	}

	state, err := newFileState(cfg.App.StateFile)
	if err != nil {
		return nil, err
	}

	workers := cfg.Rewrite.Workers
	if workers < 1 {
		workers = 1
	}

	return &Runner{
		inputDir:   cfg.Rewrite.InputDir,
		outputDir:  cfg.Rewrite.OutputDir,
		reportFile: cfg.Rewrite.ReportFile,
		workers:    workers,
		interval:   time.Duration(cfg.Rewrite.Watch.IntervalSec) * time.Second,
		registry:   registry,
		rules:      rules,
		state:      state,
		logger:     logger,
	}, nil
}

// Run processes every archive currently in the input dir once and writes
// the batch report.
func (r *Runner) Run() (*Summary, error) {
	files, err := r.discover()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.logger.Warn().Str("dir", r.inputDir).Msg("no project archives found")
	}

	summary := r.process(files)

	if err := r.writeReport(summary); err != nil {
		r.logger.Err(err).Str("file", r.reportFile).Msg("could not write batch report")
	}

	return summary, nil
}

// Watch polls the input dir and processes archives it has not seen yet,
// until the context is cancelled. The processed-file registry survives
// restarts through the state file.
func (r *Runner) Watch(ctx context.Context) error {
	if err := r.state.load(); err != nil {
		return err
	}

	metrics.SetRunnerState(metrics.StateWatching)
	defer metrics.SetRunnerState(metrics.StateIdle)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.sweep(); err != nil {
			r.logger.Err(err).Msg("sweep failed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return r.state.save()
		}
	}
}

func (r *Runner) sweep() error {
	files, err := r.discover()
	if err != nil {
		return err
	}

	fresh := make([]string, 0, len(files))
	infos := make(map[string]os.FileInfo, len(files))
	for _, name := range files {
		info, err := os.Stat(filepath.Join(r.inputDir, name))
		if err != nil {
			r.logger.Warn().Err(err).Str("file", name).Msg("could not stat archive, skipping")
			continue
		}
		if r.state.seen(name, info) {
			continue
		}
		fresh = append(fresh, name)
		infos[name] = info
	}

	if len(fresh) == 0 {
		return nil
	}

	summary := r.process(fresh)

	// Failed archives are remembered too: a file that cannot be opened
	// will not become openable on the next sweep, and retry spam helps
	// nobody. Touching the file makes it eligible again.
	for _, fr := range summary.Files {
		if info, ok := infos[fr.Name]; ok {
			r.state.remember(fr.Name, info)
		}
	}

	if err := r.writeReport(summary); err != nil {
		r.logger.Err(err).Str("file", r.reportFile).Msg("could not write batch report")
	}

	return r.state.save()
}

// discover lists *.egp files directly under the input dir, sorted by
// name.
func (r *Runner) discover() ([]string, error) {
	entries, err := ioutil.ReadDir(r.inputDir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".egp") {
			continue
		}
		files = append(files, e.Name())
	}

	return files, nil
}

func (r *Runner) process(files []string) *Summary {
	metrics.SetRunnerState(metrics.StateRunning)
	defer metrics.SetRunnerState(metrics.StateIdle)

	var (
		succeeded = atomic.NewInt64(0)
		rewrites  = atomic.NewInt64(0)
	)

	results := make([]FileResult, len(files))
	jobs := make(chan int)

	workers := r.workers
	if workers > len(files) {
		workers = len(files)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				name := files[i]
				res := r.transformOne(name)
				results[i] = FileResult{Name: name, Result: res}

				if res.Success {
					succeeded.Inc()
					rewrites.Add(int64(res.Rewrites))
				}
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := &Summary{
		Processed: len(files),
		Succeeded: int(succeeded.Load()),
		Failed:    len(files) - int(succeeded.Load()),
		Rewrites:  int(rewrites.Load()),
		Files:     results,
	}

	return summary
}

func (r *Runner) transformOne(name string) *transformer.Result {
	input := filepath.Join(r.inputDir, name)
	output := filepath.Join(r.outputDir, name)

	r.logger.Info().Str("file", name).Msg("rewriting project archive")

	res := r.registry.TransformFile(input, output, r.rules)

	metrics.ArchiveProcessed(res.Success)
	if res.Success {
		metrics.AddRewrites(res.Rewrites)
		r.logger.Info().
			Str("file", name).
			Str("output", res.OutputPath).
			Int("rewrites", res.Rewrites).
			Int("log_files", res.LogFiles).
			Msg("project archive rewritten")
	} else {
		r.logger.Error().
			Str("file", name).
			Str("error", res.Error).
			Msg("could not rewrite project archive")
	}

	return res
}

func (r *Runner) writeReport(summary *Summary) error {
	if r.reportFile == "" {
		return nil
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	return ioutil2.WriteFileAtomic(r.reportFile, data, 0644)
}
