// Package build orchestrates one publish run: scan the content tree, diff it
// against the prior state, render every page, assemble the output tree, and
// commit the history. Stages run in a fixed order and a fatal error in any
// stage aborts the run without touching the published tree or the ledger.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mogura/novelpress/internal/assemble"
	"github.com/mogura/novelpress/internal/config"
	"github.com/mogura/novelpress/internal/content"
	"github.com/mogura/novelpress/internal/history"
	"github.com/mogura/novelpress/internal/logfields"
	"github.com/mogura/novelpress/internal/metrics"
	"github.com/mogura/novelpress/internal/render"
)

// Outcome is the final status of a publish run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// Report summarizes one publish run for the operator.
type Report struct {
	RunID     string
	Outcome   Outcome
	Works     int
	Published int
	Warnings  []error
	Failures  []assemble.PageFailure
	Appended  int // Ledger records written this run
	Duration  time.Duration
}

// Runner executes publish runs for one configuration.
type Runner struct {
	cfg      *config.Config
	recorder metrics.Recorder
}

// NewRunner creates a runner. Metrics default to the no-op recorder.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg, recorder: metrics.NoopRecorder{}}
}

// WithRecorder injects a metrics recorder.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	r.recorder = rec
	return r
}

// Run executes one full publish run. The returned report is non-nil whenever
// a run was attempted; err is non-nil only for fatal failures, in which case
// neither the output tree nor the history was modified beyond what the report
// says.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()[:8], Outcome: OutcomeFailed}
	log := slog.With(logfields.RunID(report.RunID))

	fail := func(stage string, err error) (*Report, error) {
		r.recorder.IncStageResult(stage, metrics.ResultFatal)
		r.recorder.IncRunOutcome(string(OutcomeFailed))
		report.Duration = time.Since(start)
		r.recorder.ObserveRunDuration(report.Duration)
		return report, err
	}

	// Stage 1: scan the content tree into a manifest.
	stageStart := time.Now()
	log.Info("Scanning content tree", logfields.Stage("scan"), logfields.Path(r.cfg.Content))
	manifest, err := content.NewScanner(r.cfg.Content).Scan()
	if err != nil {
		return fail("scan", err)
	}
	report.Works = len(manifest.Works)
	r.recorder.ObserveStageDuration("scan", time.Since(stageStart))
	r.recorder.IncStageResult("scan", metrics.ResultSuccess)
	log.Info("Scan complete", logfields.Stage("scan"),
		slog.Int("works", len(manifest.Works)),
		slog.Int("pages", len(manifest.Pages())))

	// Stage 2: diff against the prior state.
	stageStart = time.Now()
	tracker, err := history.NewTracker(r.cfg.Data)
	if err != nil {
		return fail("history", err)
	}
	defer func() {
		if err := tracker.Close(); err != nil {
			log.Warn("Failed to close history tracker", logfields.Error(err))
		}
	}()

	prior, err := tracker.Prior(ctx)
	if err != nil {
		return fail("history", err)
	}
	current := manifest.Pages()
	diff := history.ComputeDiff(current, prior, time.Now())
	r.recorder.ObserveStageDuration("history", time.Since(stageStart))
	r.recorder.IncStageResult("history", metrics.ResultSuccess)
	log.Info("Change detection complete", logfields.Stage("history"),
		slog.Int("prior", len(prior)),
		slog.Int("changes", len(diff.Records)))

	// Stage 3: render every page.
	stageStart = time.Now()
	if err := ctx.Err(); err != nil {
		return fail("render", err)
	}
	pages := r.renderAll(manifest, diff, report)
	r.recorder.ObserveStageDuration("render", time.Since(stageStart))
	r.recorder.IncStageResult("render", metrics.ResultSuccess)
	log.Info("Rendering complete", logfields.Stage("render"),
		slog.Int("pages", len(pages)),
		slog.Int("warnings", len(report.Warnings)))

	// Stage 4: assemble the output tree.
	stageStart = time.Now()
	assembler := assemble.New(r.cfg.Content, r.cfg.Output)
	result, err := assembler.Publish(manifest, pages)
	if result != nil {
		report.Published = len(result.Published)
		report.Failures = result.Failed
	}
	if err != nil {
		return fail("assemble", err)
	}
	r.recorder.ObserveStageDuration("assemble", time.Since(stageStart))
	r.recorder.IncStageResult("assemble", metrics.ResultSuccess)

	// Stage 5: commit history, but only for a fully successful assembly. A
	// partially written run is left uncommitted so the next run retries every
	// changed page.
	if len(report.Failures) == 0 {
		stageStart = time.Now()
		if err := tracker.Commit(ctx, current, diff); err != nil {
			return fail("commit", err)
		}
		report.Appended = len(diff.Records)
		r.recorder.ObserveStageDuration("commit", time.Since(stageStart))
		r.recorder.IncStageResult("commit", metrics.ResultSuccess)
	} else {
		log.Warn("Skipping history commit, some pages failed to assemble",
			logfields.Stage("commit"), slog.Int("failed", len(report.Failures)))
	}

	switch {
	case len(report.Failures) > 0:
		report.Outcome = OutcomeFailed
	case len(report.Warnings) > 0:
		report.Outcome = OutcomeWarning
	default:
		report.Outcome = OutcomeSuccess
	}
	report.Duration = time.Since(start)
	r.recorder.IncRunOutcome(string(report.Outcome))
	r.recorder.ObserveRunDuration(report.Duration)

	log.Info("Publish run complete",
		logfields.Kind(string(report.Outcome)),
		slog.Int("published", report.Published),
		slog.Int("appended", report.Appended),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

// renderAll renders the site index, every work index, and every chapter,
// spreading chapter pages over a bounded worker pool. Render warnings are
// collected on the report.
func (r *Runner) renderAll(m *content.Manifest, diff history.Diff, report *Report) []render.Page {
	renderer := render.New(render.Site{
		Title:   r.cfg.Site.Title,
		Origin:  r.cfg.Site.Origin,
		Twitter: r.cfg.Site.Twitter,
		Lang:    r.cfg.Site.Lang,
	})
	dates := render.Dates{Pages: diff.Dates, Site: diff.SiteTime}

	type task func() render.Page
	var tasks []task
	tasks = append(tasks, func() render.Page { return renderer.SiteIndex(m, dates) })
	for _, w := range m.Works {
		w := w
		tasks = append(tasks, func() render.Page { return renderer.WorkIndex(m, w, dates) })
		for _, ch := range w.Chapters {
			ch := ch
			tasks = append(tasks, func() render.Page { return renderer.Chapter(m, w, ch, dates) })
		}
	}

	workers := r.cfg.Build.RenderConcurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	r.recorder.SetRenderConcurrency(workers)

	pages := make([]render.Page, len(tasks))
	indexes := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				pages[i] = tasks[i]()
			}
		}()
	}
	for i := range tasks {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	for _, p := range pages {
		if p.Warning != nil {
			report.Warnings = append(report.Warnings, p.Warning)
			r.recorder.IncPageResult(metrics.ResultWarning)
			slog.Warn("Page published degraded", logfields.Page(p.Path), logfields.Error(p.Warning))
		} else {
			r.recorder.IncPageResult(metrics.ResultSuccess)
		}
	}
	return pages
}

// Summary renders the report as operator-facing lines.
func (report *Report) Summary() string {
	s := fmt.Sprintf("run %s: %s, %d works, %d pages published, %d history records appended in %s",
		report.RunID, report.Outcome, report.Works, report.Published, report.Appended,
		report.Duration.Round(time.Millisecond))
	for _, w := range report.Warnings {
		s += fmt.Sprintf("\n  warning: %v", w)
	}
	for _, f := range report.Failures {
		s += fmt.Sprintf("\n  failed: %s: %v", f.Path, f.Err)
	}
	return s
}
