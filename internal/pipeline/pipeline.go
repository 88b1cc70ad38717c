// Package pipeline runs chapters through a Source and an Assembler, one
// request at a time, and reports a tagged result per chapter.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/downloader"
	"github.com/brogergvhs/chapterdl/internal/output"
	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/brogergvhs/chapterdl/internal/util"
)

type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
	Warnf(string, ...any)
	Errorf(string, ...any)
}

type Options struct {
	IndexURL     string
	Root         string
	Selection    chapters.Selection
	ChapterDelay time.Duration
	// NewProgress returns the progress sink for one chapter; nil disables it.
	NewProgress func(label string) downloader.Progress
}

type Runner struct {
	src  providers.Source
	asm  output.Assembler
	log  Logger
	opts Options
}

func New(src providers.Source, asm output.Assembler, log Logger, opts Options) *Runner {
	return &Runner{src: src, asm: asm, log: log, opts: opts}
}

// Chapters fetches the listing and applies the selection. Any error here
// is fatal for a run.
func (r *Runner) Chapters(ctx context.Context) ([]chapters.Chapter, error) {
	r.log.Infof("Fetching chapter list from %s", r.opts.IndexURL)

	raw, err := r.src.GetChapters(ctx, r.opts.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("chapter listing: %w", err)
	}

	all := chapters.Wrap(raw)
	r.log.Infof("Found %d chapters", len(all))

	selected, err := chapters.Filter(all, r.opts.Selection)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, errors.New("no chapters selected")
	}
	if len(selected) != len(all) {
		r.log.Infof("Selected %d of %d chapters", len(selected), len(all))
	}

	return selected, nil
}

// Run processes every selected chapter. The returned error is non-nil only
// for fatal failures; per-chapter failures are in the Summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Mode: r.asm.Name(), Root: r.opts.Root}

	if err := os.MkdirAll(r.opts.Root, 0755); err != nil {
		return summary, fmt.Errorf("cannot create output folder: %w", err)
	}

	list, err := r.Chapters(ctx)
	if err != nil {
		return summary, err
	}

	var records []providers.ChapterRecord

	for i, ch := range list {
		r.log.Infof("[%d/%d] %s", i+1, len(list), ch.DisplayName())

		res, rec := r.processChapter(ctx, ch)
		if rec.URL != "" {
			records = append(records, rec)
		}
		summary.Add(res)
		r.logResult(res)

		if res.Status == StatusFatal {
			summary.Elapsed = time.Since(start)
			return summary, res.Err
		}

		if res.Fetched && i < len(list)-1 {
			if err := util.Sleep(ctx, r.opts.ChapterDelay); err != nil {
				summary.Elapsed = time.Since(start)
				return summary, err
			}
		}
	}

	if err := r.asm.Finalize(records); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

func (r *Runner) processChapter(ctx context.Context, ch chapters.Chapter) (Result, providers.ChapterRecord) {
	res := Result{Chapter: ch}

	if path := r.asm.Artifact(ch); path != "" && util.Exists(path) {
		res.Status = StatusSkipped
		res.Path = path
		return res, providers.ChapterRecord{}
	}

	rec, err := r.src.GetChapter(ctx, ch.URL)
	res.Fetched = true
	res.Title = rec.Title
	if err != nil {
		return r.fail(ctx, res, err), rec
	}

	r.log.Infof("  Title: %s", rec.Title)
	r.log.Infof("  Pages: %d", len(rec.Images))

	p := r.progress(ch)
	rep, err := r.asm.Assemble(ctx, ch, rec, p)
	res.Path = rep.Path
	res.Pages = rep.Pages
	res.FailedPages = rep.Failed
	res.SkippedPages = rep.Skipped
	res.Bytes = rep.Bytes

	if err != nil {
		p.Abort()
		return r.fail(ctx, res, err), rec
	}
	p.MarkDone()

	switch {
	case rep.Pages == 0 && rep.Skipped > 0 && rep.Failed == 0:
		res.Status = StatusSkipped
	case rep.Pages == 0 && rep.Skipped == 0:
		res.Status = StatusFailed
		res.Err = fmt.Errorf("all %d images failed: %w", rep.Failed, providers.ErrNoImages)
	default:
		res.Status = StatusSaved
	}

	return res, rec
}

func (r *Runner) fail(ctx context.Context, res Result, err error) Result {
	res.Err = err
	res.Status = StatusFailed
	if ctx.Err() != nil {
		res.Status = StatusFatal
		res.Err = ctx.Err()
	}
	return res
}

func (r *Runner) progress(ch chapters.Chapter) downloader.Progress {
	if r.opts.NewProgress == nil {
		return downloader.NopProgress
	}
	if p := r.opts.NewProgress(ch.DisplayName()); p != nil {
		return p
	}
	return downloader.NopProgress
}

func (r *Runner) logResult(res Result) {
	switch res.Status {
	case StatusSkipped:
		r.log.Infof("  Already exists: %s", res.Path)
	case StatusSaved:
		if res.FailedPages > 0 {
			r.log.Warnf("  Saved %d pages, %d failed: %s", res.Pages, res.FailedPages, res.Path)
		} else {
			r.log.Infof("  Saved %d pages: %s", res.Pages, res.Path)
		}
	case StatusFailed:
		r.log.Errorf("  %s failed: %v", res.Chapter.DisplayName(), res.Err)
	case StatusFatal:
		r.log.Errorf("  %s aborted: %v", res.Chapter.DisplayName(), res.Err)
	}
}
