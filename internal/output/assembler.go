// Package output turns the page images of one chapter into artifacts:
// loose files with a metadata sidecar, or one document per chapter.
package output

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/downloader"
	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/brogergvhs/chapterdl/internal/util"
)

const (
	ModeFlat = "flat"
	ModePDF  = "pdf"
	ModeCBZ  = "cbz"
	ModeEPUB = "epub"
)

var Modes = []string{ModeFlat, ModePDF, ModeCBZ, ModeEPUB}

type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
	Warnf(string, ...any)
}

// ImageFetcher is the part of downloader.Downloader the assemblers use.
type ImageFetcher interface {
	Fetch(ctx context.Context, url, referer string, progress func(done int64)) ([]byte, error)
	Save(ctx context.Context, url, referer, output string, progress func(done int64)) (int64, error)
}

// Report describes what Assemble did for one chapter.
type Report struct {
	Path    string
	Pages   int // images written or encoded
	Failed  int // images that could not be fetched
	Skipped int // images already on disk
	Bytes   int64
}

type Assembler interface {
	Name() string
	// Artifact is the chapter's output path when the mode writes a single
	// file per chapter, "" otherwise.
	Artifact(ch chapters.Chapter) string
	Assemble(ctx context.Context, ch chapters.Chapter, rec providers.ChapterRecord, p downloader.Progress) (Report, error)
	// Finalize runs once after the last chapter with every record scraped.
	Finalize(records []providers.ChapterRecord) error
}

type Options struct {
	Root         string
	MetadataFile string
	ImageDelay   time.Duration
	Log          Logger
}

func New(mode string, fetch ImageFetcher, opts Options) (Assembler, error) {
	if opts.MetadataFile == "" {
		opts.MetadataFile = DefaultMetadataFile
	}

	switch strings.ToLower(mode) {
	case ModeFlat:
		return NewFlat(fetch, opts), nil
	case ModePDF:
		return NewPDF(fetch, opts), nil
	case ModeCBZ:
		return NewCBZ(fetch, opts), nil
	case ModeEPUB:
		return NewEPUB(fetch, opts), nil
	default:
		return nil, fmt.Errorf("unknown output mode %q (want one of %s)", mode, strings.Join(Modes, ", "))
	}
}

// fetchAssets downloads every image of rec into memory, skipping failures.
// It fails with providers.ErrNoImages when nothing survives.
func fetchAssets(
	ctx context.Context,
	fetch ImageFetcher,
	opts Options,
	ch chapters.Chapter,
	rec providers.ChapterRecord,
	p downloader.Progress,
) ([]ImageAsset, Report, error) {
	var rep Report
	total := len(rec.Images)
	assets := make([]ImageAsset, 0, total)
	p.SetTotal(total)

	for i, u := range rec.Images {
		base := rep.Bytes
		data, err := fetch.Fetch(ctx, u, rec.URL, func(done int64) {
			p.Update(i, total, base+done)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, rep, ctx.Err()
			}
			opts.Log.Warnf("%s: page %d/%d: %v", ch.DisplayName(), i+1, total, err)
			rep.Failed++
		} else {
			assets = append(assets, newImageAsset(u, chapters.ImageFilename(u, ch.Index, i+1), data))
			rep.Bytes += int64(len(data))
		}
		p.Update(i+1, total, rep.Bytes)

		if err := util.Sleep(ctx, opts.ImageDelay); err != nil {
			return nil, rep, err
		}
	}

	if len(assets) == 0 {
		return nil, rep, fmt.Errorf("%s: all %d downloads failed: %w", ch.DisplayName(), total, providers.ErrNoImages)
	}

	rep.Pages = len(assets)
	return assets, rep, nil
}
