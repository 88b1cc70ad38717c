package output

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/downloader"
	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/brogergvhs/chapterdl/internal/util"
)

// CBZ zips the original page bytes as page_001.ext, page_002.ext, ...
type CBZ struct {
	fetch ImageFetcher
	opts  Options
}

func NewCBZ(fetch ImageFetcher, opts Options) *CBZ {
	return &CBZ{fetch: fetch, opts: opts}
}

func (c *CBZ) Name() string { return ModeCBZ }

func (c *CBZ) Artifact(ch chapters.Chapter) string {
	return filepath.Join(c.opts.Root, ch.CBZName())
}

func (c *CBZ) Assemble(ctx context.Context, ch chapters.Chapter, rec providers.ChapterRecord, p downloader.Progress) (Report, error) {
	assets, rep, err := fetchAssets(ctx, c.fetch, c.opts, ch, rec, p)
	if err != nil {
		return rep, err
	}

	entries := make([]util.ArchiveEntry, len(assets))
	for i, a := range assets {
		entries[i] = util.ArchiveEntry{
			Name: fmt.Sprintf("page_%03d%s", i+1, a.Ext()),
			Data: a.Data,
		}
	}

	rep.Path = c.Artifact(ch)
	if err := util.CreateCBZ(entries, rep.Path); err != nil {
		return rep, err
	}

	return rep, nil
}

func (c *CBZ) Finalize([]providers.ChapterRecord) error { return nil }
