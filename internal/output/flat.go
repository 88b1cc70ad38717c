package output

import (
	"context"
	"path/filepath"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/downloader"
	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/brogergvhs/chapterdl/internal/util"
)

// Flat writes every page as its own file under <root>/<chapter dir>/ and a
// JSON metadata file for the whole run.
type Flat struct {
	fetch ImageFetcher
	opts  Options
}

func NewFlat(fetch ImageFetcher, opts Options) *Flat {
	return &Flat{fetch: fetch, opts: opts}
}

func (f *Flat) Name() string { return ModeFlat }

func (f *Flat) Artifact(chapters.Chapter) string { return "" }

func (f *Flat) Assemble(ctx context.Context, ch chapters.Chapter, rec providers.ChapterRecord, p downloader.Progress) (Report, error) {
	dir := filepath.Join(f.opts.Root, ch.DirName())
	rep := Report{Path: dir}
	total := len(rec.Images)
	p.SetTotal(total)

	for i, u := range rec.Images {
		name := chapters.ImageFilename(u, ch.Index, i+1)
		path := filepath.Join(dir, name)

		if util.Exists(path) {
			f.opts.Log.Debugf("  [%d/%d] Already exists: %s", i+1, total, name)
			rep.Skipped++
			p.Update(i+1, total, rep.Bytes)
			continue
		}

		f.opts.Log.Debugf("  [%d/%d] Downloading: %s", i+1, total, name)
		base := rep.Bytes
		n, err := f.fetch.Save(ctx, u, rec.URL, path, func(done int64) {
			p.Update(i, total, base+done)
		})
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			f.opts.Log.Warnf("%s: page %d/%d (%s): %v", ch.DisplayName(), i+1, total, u, err)
			rep.Failed++
		} else {
			rep.Pages++
			rep.Bytes += n
		}
		p.Update(i+1, total, rep.Bytes)

		if err := util.Sleep(ctx, f.opts.ImageDelay); err != nil {
			return rep, err
		}
	}

	return rep, nil
}

func (f *Flat) Finalize(records []providers.ChapterRecord) error {
	path := filepath.Join(f.opts.Root, f.opts.MetadataFile)
	if err := WriteMetadata(path, records); err != nil {
		return err
	}

	f.opts.Log.Infof("Metadata saved to: %s", path)
	return nil
}
