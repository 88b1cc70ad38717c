package output

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/downloader"
	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/brogergvhs/chapterdl/internal/util"

	"github.com/go-shiori/go-epub"
)

// EPUB writes one book per chapter with a single section holding all pages.
type EPUB struct {
	fetch ImageFetcher
	opts  Options
}

func NewEPUB(fetch ImageFetcher, opts Options) *EPUB {
	return &EPUB{fetch: fetch, opts: opts}
}

func (e *EPUB) Name() string { return ModeEPUB }

func (e *EPUB) Artifact(ch chapters.Chapter) string {
	return filepath.Join(e.opts.Root, ch.EPUBName())
}

func (e *EPUB) Assemble(ctx context.Context, ch chapters.Chapter, rec providers.ChapterRecord, p downloader.Progress) (Report, error) {
	assets, rep, err := fetchAssets(ctx, e.fetch, e.opts, ch, rec, p)
	if err != nil {
		return rep, err
	}

	rep.Path = e.Artifact(ch)
	if err := writeEPUB(rep.Path, ch.DisplayName(), rec, assets); err != nil {
		return rep, fmt.Errorf("%s: %w", ch.EPUBName(), err)
	}

	return rep, nil
}

func (e *EPUB) Finalize([]providers.ChapterRecord) error { return nil }

func writeEPUB(path, name string, rec providers.ChapterRecord, assets []ImageAsset) error {
	title := name
	if rec.Title != "" && rec.Title != "Unknown" {
		title = rec.Title
	}

	book, err := epub.NewEpub(title)
	if err != nil {
		return err
	}
	book.SetLang("en")
	book.SetDescription(rec.URL)

	var body strings.Builder
	fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(title))

	for i, a := range assets {
		a, err := normalize(a, FormatJPEG, FormatPNG, FormatGIF)
		if err != nil {
			return err
		}

		src := "data:" + a.MIME() + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
		internal, err := book.AddImage(src, fmt.Sprintf("page_%03d%s", i+1, a.Ext()))
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		fmt.Fprintf(&body, `<div class="page"><img src="%s" alt="Page %d"/></div>`+"\n", internal, i+1)
	}

	if _, err := book.AddSection(body.String(), title, "", ""); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := util.BeginPart(path)
	return util.FinishPart(tmp, path, book.Write(tmp))
}
