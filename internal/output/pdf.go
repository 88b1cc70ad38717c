package output

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/downloader"
	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/brogergvhs/chapterdl/internal/util"

	"github.com/signintech/gopdf"
)

// pixels at 96 dpi to PDF points
const pxToPt = 72.0 / 96.0

// PDF writes one "Chapter {n}.pdf" per chapter, one page per image.
type PDF struct {
	fetch ImageFetcher
	opts  Options
}

func NewPDF(fetch ImageFetcher, opts Options) *PDF {
	return &PDF{fetch: fetch, opts: opts}
}

func (d *PDF) Name() string { return ModePDF }

func (d *PDF) Artifact(ch chapters.Chapter) string {
	return filepath.Join(d.opts.Root, ch.PDFName())
}

func (d *PDF) Assemble(ctx context.Context, ch chapters.Chapter, rec providers.ChapterRecord, p downloader.Progress) (Report, error) {
	assets, rep, err := fetchAssets(ctx, d.fetch, d.opts, ch, rec, p)
	if err != nil {
		return rep, err
	}

	rep.Path = d.Artifact(ch)
	d.opts.Log.Debugf("Creating PDF with %d pages: %s", len(assets), rep.Path)

	if err := util.WriteAtomic(rep.Path, func(w io.Writer) error {
		return EncodePDF(assets, w)
	}); err != nil {
		return rep, fmt.Errorf("%s: %w", ch.PDFName(), err)
	}

	return rep, nil
}

func (d *PDF) Finalize([]providers.ChapterRecord) error { return nil }

// EncodePDF writes the images, in order, as pages sized to each image.
func EncodePDF(assets []ImageAsset, w io.Writer) error {
	if len(assets) == 0 {
		return providers.ErrNoImages
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: *gopdf.PageSizeA4})

	for i, a := range assets {
		if err := addPDFPage(&pdf, a); err != nil {
			return fmt.Errorf("page %d (%s): %w", i+1, a.Name, err)
		}
	}

	_, err := pdf.WriteTo(w)
	return err
}

// placeImage draws data over the whole current page. Tests replace it.
var placeImage = func(pdf *gopdf.GoPdf, data []byte, rect *gopdf.Rect) error {
	holder, err := gopdf.ImageHolderByBytes(data)
	if err != nil {
		return err
	}
	return pdf.ImageByHolder(holder, 0, 0, rect)
}

// addPDFPage adds one page sized to the image. A JPEG that gopdf rejects is
// re-encoded once and placed again on the same page.
func addPDFPage(pdf *gopdf.GoPdf, a ImageAsset) error {
	converted := a.Format != FormatJPEG

	a, err := normalize(a, FormatJPEG)
	if err != nil {
		return err
	}

	wpx, hpx, err := imageSize(a.Data)
	if err != nil && !converted {
		if a, err = normalize(a); err == nil {
			converted = true
			wpx, hpx, err = imageSize(a.Data)
		}
	}
	if err != nil {
		return err
	}

	rect := &gopdf.Rect{W: float64(wpx) * pxToPt, H: float64(hpx) * pxToPt}
	pdf.AddPageWithOption(gopdf.PageOption{PageSize: rect})

	err = placeImage(pdf, a.Data, rect)
	if err == nil || converted {
		return err
	}

	forced, rerr := normalize(a)
	if rerr != nil {
		return fmt.Errorf("%w (re-encode: %v)", err, rerr)
	}

	return placeImage(pdf, forced.Data, rect)
}
