package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/brogergvhs/chapterdl/internal/util"
)

// Progress receives page-level updates for one chapter.
type Progress interface {
	SetTotal(total int)
	Update(done, total int, bytes int64)
	MarkDone()
	Abort()
}

type nopProgress struct{}

func (nopProgress) SetTotal(int) {}
func (nopProgress) Update(int, int, int64) {}
func (nopProgress) MarkDone() {}
func (nopProgress) Abort() {}

// NopProgress discards all updates.
var NopProgress Progress = nopProgress{}

const DefaultTimeout = 30 * time.Second

// Downloader fetches page images one request at a time.
type Downloader struct {
	client  *http.Client
	timeout time.Duration
}

func New(c *http.Client, timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Downloader{
		client:  c,
		timeout: timeout,
	}
}

// Fetch returns the image body in memory.
func (d *Downloader) Fetch(ctx context.Context, url, referer string, progress func(done int64)) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.get(ctx, url, referer, &buf, progress); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save streams the image to output. Nothing is left at output on failure.
func (d *Downloader) Save(ctx context.Context, url, referer, output string, progress func(done int64)) (int64, error) {
	var written int64
	err := util.WriteAtomic(output, func(w io.Writer) error {
		n, err := d.get(ctx, url, referer, w, progress)
		written = n
		return err
	})
	return written, err
}

func (d *Downloader) get(
	ctx context.Context,
	u, referer string,
	dst io.Writer,
	progress func(done int64),
) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); strings.HasPrefix(mt, "text/") {
			return 0, fmt.Errorf("unexpected MIME: %s", ct)
		}
	}

	written, err := copyWithProgress(dst, resp.Body, progress)
	if err != nil {
		return written, err
	}
	if written == 0 {
		return 0, fmt.Errorf("empty response body")
	}

	return written, nil
}
