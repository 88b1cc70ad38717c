package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/downloader"
	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/signintech/gopdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLog struct{}

func (nopLog) Debugf(string, ...any) {}
func (nopLog) Infof(string, ...any) {}
func (nopLog) Warnf(string, ...any) {}

// fakeFetcher serves in-memory bodies by URL and counts requests.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  map[string]int
}

func newFakeFetcher(bodies map[string][]byte) *fakeFetcher {
	return &fakeFetcher{bodies: bodies, calls: map[string]int{}}
}

func (f *fakeFetcher) get(url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++

	b, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("HTTP 404")
	}
	return b, nil
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) Fetch(_ context.Context, url, _ string, progress func(int64)) ([]byte, error) {
	b, err := f.get(url)
	if err == nil && progress != nil {
		progress(int64(len(b)))
	}
	return b, err
}

func (f *fakeFetcher) Save(_ context.Context, url, _, output string, _ func(int64)) (int64, error) {
	b, err := f.get(url)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return 0, err
	}
	return int64(len(b)), os.WriteFile(output, b, 0644)
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func chapter(n, index int) chapters.Chapter {
	return chapters.Chapter{
		Chapter: providers.Chapter{
			URL:       fmt.Sprintf("https://site/manga/black-clover-chapter-%d", n),
			Number:    n,
			HasNumber: true,
		},
		Index: index,
	}
}

func record(ch chapters.Chapter, images ...string) providers.ChapterRecord {
	if images == nil {
		images = []string{}
	}
	return providers.ChapterRecord{URL: ch.URL, Title: ch.DisplayName(), Images: images}
}

func testOpts(root string) Options {
	return Options{Root: root, MetadataFile: DefaultMetadataFile, Log: nopLog{}}
}

func TestNew_Modes(t *testing.T) {
	for _, m := range Modes {
		a, err := New(m, newFakeFetcher(nil), testOpts(t.TempDir()))
		require.NoError(t, err)
		assert.Equal(t, m, a.Name())
	}

	a, err := New("PDF", newFakeFetcher(nil), testOpts(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, ModePDF, a.Name())

	_, err = New("mobi", newFakeFetcher(nil), testOpts(t.TempDir()))
	assert.Error(t, err)
}

func TestFlat_WritesPagesAndSkipsExisting(t *testing.T) {
	root := t.TempDir()
	ch := chapter(2, 1)
	urls := []string{
		"https://cdn/manga/Black-Clover/0002-001.png",
		"https://cdn/manga/Black-Clover/0002-002.png",
	}
	fetch := newFakeFetcher(map[string][]byte{
		urls[0]: []byte("page-one"),
		urls[1]: []byte("page-two"),
	})
	flat := NewFlat(fetch, testOpts(root))

	rep, err := flat.Assemble(context.Background(), ch, record(ch, urls...), downloader.NopProgress)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Pages)
	assert.Equal(t, int64(16), rep.Bytes)
	assert.Equal(t, filepath.Join(root, "chapter_2"), rep.Path)

	first := filepath.Join(root, "chapter_2", "0002-001.png")
	b, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "page-one", string(b))

	// existing files are left untouched and not requested again
	require.NoError(t, os.WriteFile(first, []byte("local"), 0644))
	before := fetch.total()

	rep, err = flat.Assemble(context.Background(), ch, record(ch, urls...), downloader.NopProgress)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Pages)
	assert.Equal(t, 2, rep.Skipped)
	assert.Equal(t, before, fetch.total())

	b, err = os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "local", string(b))
}

func TestFlat_FailedImageDoesNotStopChapter(t *testing.T) {
	root := t.TempDir()
	ch := chapter(3, 1)
	fetch := newFakeFetcher(map[string][]byte{
		"https://cdn/manga/Black-Clover/0003-002.png": []byte("ok"),
	})

	rep, err := NewFlat(fetch, testOpts(root)).Assemble(context.Background(), ch, record(ch,
		"https://cdn/manga/Black-Clover/0003-001.png",
		"https://cdn/manga/Black-Clover/0003-002.png",
	), downloader.NopProgress)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Pages)
	assert.Equal(t, 1, rep.Failed)
	assert.NoFileExists(t, filepath.Join(root, "chapter_3", "0003-001.png"))
	assert.FileExists(t, filepath.Join(root, "chapter_3", "0003-002.png"))
}

func TestFlat_SameNameInDifferentChapters(t *testing.T) {
	root := t.TempDir()
	fetch := newFakeFetcher(map[string][]byte{
		"https://cdn/c1/page01.png": []byte("one"),
		"https://cdn/c2/page01.png": []byte("two"),
	})
	flat := NewFlat(fetch, testOpts(root))

	c1, c2 := chapter(1, 1), chapter(2, 2)
	_, err := flat.Assemble(context.Background(), c1, record(c1, "https://cdn/c1/page01.png"), downloader.NopProgress)
	require.NoError(t, err)
	_, err = flat.Assemble(context.Background(), c2, record(c2, "https://cdn/c2/page01.png"), downloader.NopProgress)
	require.NoError(t, err)

	b1, _ := os.ReadFile(filepath.Join(root, "chapter_1", "page01.png"))
	b2, _ := os.ReadFile(filepath.Join(root, "chapter_2", "page01.png"))
	assert.Equal(t, "one", string(b1))
	assert.Equal(t, "two", string(b2))
}

func TestMetadata_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultMetadataFile)
	records := []providers.ChapterRecord{
		{URL: "https://site/c-1", Title: "Chapter 1 <Astaの誓い> & more", Images: []string{"https://cdn/1.png"}},
		{URL: "https://site/c-2", Title: "Unknown"},
	}

	require.NoError(t, WriteMetadata(path, records))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(b)

	assert.True(t, strings.HasPrefix(s, "[\n  {\n    \"url\": "))
	assert.Contains(t, s, "<Astaの誓い> & more")
	assert.Contains(t, s, `"images": []`)

	got, err := ReadMetadata(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[0], got[0])
	assert.Equal(t, []string{}, got[1].Images)
}

func TestMetadata_EmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, WriteMetadata(path, nil))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(b))
}

func TestFlat_FinalizeWritesMetadata(t *testing.T) {
	root := t.TempDir()
	flat := NewFlat(newFakeFetcher(nil), testOpts(root))

	require.NoError(t, flat.Finalize([]providers.ChapterRecord{{URL: "u", Title: "t", Images: []string{}}}))
	assert.FileExists(t, filepath.Join(root, DefaultMetadataFile))
}

func TestPDF_Assemble(t *testing.T) {
	root := t.TempDir()
	ch := chapter(10, 2)
	fetch := newFakeFetcher(map[string][]byte{
		"https://cdn/a/page-001.png": pngImage(t, 40, 60),
		"https://cdn/a/page-002.jpg": jpegImage(t, 30, 50),
	})
	pdf := NewPDF(fetch, testOpts(root))

	assert.Equal(t, filepath.Join(root, "Chapter 10.pdf"), pdf.Artifact(ch))

	rep, err := pdf.Assemble(context.Background(), ch, record(ch,
		"https://cdn/a/page-001.png",
		"https://cdn/a/page-404.png",
		"https://cdn/a/page-002.jpg",
	), downloader.NopProgress)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Pages)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, pdf.Artifact(ch), rep.Path)

	b, err := os.ReadFile(rep.Path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
	assert.NoFileExists(t, rep.Path+".part")
}

func TestPDF_NoImagesWritesNothing(t *testing.T) {
	root := t.TempDir()
	ch := chapter(5, 1)
	pdf := NewPDF(newFakeFetcher(nil), testOpts(root))

	_, err := pdf.Assemble(context.Background(), ch, record(ch, "https://cdn/missing.png"), downloader.NopProgress)
	require.Error(t, err)
	assert.True(t, errors.Is(err, providers.ErrNoImages))
	assert.NoFileExists(t, pdf.Artifact(ch))

	_, err = pdf.Assemble(context.Background(), ch, record(ch), downloader.NopProgress)
	assert.True(t, errors.Is(err, providers.ErrNoImages))
	assert.NoFileExists(t, pdf.Artifact(ch))
}

func TestEncodePDF_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := EncodePDF(nil, &buf)
	assert.ErrorIs(t, err, providers.ErrNoImages)
	assert.Zero(t, buf.Len())
}

func TestCBZ_Assemble(t *testing.T) {
	root := t.TempDir()
	ch := chapter(7, 1)
	pngData := pngImage(t, 4, 4)
	jpgData := jpegImage(t, 4, 4)
	fetch := newFakeFetcher(map[string][]byte{
		"https://cdn/x/first.png":  pngData,
		"https://cdn/x/second.jpg": jpgData,
	})
	cbz := NewCBZ(fetch, testOpts(root))

	rep, err := cbz.Assemble(context.Background(), ch, record(ch, "https://cdn/x/first.png", "https://cdn/x/second.jpg"), downloader.NopProgress)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Chapter 7.cbz"), rep.Path)

	entries := readZip(t, rep.Path)
	require.Len(t, entries, 2)
	assert.Equal(t, "page_001.png", entries[0].name)
	assert.Equal(t, pngData, entries[0].data)
	assert.Equal(t, "page_002.jpg", entries[1].name)
	assert.Equal(t, jpgData, entries[1].data)
}

func TestEPUB_Assemble(t *testing.T) {
	root := t.TempDir()
	ch := chapter(1, 1)
	fetch := newFakeFetcher(map[string][]byte{
		"https://cdn/x/first.png": pngImage(t, 8, 8),
	})
	book := NewEPUB(fetch, testOpts(root))

	rep, err := book.Assemble(context.Background(), ch, record(ch, "https://cdn/x/first.png"), downloader.NopProgress)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Chapter 1.epub"), rep.Path)

	names := make([]string, 0)
	for _, e := range readZip(t, rep.Path) {
		names = append(names, e.name)
	}
	assert.Contains(t, names, "mimetype")
	assert.NoFileExists(t, rep.Path+".part")
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatPNG, detectFormat(pngImage(t, 1, 1)))
	assert.Equal(t, FormatJPEG, detectFormat(jpegImage(t, 1, 1)))
	assert.Equal(t, FormatGIF, detectFormat([]byte("GIF89a....")))
	assert.Equal(t, FormatWEBP, detectFormat([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "", detectFormat([]byte("<html>")))

	assert.Equal(t, ".img", ImageAsset{}.Ext())
	assert.Equal(t, "image/png", ImageAsset{Format: FormatPNG}.MIME())
}

func TestNormalize(t *testing.T) {
	a := newImageAsset("u", "p.png", pngImage(t, 12, 9))

	kept, err := normalize(a, FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, a.Data, kept.Data)

	conv, err := normalize(a, FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, conv.Format)
	assert.Equal(t, FormatJPEG, detectFormat(conv.Data))

	w, h, err := imageSize(conv.Data)
	require.NoError(t, err)
	assert.Equal(t, 12, w)
	assert.Equal(t, 9, h)

	_, err = normalize(newImageAsset("u", "bad", []byte("not an image")), FormatJPEG)
	assert.Error(t, err)
}

func TestFlat_PausesAfterEachImage(t *testing.T) {
	root := t.TempDir()
	ch := chapter(4, 1)
	fetch := newFakeFetcher(map[string][]byte{
		"https://cdn/x/page-001.png": []byte("one"),
		"https://cdn/x/page-002.png": []byte("two"),
	})
	opts := testOpts(root)
	opts.ImageDelay = 40 * time.Millisecond

	start := time.Now()
	rep, err := NewFlat(fetch, opts).Assemble(context.Background(), ch,
		record(ch, "https://cdn/x/page-001.png", "https://cdn/x/page-002.png"), downloader.NopProgress)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Pages)
	assert.GreaterOrEqual(t, time.Since(start), 2*opts.ImageDelay)
}

func TestFetchAssets_PauseStopsOnCancel(t *testing.T) {
	ch := chapter(4, 1)
	fetch := newFakeFetcher(map[string][]byte{"https://cdn/x/page-001.png": pngImage(t, 2, 2)})
	opts := testOpts(t.TempDir())
	opts.ImageDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := fetchAssets(ctx, fetch, opts, ch, record(ch, "https://cdn/x/page-001.png"), downloader.NopProgress)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestEncodePDF_ReencodesRejectedJPEG(t *testing.T) {
	orig := placeImage
	t.Cleanup(func() { placeImage = orig })

	src := jpegImage(t, 20, 30)
	var seen [][]byte
	placeImage = func(pdf *gopdf.GoPdf, data []byte, rect *gopdf.Rect) error {
		seen = append(seen, data)
		if len(seen) == 1 {
			return errors.New("unsupported jpeg")
		}
		return orig(pdf, data, rect)
	}

	var buf bytes.Buffer
	err := EncodePDF([]ImageAsset{newImageAsset("u", "page.jpg", src)}, &buf)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, src, seen[0])
	assert.NotEqual(t, src, seen[1])
	assert.Equal(t, FormatJPEG, detectFormat(seen[1]))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestEncodePDF_ConvertedImageIsNotRetried(t *testing.T) {
	orig := placeImage
	t.Cleanup(func() { placeImage = orig })

	calls := 0
	placeImage = func(*gopdf.GoPdf, []byte, *gopdf.Rect) error {
		calls++
		return errors.New("rejected")
	}

	err := EncodePDF([]ImageAsset{newImageAsset("u", "page.png", pngImage(t, 4, 4))}, io.Discard)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
