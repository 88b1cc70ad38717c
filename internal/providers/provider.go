package providers

import (
	"context"
	"errors"
)

var (
	// ErrNoChapters means the listing page matched no chapter links.
	ErrNoChapters = errors.New("no chapter links found")
	// ErrNoImages means a chapter page matched no page images.
	ErrNoImages = errors.New("no page images found")
)

type Chapter struct {
	URL       string
	Number    int
	HasNumber bool
	Order     int // position of first appearance on the listing page
}

// ChapterRecord is what a chapter page yields. The JSON form is the
// metadata sidecar schema.
type ChapterRecord struct {
	URL    string   `json:"url"`
	Title  string   `json:"title"`
	Images []string `json:"images"`
}

type Source interface {
	GetChapters(ctx context.Context, indexURL string) ([]Chapter, error)
	GetChapter(ctx context.Context, chapterURL string) (ChapterRecord, error)
}
