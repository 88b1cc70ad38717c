package generic

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/chapterdl/internal/providers"
	"github.com/brogergvhs/chapterdl/internal/util"
)

// ContractVersion changes whenever the markup assumptions below change.
const ContractVersion = 1

// Contract lists every assumption the scraper makes about the site markup.
type Contract struct {
	Version        int
	ChapterMarker  string   // substring of a chapter link href
	ChapterPattern string   // regexp, first group is the chapter number
	ImageMatch     []string // substrings of a page image src
	TitleSelector  string
}

func DefaultContract() Contract {
	return Contract{
		Version:        ContractVersion,
		ChapterMarker:  "/manga/black-clover-chapter-",
		ChapterPattern: `chapter-(\d+)`,
		ImageMatch:     []string{"planeptune.us/manga/Black-Clover/"},
		TitleSelector:  "h1",
	}
}

func (c Contract) String() string {
	return fmt.Sprintf("v%d marker=%q pattern=%q images=%q title=%q",
		c.Version, c.ChapterMarker, c.ChapterPattern, c.ImageMatch, c.TitleSelector)
}

type Logger interface {
	Debugf(string, ...any)
}

type Scraper struct {
	client    *http.Client
	log       Logger
	contract  Contract
	chapterRe *regexp.Regexp
	attempts  int
}

var _ providers.Source = (*Scraper)(nil)

func NewScraper(c *http.Client, log Logger, contract Contract, attempts int) (*Scraper, error) {
	if strings.TrimSpace(contract.ChapterMarker) == "" {
		return nil, fmt.Errorf("chapter marker cannot be empty")
	}
	if len(contract.ImageMatch) == 0 {
		return nil, fmt.Errorf("at least one image match is required")
	}
	if contract.TitleSelector == "" {
		contract.TitleSelector = "h1"
	}

	re, err := regexp.Compile(contract.ChapterPattern)
	if err != nil {
		return nil, fmt.Errorf("chapter pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("chapter pattern %q needs a capture group", contract.ChapterPattern)
	}

	log.Debugf("Markup contract %s", contract)

	return &Scraper{
		client:    c,
		log:       log,
		contract:  contract,
		chapterRe: re,
		attempts:  attempts,
	}, nil
}

func (s *Scraper) fetchDOM(ctx context.Context, target string) (*goquery.Document, error) {
	body, err := util.GetBody(ctx, s.client, target, s.attempts)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}

	return doc, nil
}

func (s *Scraper) GetChapters(ctx context.Context, indexURL string) ([]providers.Chapter, error) {
	doc, err := s.fetchDOM(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	out := ParseChapterList(doc, indexURL, s.contract.ChapterMarker, s.chapterRe)
	s.log.Debugf("Listing %s: %d chapter links", indexURL, len(out))

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w (marker %q)", indexURL, providers.ErrNoChapters, s.contract.ChapterMarker)
	}

	return out, nil
}

// GetChapter returns the record even when it has no images, together with
// providers.ErrNoImages, so callers can still keep the metadata.
func (s *Scraper) GetChapter(ctx context.Context, chapterURL string) (providers.ChapterRecord, error) {
	doc, err := s.fetchDOM(ctx, chapterURL)
	if err != nil {
		return providers.ChapterRecord{}, err
	}

	rec := ParseChapterPage(doc, chapterURL, s.contract)
	if len(rec.Images) == 0 {
		return rec, fmt.Errorf("%s: %w (match %q)", chapterURL, providers.ErrNoImages, s.contract.ImageMatch)
	}

	return rec, nil
}

// ParseChapterList collects links containing marker, resolved against
// baseURL, deduplicated and in chapter order.
func ParseChapterList(doc *goquery.Document, baseURL, marker string, numberRe *regexp.Regexp) []providers.Chapter {
	var found []providers.Chapter

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.Contains(href, marker) {
			return
		}

		u := resolveURL(baseURL, href)
		n, ok := providers.ParseNumber(numberRe, u)

		found = append(found, providers.Chapter{
			URL:       u,
			Number:    n,
			HasNumber: ok,
			Order:     len(found),
		})
	})

	out := providers.Dedupe(found)
	providers.SortChapters(out)

	return out
}

// ParseChapterPage extracts the title and the page images in document order.
func ParseChapterPage(doc *goquery.Document, pageURL string, contract Contract) providers.ChapterRecord {
	sel := contract.TitleSelector
	if sel == "" {
		sel = "h1"
	}

	title := strings.TrimSpace(doc.Find(sel).First().Text())
	if title == "" {
		title = "Unknown"
	}

	images := []string{}
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || !matchesAny(src, contract.ImageMatch) {
			return
		}
		images = append(images, resolveURL(pageURL, src))
	})

	return providers.ChapterRecord{
		URL:    pageURL,
		Title:  title,
		Images: images,
	}
}

func matchesAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func resolveURL(baseURL, href string) string {
	if href == "" {
		return baseURL
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil {
		return href
	}

	return b.ResolveReference(u).String()
}
