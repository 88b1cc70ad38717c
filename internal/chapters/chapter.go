package chapters

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/brogergvhs/chapterdl/internal/providers"
)

// Chapter is a listing entry plus its 1-based position in the run.
type Chapter struct {
	providers.Chapter
	Index int
}

// Wrap numbers chapters in processing order.
func Wrap(all []providers.Chapter) []Chapter {
	out := make([]Chapter, len(all))
	for i, c := range all {
		out[i] = Chapter{Chapter: c, Index: i + 1}
	}
	return out
}

// Label is the parsed chapter number, or the run position when the URL
// carries none.
func (c Chapter) Label() string {
	if c.HasNumber {
		return strconv.Itoa(c.Number)
	}
	return strconv.Itoa(c.Index)
}

func (c Chapter) DisplayName() string {
	return "Chapter " + c.Label()
}

func (c Chapter) PDFName() string {
	return c.DisplayName() + ".pdf"
}

func (c Chapter) CBZName() string {
	return c.DisplayName() + ".cbz"
}

func (c Chapter) EPUBName() string {
	return c.DisplayName() + ".epub"
}

// DirName namespaces loose page files of one chapter.
func (c Chapter) DirName() string {
	return "chapter_" + c.Label()
}

const minImageNameLen = 5

// ImageFilename derives a file name from the last path segment of rawURL.
// Missing or very short segments fall back to chapter_{c}_page_{p}.png.
func ImageFilename(rawURL string, chapterIndex, pageIndex int) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if u, err := url.Parse(p); err == nil {
		p = u.EscapedPath()
	}

	name := ""
	if !strings.HasSuffix(p, "/") {
		name = path.Base(p)
	}
	if name == "." || name == "/" {
		name = ""
	}

	if len(name) < minImageNameLen {
		return fmt.Sprintf("chapter_%d_page_%d.png", chapterIndex, pageIndex)
	}

	return name
}
