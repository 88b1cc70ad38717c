package pipeline

import (
	"time"

	"github.com/brogergvhs/chapterdl/internal/chapters"
)

type Status int

const (
	StatusSaved Status = iota
	StatusSkipped
	StatusFailed
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSaved:
		return "saved"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of one chapter.
type Result struct {
	Chapter      chapters.Chapter
	Status       Status
	Err          error
	Fetched      bool // the chapter page was requested
	Title        string
	Path         string
	Pages        int
	FailedPages  int
	SkippedPages int
	Bytes        int64
}

type Summary struct {
	Mode    string
	Root    string
	Results []Result
	Elapsed time.Duration
}

func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
}

func (s *Summary) Count(st Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == st {
			n++
		}
	}
	return n
}

func (s *Summary) Pages() int {
	n := 0
	for _, r := range s.Results {
		n += r.Pages
	}
	return n
}

func (s *Summary) FailedPages() int {
	n := 0
	for _, r := range s.Results {
		n += r.FailedPages
	}
	return n
}

func (s *Summary) Bytes() int64 {
	var n int64
	for _, r := range s.Results {
		n += r.Bytes
	}
	return n
}

// Complete counts chapters whose artifact exists after the run.
func (s *Summary) Complete() int {
	return s.Count(StatusSaved) + s.Count(StatusSkipped)
}
