package ui

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/brogergvhs/chapterdl/internal/pipeline"
	"github.com/brogergvhs/chapterdl/internal/util"
)

// PrintSummary renders the per-chapter table followed by the totals.
func PrintSummary(w io.Writer, s *pipeline.Summary) {
	if s == nil {
		return
	}

	_, _ = fmt.Fprintln(w)
	if len(s.Results) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "CHAPTER\tSTATUS\tPAGES\tFAILED\tDETAIL")
		for _, r := range s.Results {
			detail := r.Path
			if r.Err != nil {
				detail = r.Err.Error()
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
				r.Chapter.Label(), r.Status, r.Pages, r.FailedPages, detail)
		}
		_ = tw.Flush()
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, "Download Summary:")
	_, _ = fmt.Fprintf(w, "Mode:     %s\n", s.Mode)
	_, _ = fmt.Fprintf(w, "Complete: %d/%d chapters (%d new, %d already present)\n",
		s.Complete(), len(s.Results), s.Count(pipeline.StatusSaved), s.Count(pipeline.StatusSkipped))
	if n := s.Count(pipeline.StatusFailed); n > 0 {
		_, _ = fmt.Fprintf(w, "Failed:   %d chapters\n", n)
	}
	_, _ = fmt.Fprintf(w, "Images:   %d (%d failed)\n", s.Pages(), s.FailedPages())
	_, _ = fmt.Fprintf(w, "Data:     %s\n", util.Human(s.Bytes()))
	_, _ = fmt.Fprintf(w, "Time:     %s\n", s.Elapsed.Round(time.Second))
	_, _ = fmt.Fprintf(w, "Saved to: %s\n", s.Root)
}
