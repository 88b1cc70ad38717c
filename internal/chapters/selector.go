package chapters

import (
	"fmt"
	"strings"
)

// Selection narrows a run. Chapter, Range and List refer to chapter
// labels (the number in the URL), not positions; only one of them applies,
// in that order. Limit keeps the first N of what remains.
type Selection struct {
	Chapter string
	Range   string
	List    string
	Limit   int
}

func (s Selection) Empty() bool {
	return s.Chapter == "" && s.Range == "" && s.List == "" && s.Limit <= 0
}

func Filter(all []Chapter, sel Selection) ([]Chapter, error) {
	if sel.Empty() {
		return all, nil
	}

	var out []Chapter
	var err error

	switch {
	case sel.Chapter != "":
		out = FilterByLabel(all, strings.TrimSpace(sel.Chapter))
		if len(out) == 0 {
			return nil, fmt.Errorf("chapter %q not found", sel.Chapter)
		}
	case sel.Range != "":
		out, err = FilterRange(all, sel.Range)
	case sel.List != "":
		out = FilterList(all, sel.List)
	default:
		out = all
	}
	if err != nil {
		return nil, err
	}

	return Limit(out, sel.Limit), nil
}

func FilterByLabel(all []Chapter, label string) []Chapter {
	var out []Chapter
	for _, ch := range all {
		if ch.Label() == label {
			out = append(out, ch)
		}
	}
	return out
}

// FilterRange keeps numbered chapters with start <= number <= end.
func FilterRange(all []Chapter, rng string) ([]Chapter, error) {
	var start, end int
	if _, err := fmt.Sscanf(strings.ReplaceAll(rng, " ", ""), "%d-%d", &start, &end); err != nil {
		return nil, fmt.Errorf("invalid range %q (want e.g. 5-12)", rng)
	}
	if start > end {
		return nil, fmt.Errorf("invalid range %q: start after end", rng)
	}

	var out []Chapter
	for _, ch := range all {
		if ch.HasNumber && ch.Number >= start && ch.Number <= end {
			out = append(out, ch)
		}
	}
	return out, nil
}

// FilterList keeps chapters whose label appears in the comma separated list,
// in listing order.
func FilterList(all []Chapter, list string) []Chapter {
	want := map[string]bool{}
	for p := range strings.SplitSeq(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			want[p] = true
		}
	}

	var out []Chapter
	for _, ch := range all {
		if want[ch.Label()] {
			out = append(out, ch)
		}
	}
	return out
}

func Limit(all []Chapter, n int) []Chapter {
	if n > 0 && n < len(all) {
		return all[:n]
	}
	return all
}
