package providers

import (
	"regexp"
	"sort"
	"strconv"
)

// ParseNumber returns the integer in the first capture group of re.
func ParseNumber(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	return n, true
}

// Dedupe keeps the first occurrence of every URL.
func Dedupe(all []Chapter) []Chapter {
	seen := make(map[string]bool, len(all))
	out := make([]Chapter, 0, len(all))

	for _, c := range all {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}

	return out
}

// SortChapters orders numbered chapters ascending. Chapters without a
// number go last, in the order they first appeared.
func SortChapters(all []Chapter) {
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch {
		case a.HasNumber && b.HasNumber:
			if a.Number != b.Number {
				return a.Number < b.Number
			}
			return a.Order < b.Order
		case a.HasNumber != b.HasNumber:
			return a.HasNumber
		default:
			return a.Order < b.Order
		}
	})
}
