package dataprocessing

import (
	"strconv"
	"strings"
)

// ResolveColumn returns the first header containing any of the candidate
// substrings. Headers are scanned in order and, for each header, the
// candidates in order. ok is false when nothing matches.
func ResolveColumn(headers []string, candidates []string) (name string, ok bool) {
	for _, h := range headers {
		for _, c := range candidates {
			if c != "" && strings.Contains(h, c) {
				return h, true
			}
		}
	}
	return "", false
}

// NormalizeHeaders trims whitespace from headers and makes them unique.
// Blank headers become "Unnamed: <index>" and repeats get a ".<n>" suffix.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = h + "." + strconv.Itoa(n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}
