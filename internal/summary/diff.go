package summary

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/scoreunlock/scoreunlock/internal/model"
)

// DiffSummaries lists, one per line, the assignments that changed, vanished
// or appeared between two snapshots. Lines are sorted by course then title.
func DiffSummaries(old, updated model.Summary) string {
	var b strings.Builder
	for _, course := range unionKeys(old, updated) {
		before, after := old[course], updated[course]
		for _, title := range unionKeys(before, after) {
			prev, hadPrev := before[title]
			next, hasNext := after[title]
			switch {
			case !hadPrev:
				fmt.Fprintf(&b, "%s in %s (new)\n", title, course)
			case !hasNext || !cmp.Equal(prev, next):
				fmt.Fprintf(&b, "%s in %s\n", title, course)
			}
		}
	}
	return b.String()
}

func unionKeys[M ~map[string]V, V any](a, b M) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
