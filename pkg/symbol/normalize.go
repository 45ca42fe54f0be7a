package symbol

import (
	"strings"

	"github.com/bastiangx/docsearch/internal/utils"
)

// Normalize turns raw user input or a raw symbol name into a search key:
// trimmed, lower-cased, with whitespace runs collapsed to a single space.
func Normalize(raw string) string {
	return strings.ToLower(utils.CollapseSpace(raw))
}

// WordRuns returns the normalized runs of consecutive whole tokens of name
// that a word match can find. A run is listed twice when its tokens are not
// already joined by single spaces: as written, and with one space between
// tokens, so "create cgroup" finds "cgroup_create_cgroup" too.
// "cgroup_create_cgroup" yields "cgroup create", "cgroup create cgroup",
// "create", "create_cgroup", "create cgroup" and "cgroup".
//
// Runs from the first token that are literal prefixes of the normalized name
// are left out; they always classify as a prefix match. A name starting with
// a separator, such as "_LIBCGROUP_H", keeps its first-token runs.
func WordRuns(name string) []string {
	spans := utils.TokenSpans(name)
	key := Normalize(name)

	var runs []string
	seen := make(map[string]struct{})
	add := func(first int, run string) {
		if first == 0 && strings.HasPrefix(key, run) {
			return
		}
		if _, ok := seen[run]; ok {
			return
		}
		seen[run] = struct{}{}
		runs = append(runs, run)
	}
	for i := range spans {
		for j := i; j < len(spans); j++ {
			add(i, Normalize(name[spans[i].Start:spans[j].End]))
			if j > i {
				add(i, spacedRun(name, spans[i:j+1]))
			}
		}
	}
	return runs
}

// spacedRun joins the tokens of name covered by spans with single spaces.
func spacedRun(name string, spans []utils.Span) string {
	var b strings.Builder
	for k, sp := range spans {
		if k > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name[sp.Start:sp.End])
	}
	return Normalize(b.String())
}

// HasWord reports whether word (already normalized) is one of the runs
// WordRuns lists for name.
func HasWord(name, word string) bool {
	for _, run := range WordRuns(name) {
		if run == word {
			return true
		}
	}
	return false
}
