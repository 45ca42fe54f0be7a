package search

import (
	"sort"
	"strings"

	"github.com/bastiangx/docsearch/pkg/symbol"
)

// DefaultCategoryOrder ranks types before functions before members.
var DefaultCategoryOrder = []symbol.Category{
	symbol.Type,
	symbol.Function,
	symbol.Member,
	symbol.Macro,
	symbol.Namespace,
	symbol.File,
	symbol.Group,
	symbol.Page,
}

// ranker orders candidate hits.
type ranker struct {
	priority map[symbol.Category]int
}

func newRanker(order []symbol.Category) ranker {
	if len(order) == 0 {
		order = DefaultCategoryOrder
	}
	r := ranker{priority: make(map[symbol.Category]int, len(order))}
	for i, c := range order {
		if _, dup := r.priority[c]; !dup {
			r.priority[c] = i
		}
	}
	return r
}

func (r ranker) categoryRank(c symbol.Category) int {
	if p, ok := r.priority[c]; ok {
		return p
	}
	return len(r.priority)
}

// candidate is a hit with the position it was collected at.
type candidate struct {
	Hit
	order int
}

// sort orders hits by kind, then display name, then category, then key,
// then collection order.
func (r ranker) sort(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if c := compareDisplay(a.Entry.DisplayName, b.Entry.DisplayName); c != 0 {
			return c < 0
		}
		if ra, rb := r.categoryRank(a.Entry.Category), r.categoryRank(b.Entry.Category); ra != rb {
			return ra < rb
		}
		if a.Entry.Key != b.Entry.Key {
			return a.Entry.Key < b.Entry.Key
		}
		return a.order < b.order
	})
}

// compareDisplay compares case-insensitively first so that "CGROUP_MAX"
// and "cgroup_free" interleave by spelling.
func compareDisplay(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// dedup keeps the first hit of every (DisplayName, Locator) identity and
// returns at most limit hits. A limit of zero or less keeps all.
func dedup(cands []candidate, limit int) []Hit {
	seen := make(map[symbol.Identity]struct{}, len(cands))
	hits := make([]Hit, 0, min(len(cands), max(limit, 0)))
	for _, c := range cands {
		id := c.Entry.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		hits = append(hits, c.Hit)
		if limit > 0 && len(hits) == limit {
			break
		}
	}
	return hits
}
