// Package index holds the in-memory symbol index built from loaded shards.
//
// An *Index is an immutable snapshot. Merging a shard never changes the
// receiver; it returns a new snapshot with its own tries. Readers therefore
// need no locking: they load the current snapshot from a Holder and keep
// using it for the whole query.
package index

import (
	"slices"
	"sort"

	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Index is an immutable snapshot mapping keys to entries.
type Index struct {
	// keys maps every key to its []symbol.Entry.
	keys *patricia.Trie
	// words maps every word run of an entry name to the []string keys
	// whose entries contain it.
	words *patricia.Trie

	entries    map[string][]symbol.Entry
	wordKeys   map[string][]string
	shards     []string
	merged     map[string]struct{}
	generation uint64
}

// New returns an empty index.
func New() *Index {
	return &Index{
		keys:     patricia.NewTrie(),
		words:    patricia.NewTrie(),
		entries:  make(map[string][]symbol.Entry),
		wordKeys: make(map[string][]string),
		merged:   make(map[string]struct{}),
	}
}

// Merge returns a new snapshot containing the entries of s appended after
// the entries already indexed. Merging a shard id that is already part of
// the index returns the receiver unchanged.
//
// An entry whose (DisplayName, Locator) is already indexed under the same
// key by an earlier shard is skipped. Repeats inside s itself are kept;
// the query engine collapses them when building results.
func (idx *Index) Merge(s *shard.Shard) *Index {
	return idx.MergeAll(s)
}

// MergeAll merges shards in order into a single new snapshot, rebuilding
// the tries once. Nil shards and shards already merged are skipped; if
// nothing is left the receiver is returned.
func (idx *Index) MergeAll(shards ...*shard.Shard) *Index {
	var todo []*shard.Shard
	seen := make(map[string]bool, len(shards))
	for _, s := range shards {
		if s == nil || seen[s.ID] {
			continue
		}
		if _, ok := idx.merged[s.ID]; ok {
			continue
		}
		seen[s.ID] = true
		todo = append(todo, s)
	}
	if len(todo) == 0 {
		return idx
	}

	next := &Index{
		entries:    make(map[string][]symbol.Entry, len(idx.entries)),
		wordKeys:   make(map[string][]string, len(idx.wordKeys)),
		shards:     slices.Clip(idx.shards),
		merged:     make(map[string]struct{}, len(idx.merged)+len(todo)),
		generation: idx.generation + 1,
	}
	for k, v := range idx.entries {
		next.entries[k] = v
	}
	for w, v := range idx.wordKeys {
		next.wordKeys[w] = v
	}
	for id := range idx.merged {
		next.merged[id] = struct{}{}
	}
	for _, s := range todo {
		next.add(s)
	}
	next.rebuildTries()
	return next
}

// add appends the records of s to a snapshot under construction.
func (idx *Index) add(s *shard.Shard) {
	idx.shards = append(idx.shards, s.ID)
	idx.merged[s.ID] = struct{}{}

	for _, rec := range s.Records {
		// only entries from shards merged before s count as already indexed
		prior := idx.entries[rec.Key]
		added := make([]symbol.Entry, 0, len(rec.Entries))
		for _, e := range rec.Entries {
			if containsIdentity(prior, e.Identity()) {
				continue
			}
			added = append(added, e)
		}
		if len(added) == 0 {
			continue
		}
		// Clip forces append to copy so older snapshots keep their slices.
		idx.entries[rec.Key] = append(slices.Clip(prior), added...)

		for _, e := range added {
			for _, run := range symbol.WordRuns(searchName(e)) {
				keys := idx.wordKeys[run]
				if slices.Contains(keys, rec.Key) {
					continue
				}
				idx.wordKeys[run] = append(slices.Clip(keys), rec.Key)
			}
		}
	}
}

// rebuildTries reconstructs both tries from the entry and word maps.
func (idx *Index) rebuildTries() {
	idx.keys = patricia.NewTrie()
	for key, entries := range idx.entries {
		idx.keys.Insert(patricia.Prefix(key), entries)
	}
	idx.words = patricia.NewTrie()
	for word, keys := range idx.wordKeys {
		idx.words.Insert(patricia.Prefix(word), keys)
	}
}

// PrefixKeys returns every key starting with prefix in ascending order.
// Only the subtree below prefix is visited.
func (idx *Index) PrefixKeys(prefix string) []string {
	var keys []string
	_ = idx.keys.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		keys = append(keys, string(p))
		return nil
	})
	sort.Strings(keys)
	return keys
}

// WordKeys returns, in ascending order, the keys having an entry whose name
// contains word as a run of whole tokens that does not start the name.
// word must already be normalized.
func (idx *Index) WordKeys(word string) []string {
	item := idx.words.Get(patricia.Prefix(word))
	if item == nil {
		return nil
	}
	keys := slices.Clone(item.([]string))
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the entries indexed under key, in merge order.
func (idx *Index) Entries(key string) []symbol.Entry {
	return slices.Clone(idx.entries[key])
}

// Contains reports whether key is indexed.
func (idx *Index) Contains(key string) bool {
	_, ok := idx.entries[key]
	return ok
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// EntryCount returns the number of entries across all keys.
func (idx *Index) EntryCount() int {
	n := 0
	for _, entries := range idx.entries {
		n += len(entries)
	}
	return n
}

// Shards returns the ids of merged shards in merge order.
func (idx *Index) Shards() []string {
	return slices.Clone(idx.shards)
}

// HasShard reports whether the shard with the given id has been merged.
func (idx *Index) HasShard(id string) bool {
	_, ok := idx.merged[id]
	return ok
}

// Generation counts the snapshots published before this one. It only grows
// within one Holder, so it can key caches of query results.
func (idx *Index) Generation() uint64 {
	return idx.generation
}

func containsIdentity(entries []symbol.Entry, id symbol.Identity) bool {
	for _, e := range entries {
		if e.Identity() == id {
			return true
		}
	}
	return false
}

// searchName is the text word matches are computed against.
func searchName(e symbol.Entry) string {
	if e.Name != "" {
		return e.Name
	}
	return e.Key
}

// rebase returns a shallow copy of idx with the given generation.
func (idx *Index) rebase(generation uint64) *Index {
	cp := *idx
	cp.generation = generation
	return &cp
}
