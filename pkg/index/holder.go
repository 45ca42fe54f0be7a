package index

import (
	"sync"
	"sync/atomic"

	"github.com/bastiangx/docsearch/internal/metrics"
	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/charmbracelet/log"
)

// Holder publishes the current index snapshot. Reads are a single atomic
// load and never block; merges and replacements are serialized.
type Holder struct {
	current atomic.Pointer[Index]
	mu      sync.Mutex
	metrics *metrics.Metrics
}

// NewHolder returns a holder publishing idx, or an empty index if idx is nil.
func NewHolder(idx *Index, m *metrics.Metrics) *Holder {
	if idx == nil {
		idx = New()
	}
	h := &Holder{metrics: m}
	h.current.Store(idx)
	m.SetIndex(idx.Len(), idx.Generation())
	return h
}

// Current returns the published snapshot.
func (h *Holder) Current() *Index {
	return h.current.Load()
}

// Merge merges shards into the current snapshot and publishes the result
// as one new snapshot. Shards already merged are ignored.
func (h *Holder) Merge(shards ...*shard.Shard) *Index {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur := h.current.Load()
	next := cur.MergeAll(shards...)
	if next == cur {
		return cur
	}
	h.current.Store(next)
	h.metrics.SetIndex(next.Len(), next.Generation())
	log.Debugf("Merged %d shards: %d keys, generation %d", len(next.shards)-len(cur.shards), next.Len(), next.Generation())
	return next
}

// Replace publishes idx in place of the current snapshot. The generation of
// the published snapshot is moved past the current one so that results
// cached for older snapshots can never be mistaken for it.
func (h *Holder) Replace(idx *Index) *Index {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur := h.current.Load()
	if idx.Generation() <= cur.Generation() {
		idx = idx.rebase(cur.Generation() + 1)
	}
	h.current.Store(idx)
	h.metrics.SetIndex(idx.Len(), idx.Generation())
	log.Debugf("Replaced index: %d keys, %d shards, generation %d", idx.Len(), len(idx.shards), idx.Generation())
	return idx
}
