package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/charmbracelet/log"
)

// Reloader rebuilds a complete index off to the side and swaps it into a
// Holder in one step, so readers see either the old or the new index.
type Reloader struct {
	holder  *Holder
	workers int
	mu      sync.Mutex
}

// NewReloader creates a reloader publishing into h, fetching shards with up
// to workers concurrent loads.
func NewReloader(h *Holder, workers int) *Reloader {
	if workers < 1 {
		workers = 1
	}
	return &Reloader{holder: h, workers: workers}
}

// Build loads every shard of loader and merges them in shard id order into
// a fresh index. Shards that fail to load are left out; their errors are
// returned joined along with the partial index.
func Build(ctx context.Context, loader *shard.Loader, workers int) (*Index, error) {
	var (
		mu     sync.Mutex
		loaded []*shard.Shard
	)
	loadErr := loader.Preload(ctx, workers, func(s *shard.Shard) {
		mu.Lock()
		loaded = append(loaded, s)
		mu.Unlock()
	})

	// merge order must not depend on which fetch finished first
	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].ID < loaded[j].ID
	})
	return New().MergeAll(loaded...), loadErr
}

// Reload builds a new index from loader and publishes it. Individual shard
// failures do not prevent the swap; they are logged and returned. If ctx
// ends before the build completes the current index is kept.
func (r *Reloader) Reload(ctx context.Context, loader *shard.Loader) (*Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(loader.Catalog().Shards())
	log.Debugf("Reloading index from %d shards", total)

	idx, err := Build(ctx, loader, r.workers)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return r.holder.Current(), fmt.Errorf("reload aborted: %w", ctxErr)
	}
	if err != nil {
		log.Warnf("Reload left out %d of %d shards: %v", total-len(idx.Shards()), total, err)
	}

	published := r.holder.Replace(idx)
	log.Debugf("Reload done: %d keys from %d shards", published.Len(), len(published.Shards()))
	return published, err
}
