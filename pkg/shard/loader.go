package shard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/bastiangx/docsearch/internal/logger"
	"github.com/bastiangx/docsearch/internal/metrics"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Loader fetches shards from a directory on demand, memoized by shard id.
type Loader struct {
	fsys       fs.FS
	catalog    *Catalog
	resident   map[string]*Shard
	errorCount map[string]int
	lastErr    map[string]error
	maxRetries int
	mu         sync.RWMutex
	group      singleflight.Group
	metrics    *metrics.Metrics
	logger     *log.Logger
}

// LoaderStats provides statistics about the loading process
type LoaderStats struct {
	AvailableShards int
	ResidentShards  int
	ResidentEntries int
	FailedShards    int
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithMaxRetries sets how many failed fetches a shard gets before the loader
// stops trying it. Zero or less retries forever.
func WithMaxRetries(n int) LoaderOption {
	return func(l *Loader) { l.maxRetries = n }
}

// WithMetrics records shard loads.
func WithMetrics(m *metrics.Metrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

// NewLoader creates a loader for the shards of catalog stored in fsys.
func NewLoader(fsys fs.FS, catalog *Catalog, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:       fsys,
		catalog:    catalog,
		resident:   make(map[string]*Shard),
		errorCount: make(map[string]int),
		lastErr:    make(map[string]error),
		maxRetries: 3,
		logger:     logger.New("loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Catalog returns the catalog the loader serves.
func (l *Loader) Catalog() *Catalog {
	return l.catalog
}

// Load returns the shard with the given id, fetching it if it is not
// resident. Concurrent loads of one shard share a single fetch. When ctx ends
// first the caller gets a *LoadError wrapping ctx.Err(); the fetch keeps
// running and the shard becomes resident for later callers.
func (l *Loader) Load(ctx context.Context, id string) (*Shard, error) {
	if s, ok := l.Resident(id); ok {
		return s, nil
	}
	desc, ok := l.catalog.Lookup(id)
	if !ok {
		return nil, &LoadError{ShardID: id, Err: ErrUnknownShard}
	}
	if err := l.exhausted(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{ShardID: id, Err: err}
	}

	ch := l.group.DoChan(id, func() (any, error) {
		return l.fetch(desc)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Shard), nil
	case <-ctx.Done():
		l.metrics.ShardLoad("canceled")
		return nil, &LoadError{ShardID: id, Err: ctx.Err()}
	}
}

// Resident returns the shard if it is already loaded.
func (l *Loader) Resident(id string) (*Shard, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.resident[id]
	return s, ok
}

// ResidentIDs returns the ids of loaded shards in ascending order.
func (l *Loader) ResidentIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.resident))
	for id := range l.resident {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset forgets the failure history of a shard so it is fetched again.
func (l *Loader) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.errorCount, id)
	delete(l.lastErr, id)
}

// Preload loads every cataloged shard with up to workers concurrent fetches
// and hands each loaded shard to onLoad. Individual failures are logged and
// returned joined; they never stop the other loads. onLoad may be called
// concurrently.
func (l *Loader) Preload(ctx context.Context, workers int, onLoad func(*Shard)) error {
	if workers <= 0 {
		workers = 1
	}
	shards := l.catalog.Shards()

	var (
		mu     sync.Mutex
		failed []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, d := range shards {
		id := d.ID
		g.Go(func() error {
			s, err := l.Load(gctx, id)
			if err != nil {
				l.logger.Warn("Preload failed", "shard", id, "err", err)
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return nil
			}
			if onLoad != nil {
				onLoad(s)
			}
			return nil
		})
	}
	_ = g.Wait()

	l.logger.Debugf("Preloaded %d/%d shards", len(shards)-len(failed), len(shards))
	return errors.Join(failed...)
}

// GetStats returns current loading statistics
func (l *Loader) GetStats() LoaderStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := 0
	for _, s := range l.resident {
		entries += s.EntryCount()
	}
	failed := 0
	for id, n := range l.errorCount {
		if _, ok := l.resident[id]; !ok && n > 0 {
			failed++
		}
	}
	return LoaderStats{
		AvailableShards: len(l.catalog.shards),
		ResidentShards:  len(l.resident),
		ResidentEntries: entries,
		FailedShards:    failed,
	}
}

// exhausted returns the last failure of a shard that ran out of retries.
func (l *Loader) exhausted(id string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.maxRetries <= 0 || l.errorCount[id] < l.maxRetries {
		return nil
	}
	return &LoadError{ShardID: id, Err: fmt.Errorf("%w: %v", ErrRetriesExhausted, l.lastErr[id])}
}

// fetch reads, decodes and validates one shard and makes it resident.
func (l *Loader) fetch(desc Descriptor) (*Shard, error) {
	if s, ok := l.Resident(desc.ID); ok {
		return s, nil
	}

	s, err := l.read(desc)
	if err != nil {
		lerr := &LoadError{ShardID: desc.ID, Err: err}
		l.mu.Lock()
		l.errorCount[desc.ID]++
		l.lastErr[desc.ID] = err
		count := l.errorCount[desc.ID]
		l.mu.Unlock()

		l.metrics.ShardLoad("error")
		if l.maxRetries > 0 && count >= l.maxRetries {
			l.logger.Errorf("Shard %s failed %d times, giving up", desc.ID, count)
		} else {
			l.logger.Warnf("Failed to load shard %s (attempt %d): %v", desc.ID, count, err)
		}
		return nil, lerr
	}

	for _, p := range validate(s) {
		l.logger.Warn("Dropped malformed record", "err", p)
		l.metrics.MalformedRecord()
	}

	l.mu.Lock()
	l.resident[desc.ID] = s
	delete(l.errorCount, desc.ID)
	delete(l.lastErr, desc.ID)
	resident := len(l.resident)
	l.mu.Unlock()

	l.metrics.ShardLoad("ok")
	l.metrics.SetResidentShards(resident)
	l.logger.Debugf("Shard %s loaded: %d keys, %d entries", desc.ID, len(s.Records), s.EntryCount())
	return s, nil
}

func (l *Loader) read(desc Descriptor) (*Shard, error) {
	if err := ValidateShardFile(l.fsys, desc.File, l.catalog.layout); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.fsys, desc.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read shard file %s: %w", desc.File, err)
	}

	switch l.catalog.layout {
	case LayoutPacked:
		s, err := DecodePacked(data)
		if err != nil {
			return nil, err
		}
		s.ID = desc.ID
		return s, nil
	case LayoutDoxygen:
		s, problems, err := DecodeDoxygen(desc.ID, desc.Section, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", desc.File, err)
		}
		for _, p := range problems {
			l.logger.Warn("Dropped malformed record", "err", p)
			l.metrics.MalformedRecord()
		}
		return s, nil
	}
	return nil, ErrUnknownLayout
}
