package search

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/docsearch/internal/logger"
	"github.com/bastiangx/docsearch/internal/metrics"
	"github.com/bastiangx/docsearch/pkg/index"
	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Options tune the engine.
type Options struct {
	// MaxResults caps the hits of one result; zero or less means no cap.
	MaxResults int
	// MaxInput is the longest searched normalized input in runes; longer
	// inputs get an empty result. Zero or less means no limit.
	MaxInput int
	// CategoryOrder breaks display name ties; earlier categories rank first.
	CategoryOrder []symbol.Category
	// CacheSize is the number of results kept in the hot cache.
	CacheSize int
	// LoadTimeout bounds how long one query waits for shards; zero waits as
	// long as the caller's context allows.
	LoadTimeout time.Duration
	// Workers bounds concurrent shard fetches for preloads and reloads.
	Workers int
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaxResults:    50,
		MaxInput:      128,
		CategoryOrder: DefaultCategoryOrder,
		CacheSize:     256,
		LoadTimeout:   2 * time.Second,
		Workers:       4,
	}
}

// Engine answers queries against lazily loaded shards.
type Engine struct {
	loader   atomic.Pointer[shard.Loader]
	holder   *index.Holder
	reloader *index.Reloader
	cache    *HotCache
	ranker   ranker
	opts     Options
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// NewEngine creates an engine over the shards of loader. m may be nil.
func NewEngine(loader *shard.Loader, opts Options, m *metrics.Metrics) *Engine {
	holder := index.NewHolder(nil, m)
	e := &Engine{
		holder:   holder,
		reloader: index.NewReloader(holder, opts.Workers),
		cache:    NewHotCache(opts.CacheSize),
		ranker:   newRanker(opts.CategoryOrder),
		opts:     opts,
		metrics:  m,
		logger:   logger.New("search"),
	}
	e.loader.Store(loader)
	return e
}

// Index returns the current index snapshot.
func (e *Engine) Index() *index.Index {
	return e.holder.Current()
}

// Loader returns the loader queries currently fetch shards from.
func (e *Engine) Loader() *shard.Loader {
	return e.loader.Load()
}

// Query implements Searcher.
func (e *Engine) Query(ctx context.Context, raw string) (Result, error) {
	start := time.Now()

	input := symbol.Normalize(raw)
	if input == "" {
		return Result{}, nil
	}
	if e.opts.MaxInput > 0 && utf8.RuneCountInString(input) > e.opts.MaxInput {
		e.metrics.Query("rejected", time.Since(start), 0)
		e.logger.Warnf("Ignoring input of %d runes (max_input is %d)", utf8.RuneCountInString(input), e.opts.MaxInput)
		return Result{Input: input}, nil
	}

	if res, ok := e.cache.Get(e.holder.Current().Generation(), input); ok {
		e.metrics.CacheHit(true)
		e.metrics.Query(outcome(res), time.Since(start), len(res.Hits))
		return res, nil
	}
	e.metrics.CacheHit(false)

	failed := e.ensureShards(ctx, input)

	idx := e.holder.Current()
	res := Result{
		Input:    input,
		Hits:     e.collect(idx, input),
		Degraded: len(failed) > 0,
		Failed:   failed,
	}
	if !res.Degraded {
		e.cache.Put(idx.Generation(), input, res)
	}

	elapsed := time.Since(start)
	e.metrics.Query(outcome(res), elapsed, len(res.Hits))
	e.logger.Debugf("Query %q: %d hits in %v (degraded=%v)", input, len(res.Hits), elapsed, res.Degraded)
	return res, nil
}

func outcome(res Result) string {
	switch {
	case res.Degraded:
		return "degraded"
	case len(res.Hits) == 0:
		return "empty"
	}
	return "ok"
}

// ensureShards loads the shards relevant to input that are not yet merged
// and merges them in one step. It returns the ids of shards that could not
// be loaded before the load deadline.
func (e *Engine) ensureShards(ctx context.Context, input string) []string {
	loader := e.loader.Load()
	idx := e.holder.Current()

	var missing []shard.Descriptor
	for _, d := range loader.Catalog().Relevant(input) {
		if !idx.HasShard(d.ID) {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if e.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.LoadTimeout)
		defer cancel()
	}

	loaded := make([]*shard.Shard, len(missing))
	var (
		mu     sync.Mutex
		failed []string
	)
	var g errgroup.Group
	g.SetLimit(max(e.opts.Workers, 1))
	for i, d := range missing {
		g.Go(func() error {
			s, err := loader.Load(ctx, d.ID)
			if err != nil {
				e.logger.Warn("Shard unavailable, results degraded", "shard", d.ID, "err", err)
				mu.Lock()
				failed = append(failed, d.ID)
				mu.Unlock()
				return nil
			}
			loaded[i] = s
			return nil
		})
	}
	_ = g.Wait()

	// missing is in id order, so merges are deterministic
	e.holder.Merge(loaded...)
	sort.Strings(failed)
	return failed
}

// collect classifies, ranks, deduplicates and caps the hits for input.
func (e *Engine) collect(idx *index.Index, input string) []Hit {
	kinds := make(map[string]MatchKind)
	var keys []string
	for _, key := range idx.PrefixKeys(input) {
		kind := PrefixMatch
		if key == input {
			kind = ExactMatch
		}
		kinds[key] = kind
		keys = append(keys, key)
	}
	for _, key := range idx.WordKeys(input) {
		if _, ok := kinds[key]; ok {
			continue
		}
		kinds[key] = WordMatch
		keys = append(keys, key)
	}

	var cands []candidate
	for _, key := range keys {
		for _, entry := range idx.Entries(key) {
			cands = append(cands, candidate{
				Hit:   Hit{Entry: entry, Kind: kinds[key]},
				order: len(cands),
			})
		}
	}
	e.ranker.sort(cands)
	return dedup(cands, e.opts.MaxResults)
}

// Preload loads every shard and merges them into the index, making word
// matches complete. Individual shard failures are returned joined.
func (e *Engine) Preload(ctx context.Context) error {
	loader := e.loader.Load()
	var (
		mu     sync.Mutex
		loaded []*shard.Shard
	)
	err := loader.Preload(ctx, e.opts.Workers, func(s *shard.Shard) {
		mu.Lock()
		loaded = append(loaded, s)
		mu.Unlock()
	})
	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].ID < loaded[j].ID
	})
	idx := e.holder.Merge(loaded...)
	e.logger.Debugf("Preload done: %d keys from %d shards", idx.Len(), len(idx.Shards()))
	return err
}

// PreloadInBackground runs Preload in its own goroutine and returns a
// channel closed when it is done. Queries keep being answered from the
// shards loaded so far while it runs.
func (e *Engine) PreloadInBackground(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		start := time.Now()
		if err := e.Preload(ctx); err != nil {
			e.logger.Warnf("Background preload incomplete, word matches may miss symbols: %v", err)
			return
		}
		e.logger.Debugf("Background preload done in %v", time.Since(start))
	}()
	return done
}

// Reload builds a complete index from loader off to the side and swaps it
// in together with the loader. Until the swap, queries keep using the old
// index.
func (e *Engine) Reload(ctx context.Context, loader *shard.Loader) error {
	old := e.loader.Swap(loader)
	if _, err := e.reloader.Reload(ctx, loader); err != nil {
		if ctx.Err() != nil {
			e.loader.Store(old)
		}
		return err
	}
	return nil
}

// Stats describes the engine state.
type Stats struct {
	Keys            int
	Entries         int
	Generation      uint64
	MergedShards    int
	AvailableShards int
	ResidentShards  int
	FailedShards    int
	Cache           map[string]int
}

// Stats returns a snapshot of engine statistics.
func (e *Engine) Stats() Stats {
	idx := e.holder.Current()
	ls := e.loader.Load().GetStats()
	return Stats{
		Keys:            idx.Len(),
		Entries:         idx.EntryCount(),
		Generation:      idx.Generation(),
		MergedShards:    len(idx.Shards()),
		AvailableShards: ls.AvailableShards,
		ResidentShards:  ls.ResidentShards,
		FailedShards:    ls.FailedShards,
		Cache:           e.cache.Stats(),
	}
}
