package search

import (
	"sync"

	"github.com/charmbracelet/log"
)

// HotCache keeps the results of the most recent queries against one index
// generation. Looking up a newer generation than the cache holds empties
// it, since no older snapshot will be queried again.
type HotCache struct {
	results     map[string]Result
	accessTime  map[string]int64
	accessCount int64
	generation  uint64
	hits        int64
	misses      int64
	maxEntries  int
	mu          sync.Mutex
}

// NewHotCache returns a cache holding up to maxEntries results. A size of
// zero or less disables caching.
func NewHotCache(maxEntries int) *HotCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &HotCache{
		results:    make(map[string]Result, maxEntries),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

// Get returns a copy of the cached result for input at generation.
func (hc *HotCache) Get(generation uint64, input string) (Result, bool) {
	if hc == nil || hc.maxEntries == 0 {
		return Result{}, false
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.advance(generation)
	if generation != hc.generation {
		hc.misses++
		return Result{}, false
	}
	res, ok := hc.results[input]
	if !ok {
		hc.misses++
		return Result{}, false
	}
	hc.hits++
	hc.markAccessed(input)
	return res.clone(), true
}

// Put stores res for input at generation. Results for generations older
// than the cached one are ignored.
func (hc *HotCache) Put(generation uint64, input string, res Result) {
	if hc == nil || hc.maxEntries == 0 {
		return
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.advance(generation)
	if generation != hc.generation {
		return
	}
	if _, ok := hc.results[input]; !ok && len(hc.results) >= hc.maxEntries {
		hc.evictLRU()
	}
	res.Seq = 0
	hc.results[input] = res.clone()
	hc.markAccessed(input)
}

// Stats returns counters for the stats endpoint.
func (hc *HotCache) Stats() map[string]int {
	if hc == nil {
		return map[string]int{}
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	return map[string]int{
		"hotCacheEntries": len(hc.results),
		"maxHotEntries":   hc.maxEntries,
		"hotCacheHits":    int(hc.hits),
		"hotCacheMisses":  int(hc.misses),
	}
}

// advance drops everything cached for generations older than generation.
func (hc *HotCache) advance(generation uint64) {
	if generation <= hc.generation {
		return
	}
	if len(hc.results) > 0 {
		log.Debugf("Hot cache: generation %d -> %d, dropping %d results", hc.generation, generation, len(hc.results))
	}
	hc.generation = generation
	clear(hc.results)
	clear(hc.accessTime)
}

func (hc *HotCache) markAccessed(input string) {
	hc.accessCount++
	hc.accessTime[input] = hc.accessCount
}

func (hc *HotCache) evictLRU() {
	var oldest string
	var oldestTime int64 = 1<<63 - 1

	for input, t := range hc.accessTime {
		if t < oldestTime {
			oldestTime = t
			oldest = input
		}
	}
	if oldestTime != 1<<63-1 {
		delete(hc.results, oldest)
		delete(hc.accessTime, oldest)
	}
}
