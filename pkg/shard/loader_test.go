package shard_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFS blocks every Open of gated until release is closed and counts opens.
type gatedFS struct {
	fs.FS
	gated   string
	release chan struct{}
	opens   atomic.Int32
}

func (g *gatedFS) Open(name string) (fs.File, error) {
	if name == g.gated {
		g.opens.Add(1)
		<-g.release
	}
	return g.FS.Open(name)
}

func openLoader(t *testing.T, fsys fs.FS, opts ...shard.LoaderOption) *shard.Loader {
	t.Helper()
	c, err := shard.OpenCatalog(fsys, shard.CatalogOptions{SkipSections: []string{"all"}})
	require.NoError(t, err)
	return shard.NewLoader(fsys, c, opts...)
}

func TestLoaderLoadsAndMemoizes(t *testing.T) {
	t.Parallel()

	l := openLoader(t, os.DirFS("testdata/doxygen"))

	s, err := l.Load(context.Background(), "functions_0")
	require.NoError(t, err)
	assert.Len(t, s.Records, 86)
	for _, rec := range s.Records {
		for _, e := range rec.Entries {
			assert.Equal(t, rec.Key, e.Key)
			assert.Equal(t, "functions_0", e.ShardID)
			assert.Equal(t, symbol.Function, e.Category)
		}
	}

	again, err := l.Load(context.Background(), "functions_0")
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, []string{"functions_0"}, l.ResidentIDs())

	stats := l.GetStats()
	assert.Equal(t, 2, stats.AvailableShards)
	assert.Equal(t, 1, stats.ResidentShards)
}

func TestLoaderUnknownShard(t *testing.T) {
	t.Parallel()

	l := openLoader(t, os.DirFS("testdata/doxygen"))
	_, err := l.Load(context.Background(), "classes_0")

	var lerr *shard.LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "classes_0", lerr.ShardID)
	assert.ErrorIs(t, err, shard.ErrUnknownShard)
}

func TestLoaderDropsMalformedRecords(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"functions_0.js": {Data: []byte(`var searchData=
[
  ['foo_0',['foo',['../a.html#x',1,'foo():&#160;a.c']]],
  ['bar_1',['bar',['',1,'bar():&#160;a.c']]],
  [42],
  ['baz_2',['baz',['../b.html#y',1,'b.c'],['../b.html#z',1,'baz(int):&#160;b.c'],'junk']],
  ['foo_3',['foo',['../a.html#w',1,'foo(int):&#160;a.c']]]
];`)},
	}
	l := openLoader(t, fsys)

	s, err := l.Load(context.Background(), "functions_0")
	require.NoError(t, err)
	require.Len(t, s.Records, 2)

	assert.Equal(t, "foo", s.Records[0].Key)
	require.Len(t, s.Records[0].Entries, 2, "duplicate keys fold into the first record")
	assert.Equal(t, "foo()", s.Records[0].Entries[0].DisplayName)
	assert.Equal(t, "foo(int)", s.Records[0].Entries[1].DisplayName)

	assert.Equal(t, "baz", s.Records[1].Key)
	assert.Len(t, s.Records[1].Entries, 2)
}

func TestLoaderRetryBudget(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"functions_0.js": {Data: []byte(`var notSearchData = [1, 2, 3];`)},
	}
	l := openLoader(t, fsys, shard.WithMaxRetries(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Load(ctx, "functions_0")
		require.Error(t, err)
		assert.NotErrorIs(t, err, shard.ErrRetriesExhausted)
	}

	_, err := l.Load(ctx, "functions_0")
	assert.ErrorIs(t, err, shard.ErrRetriesExhausted)
	assert.Equal(t, 1, l.GetStats().FailedShards)

	l.Reset("functions_0")
	_, err = l.Load(ctx, "functions_0")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shard.ErrRetriesExhausted)
}

func TestLoaderSharesConcurrentFetches(t *testing.T) {
	t.Parallel()

	g := &gatedFS{FS: os.DirFS("testdata/doxygen"), gated: "functions_0.js", release: make(chan struct{})}
	l := openLoader(t, g)

	var wg sync.WaitGroup
	results := make([]*shard.Shard, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := l.Load(context.Background(), "functions_0")
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	require.Eventually(t, func() bool { return g.opens.Load() >= 1 }, time.Second, time.Millisecond)
	close(g.release)
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	// one Stat plus one ReadFile for the single shared fetch
	assert.LessOrEqual(t, g.opens.Load(), int32(2))
}

func TestLoaderCancellation(t *testing.T) {
	t.Parallel()

	g := &gatedFS{FS: os.DirFS("testdata/doxygen"), gated: "functions_0.js", release: make(chan struct{})}
	l := openLoader(t, g)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, "functions_0")
		errc <- err
	}()

	require.Eventually(t, func() bool { return g.opens.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		var lerr *shard.LoadError
		require.ErrorAs(t, err, &lerr)
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Load did not return after cancel")
	}

	// the abandoned fetch still completes and becomes resident
	close(g.release)
	require.Eventually(t, func() bool {
		_, ok := l.Resident("functions_0")
		return ok
	}, time.Second, time.Millisecond)
}

func TestLoaderCanceledBeforeFetch(t *testing.T) {
	t.Parallel()

	l := openLoader(t, os.DirFS("testdata/doxygen"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, "functions_0")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, l.ResidentIDs())
}

func TestLoaderPreload(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"functions_0.js": {Data: []byte(`var searchData=[['foo_0',['foo',['../a.html#x',1,'a.c']]]];`)},
		"functions_1.js": {Data: []byte(`var searchData = "broken";`)},
		"defines_0.js":   {Data: []byte(`var searchData=[['bar_0',['BAR',['../a.html#y',1,'a.h']]]];`)},
	}
	l := openLoader(t, fsys)

	var (
		mu     sync.Mutex
		loaded []string
	)
	err := l.Preload(context.Background(), 2, func(s *shard.Shard) {
		mu.Lock()
		loaded = append(loaded, s.ID)
		mu.Unlock()
	})

	var lerr *shard.LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "functions_1", lerr.ShardID)
	assert.ElementsMatch(t, []string{"functions_0", "defines_0"}, loaded)
	assert.Equal(t, []string{"defines_0", "functions_0"}, l.ResidentIDs())
}

func TestLoaderPackedRoundTrip(t *testing.T) {
	t.Parallel()

	in := &shard.Shard{ID: "functions-c", Section: "functions", Records: []shard.Record{
		{Key: "cgroup_free", Entries: []symbol.Entry{{
			Name:        "cgroup_free",
			DisplayName: "cgroup_free(struct cgroup **cgroup)",
			Locator:     symbol.Locator{Anchor: "group__group__groups.html#gab20f", SourceLabel: "wrapper.c"},
		}}},
		{Key: "cgroup_init", Entries: []symbol.Entry{{
			Name:        "cgroup_init",
			DisplayName: "cgroup_init(void)",
			Locator:     symbol.Locator{Anchor: "group__group__init.html#ga1", SourceLabel: "api.c"},
			Category:    symbol.Function,
		}}},
	}}
	l := openLoader(t, packedFS(t, "first-rune", 0, in))

	s, err := l.Load(context.Background(), "functions-c")
	require.NoError(t, err)
	require.Len(t, s.Records, 2)
	assert.Equal(t, symbol.Function, s.Category)

	e := s.Records[0].Entries[0]
	assert.Equal(t, "cgroup_free", e.Key)
	assert.Equal(t, "functions-c", e.ShardID)
	assert.Equal(t, symbol.Function, e.Category)
	assert.Equal(t, "wrapper.c", e.Locator.SourceLabel)
}
