package shard_test

import (
	"bytes"
	"os"
	"testing"
	"testing/fstest"

	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptorIDs(ds []shard.Descriptor) []string {
	ids := make([]string, 0, len(ds))
	for _, d := range ds {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestOpenCatalogDoxygen(t *testing.T) {
	t.Parallel()

	c, err := shard.OpenCatalog(os.DirFS("testdata/doxygen"), shard.CatalogOptions{SkipSections: []string{"all"}})
	require.NoError(t, err)
	assert.Equal(t, shard.LayoutDoxygen, c.Layout())
	assert.Equal(t, []string{"defines_0", "functions_0"}, descriptorIDs(c.Shards()))

	d, ok := c.Lookup("functions_0")
	require.True(t, ok)
	assert.Equal(t, "functions", d.Section)
	assert.Equal(t, symbol.Function, d.Category)
	assert.Equal(t, "c", d.Partition)
	assert.Equal(t, "functions_0.js", d.File)

	_, ok = c.Lookup("all_0")
	assert.False(t, ok, "skipped section")
}

func TestCatalogRelevant(t *testing.T) {
	t.Parallel()

	c, err := shard.OpenCatalog(os.DirFS("testdata/doxygen"), shard.CatalogOptions{SkipSections: []string{"all"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"defines_0", "functions_0"}, descriptorIDs(c.Relevant("cgroup_f")))
	assert.Empty(t, c.Relevant("walk"))
	assert.Nil(t, c.Relevant(""))
}

func TestCatalogWithoutSectionIndex(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"functions_0.js": {Data: []byte(`var searchData=[['foo_0',['foo',['../a.html#x',1,'a.c']]]];`)},
		"functions_1.js": {Data: []byte(`var searchData=[['bar_0',['bar',['../a.html#y',1,'a.c']]]];`)},
		"notes.js":       {Data: []byte(`var x=1;`)},
	}
	c, err := shard.OpenCatalog(fsys, shard.CatalogOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"functions_0", "functions_1"}, descriptorIDs(c.Shards()))

	// an unknown partition makes every shard relevant
	assert.Len(t, c.Relevant("zzz"), 2)
}

func TestOpenCatalogUnknownLayout(t *testing.T) {
	t.Parallel()

	_, err := shard.OpenCatalog(fstest.MapFS{"README": {Data: []byte("hi")}}, shard.CatalogOptions{})
	assert.ErrorIs(t, err, shard.ErrUnknownLayout)
}

func packedFS(t *testing.T, partitioner string, hashShards int, shards ...*shard.Shard) fstest.MapFS {
	t.Helper()

	fsys := fstest.MapFS{}
	m := &shard.Manifest{Partitioner: partitioner, HashShards: hashShards}
	p, err := shard.NewPartitioner(partitioner, hashShards)
	require.NoError(t, err)
	for _, s := range shards {
		var buf bytes.Buffer
		require.NoError(t, shard.EncodePacked(&buf, s))
		file := s.ID + shard.PackedExt
		fsys[file] = &fstest.MapFile{Data: buf.Bytes()}
		partition := ""
		if len(s.Records) > 0 && p.Selective() {
			partition = p.Partition(s.Records[0].Key)
		}
		m.Shards = append(m.Shards, shard.ManifestShard{
			ID:        s.ID,
			Section:   s.Section,
			Partition: partition,
			File:      file,
			Records:   len(s.Records),
		})
	}
	var buf bytes.Buffer
	require.NoError(t, shard.WriteManifest(&buf, m))
	fsys[shard.ManifestFile] = &fstest.MapFile{Data: buf.Bytes()}
	return fsys
}

func TestOpenCatalogPacked(t *testing.T) {
	t.Parallel()

	fsys := packedFS(t, "hash", 2,
		&shard.Shard{ID: "functions-0", Section: "functions", Records: []shard.Record{
			{Key: "cgroup_free", Entries: []symbol.Entry{{Name: "cgroup_free", DisplayName: "cgroup_free()", Locator: symbol.Locator{Anchor: "g.html#a"}}}},
		}},
		&shard.Shard{ID: "defines-0", Section: "defines"},
	)

	c, err := shard.OpenCatalog(fsys, shard.CatalogOptions{})
	require.NoError(t, err)
	assert.Equal(t, shard.LayoutPacked, c.Layout())
	assert.Equal(t, "hash", c.Partitioner().Name())
	assert.Equal(t, []string{"defines-0", "functions-0"}, descriptorIDs(c.Shards()))
	assert.Len(t, c.Relevant("cg"), 2, "hash partitions are never selective")
}

func TestReadManifestRejectsVersion(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{shard.ManifestFile: {Data: []byte("version = 7\n")}}
	_, err := shard.ReadManifest(fsys)
	assert.Error(t, err)
}

func TestDetectLayoutPrefersManifest(t *testing.T) {
	t.Parallel()

	fsys := packedFS(t, "first-rune", 0)
	fsys["searchdata.js"] = &fstest.MapFile{Data: []byte("var indexSectionNames={};")}

	layout, err := shard.DetectLayout(fsys)
	require.NoError(t, err)
	assert.Equal(t, shard.LayoutPacked, layout)
}
