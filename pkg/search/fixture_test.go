package search_test

import (
	"io/fs"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/stretchr/testify/require"
)

const sectionIndex = `var indexSectionsWithContent =
{
  0: "cw",
  1: "cw",
  2: "c"
};
var indexSectionNames =
{
  0: "all",
  1: "functions",
  2: "typedefs"
};`

// freeOnly is the single cgroup_free record as Doxygen writes it, with the
// declaration and definition tuples repeated.
const freeOnly = `var searchData=
[
  ['cgroup_5ffree_206',['cgroup_free',['../group__group__groups.html#gab20fdb1ae479f8baac482336abf73900',1,'cgroup_free(struct cgroup **cgroup):&#160;wrapper.c'],['../group__group__groups.html#gab20fdb1ae479f8baac482336abf73900',1,'cgroup_free(struct cgroup **cgroup):&#160;wrapper.c']]]
];`

const functionsC = `var searchData=
[
  ['cg_5fchmod_5frecursive_181',['cg_chmod_recursive',['../group__group__groups.html#gaef0b',1,'cg_chmod_recursive(struct cgroup *cgroup, mode_t dir_mode):&#160;api.c']]],
  ['cgroup_5fcreate_5fcgroup_202',['cgroup_create_cgroup',['../group__group__groups.html#gadb8e',1,'cgroup_create_cgroup(struct cgroup *cgroup, int ignore_ownership):&#160;api.c'],['../group__group__groups.html#gadb8e',1,'cgroup_create_cgroup(struct cgroup *cgroup, int ignore_ownership):&#160;api.c']]],
  ['cgroup_5ffree_206',['cgroup_free',['../group__group__groups.html#gab20f',1,'cgroup_free(struct cgroup **cgroup):&#160;wrapper.c'],['../group__group__groups.html#gab20f',1,'cgroup_free(struct cgroup **cgroup):&#160;wrapper.c']]],
  ['cgroup_5ffree_5fcontrollers_207',['cgroup_free_controllers',['../group__group__groups.html#ga92d2',1,'cgroup_free_controllers(struct cgroup *cgroup):&#160;wrapper.c']]],
  ['cgroup_5fwalk_5fhandle_230',['cgroup_walk_handle',['../group__group__iterators.html#ga11',1,'cgroup_walk_handle(void **handle):&#160;api.c']]]
];`

const functionsW = `var searchData=
[
  ['walk_5fhandle_0',['walk_handle',['../walk_8c.html#a1',1,'walk_handle:&#160;walk.c']]]
];`

const typedefsC = `var searchData=
[
  ['cgroup_5ffree_206',['cgroup_free',['../wrapper_8c.html#t1',1,'cgroup_free(struct cgroup **cgroup):&#160;wrapper.c']]]
];`

// libcgroupFS is a small Doxygen search directory: functions for "c" and
// "w" plus typedefs for "c".
func libcgroupFS() fstest.MapFS {
	return fstest.MapFS{
		"searchdata.js":  {Data: []byte(sectionIndex)},
		"functions_0.js": {Data: []byte(functionsC)},
		"functions_1.js": {Data: []byte(functionsW)},
		"typedefs_0.js":  {Data: []byte(typedefsC)},
	}
}

func newLoader(t *testing.T, fsys fs.FS) *shard.Loader {
	t.Helper()
	c, err := shard.OpenCatalog(fsys, shard.CatalogOptions{SkipSections: []string{"all"}})
	require.NoError(t, err)
	return shard.NewLoader(fsys, c)
}

func newEngine(t *testing.T, fsys fs.FS, mutate ...func(*search.Options)) *search.Engine {
	t.Helper()
	opts := search.DefaultOptions()
	for _, m := range mutate {
		m(&opts)
	}
	return search.NewEngine(newLoader(t, fsys), opts, nil)
}

// gatedFS blocks every Open of a gated file until release is closed.
type gatedFS struct {
	fs.FS
	gated   map[string]bool
	release chan struct{}
	waiting atomic.Int32
}

func newGatedFS(fsys fs.FS, gated ...string) *gatedFS {
	g := &gatedFS{FS: fsys, gated: make(map[string]bool), release: make(chan struct{})}
	for _, name := range gated {
		g.gated[name] = true
	}
	return g
}

func (g *gatedFS) Open(name string) (fs.File, error) {
	if g.gated[name] {
		g.waiting.Add(1)
		<-g.release
	}
	return g.FS.Open(name)
}
