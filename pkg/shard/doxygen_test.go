package shard_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemangleKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mangled string
		want    string
	}{
		{"cgroup_5ffree_206", "cgroup_free"},
		{"cg_5fchmod_5frecursive_181", "cg_chmod_recursive"},
		{"cgroup_5fcontrol_5fname_5fmax_0", "cgroup_control_name_max"},
		{"_5f_5finit_3", "__init"},
		{"operator_3d_3d_12", "operator=="},
		{"getControllerName_7", "getcontrollername"},
		{"plain", "plain"},
		{"trailing_5", "trailing"},
	}
	for _, tt := range tests {
		t.Run(tt.mangled, func(t *testing.T) {
			assert.Equal(t, tt.want, shard.DemangleKey(tt.mangled))
		})
	}
}

func TestDecodeDoxygenRealShard(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile(filepath.Join("testdata", "doxygen", "functions_0.js"))
	require.NoError(t, err)

	s, problems, err := shard.DecodeDoxygen("functions_0", "functions", data)
	require.NoError(t, err)
	assert.Empty(t, problems)
	assert.Equal(t, symbol.Function, s.Category)
	require.Len(t, s.Records, 86)

	var free *shard.Record
	for i := range s.Records {
		if s.Records[i].Key == "cgroup_free" {
			free = &s.Records[i]
		}
	}
	require.NotNil(t, free, "cgroup_free record")
	require.Len(t, free.Entries, 2)

	e := free.Entries[0]
	assert.Equal(t, "cgroup_free", e.Name)
	assert.Equal(t, "cgroup_free(struct cgroup **cgroup)", e.DisplayName)
	assert.Equal(t, "group__group__groups.html#gab20fdb1ae479f8baac482336abf73900", e.Locator.Anchor)
	assert.Equal(t, "wrapper.c", e.Locator.SourceLabel)
	assert.Equal(t, free.Entries[0], free.Entries[1])
}

func TestDecodeDoxygenScopeWithoutDeclaration(t *testing.T) {
	t.Parallel()

	src := `var searchData=[
  ['cgroup_5ffile_5fmax_1',['CGROUP_FILE_MAX',['../libcgroup_8h.html#a41',1,'libcgroup.h']]]
];`
	s, problems, err := shard.DecodeDoxygen("defines_0", "defines", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, s.Records, 1)

	e := s.Records[0].Entries[0]
	assert.Equal(t, "cgroup_file_max", s.Records[0].Key)
	assert.Equal(t, "CGROUP_FILE_MAX", e.DisplayName)
	assert.Equal(t, "libcgroup.h", e.Locator.SourceLabel)
	assert.Equal(t, "libcgroup_8h.html#a41", e.Locator.Anchor)
}

func TestDecodeDoxygenReportsBadRows(t *testing.T) {
	t.Parallel()

	src := `var searchData=
[
  ['foo_0',['foo',['../a.html#x',1,'foo():&#160;a.c']]],
  [42],
  'not a row',
  ['baz_2',['baz',['../b.html#y',1,'b.c']]],
];`
	s, problems, err := shard.DecodeDoxygen("functions_0", "functions", []byte(src))
	require.NoError(t, err)
	assert.Len(t, problems, 2)
	require.Len(t, s.Records, 2)
	assert.Equal(t, "foo", s.Records[0].Key)
	assert.Equal(t, "baz", s.Records[1].Key)

	var malformed *shard.MalformedRecordError
	require.ErrorAs(t, problems[0], &malformed)
	assert.Equal(t, 1, malformed.Index)
}

func TestDecodeDoxygenRejectsNonArray(t *testing.T) {
	t.Parallel()

	_, _, err := shard.DecodeDoxygen("x_0", "functions", []byte(`var searchData={};`))
	assert.Error(t, err)

	_, _, err = shard.DecodeDoxygen("x_0", "functions", []byte(`var somethingElse=[];`))
	assert.Error(t, err)
}

func TestDecodeDoxygenLiteralSyntax(t *testing.T) {
	t.Parallel()

	// comments, double quotes, escapes and trailing commas all appear in
	// hand-edited or older generated files
	src := `// generated
var searchData = [
  /* first */
  ["a_5fb_0", ["a_b", ["../p.html#q", 1, "a_b(\"x\"):&#160;it\'s.c"], ], ],
];`
	s, problems, err := shard.DecodeDoxygen("functions_0", "functions", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, s.Records, 1)

	e := s.Records[0].Entries[0]
	assert.Equal(t, "a_b", s.Records[0].Key)
	assert.Equal(t, `a_b("x")`, e.DisplayName)
	assert.Equal(t, "it's.c", e.Locator.SourceLabel)
}

func TestParseSectionIndex(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile(filepath.Join("testdata", "doxygen", "searchdata.js"))
	require.NoError(t, err)

	idx, err := shard.ParseSectionIndex(data)
	require.NoError(t, err)
	assert.Equal(t, "functions", idx.Names[1])
	assert.Equal(t, "c", idx.Partition("functions", 0))
	assert.Equal(t, "", idx.Partition("functions", 1))
	assert.Equal(t, "", idx.Partition("classes", 0))
}
