package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSpans(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"cgroup_free", []string{"cgroup", "free"}},
		{"cgroupFreeAll", []string{"cgroup", "Free", "All"}},
		{"std::vector", []string{"std", "vector"}},
		{"__init__", []string{"init"}},
		{"HTTPServer", []string{"HTTPServer"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got []string
			for _, s := range TokenSpans(tt.in) {
				got = append(got, tt.in[s.Start:s.End])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "cgroup free", CollapseSpace("  cgroup \t free\n"))
	assert.Equal(t, "", CollapseSpace("   "))
}

func TestCreateRankList(t *testing.T) {
	assert.Equal(t, []uint16{1, 2, 3}, CreateRankList(3))
	assert.Empty(t, CreateRankList(0))
	assert.Equal(t, uint16(1<<16-1), CreateRankList(70000)[69999])
}

func TestExtractors(t *testing.T) {
	data := map[string]any{
		"n":     int64(7),
		"b":     true,
		"s":     "first-rune",
		"list":  []any{"type", "function"},
		"mixed": []any{"type", int64(1)},
	}

	n, ok := ExtractInt64(data, "n")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = ExtractInt64(data, "s")
	assert.False(t, ok)

	b, ok := ExtractBool(data, "b")
	assert.True(t, ok)
	assert.True(t, b)

	s, ok := ExtractString(data, "s")
	assert.True(t, ok)
	assert.Equal(t, "first-rune", s)

	list, ok := ExtractStrings(data, "list")
	assert.True(t, ok)
	assert.Equal(t, []string{"type", "function"}, list)

	_, ok = ExtractStrings(data, "mixed")
	assert.False(t, ok)
}

func TestSaveTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	require.NoError(t, SaveTOMLFile(map[string]int{"max_results": 5}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_results = 5")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")
}

func TestGetDataDir(t *testing.T) {
	root := t.TempDir()
	search := filepath.Join(root, "html", "search")
	require.NoError(t, os.MkdirAll(search, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(search, "searchdata.js"), []byte("var x={};"), 0644))

	pr, err := NewPathResolver("searchdata.js", "manifest.toml")
	require.NoError(t, err)

	got, err := pr.GetDataDir(root)
	require.NoError(t, err)
	assert.Equal(t, search, got)

	_, err = pr.GetDataDir(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, ErrNoDataDir)
}
