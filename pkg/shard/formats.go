package shard

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/charmbracelet/log"
)

// Layout represents the on-disk organization of a shard directory
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutDoxygen        // searchdata.js + <section>_<hex>.js
	LayoutPacked         // manifest.toml + msgpack shards
)

// SectionIndexFile names the Doxygen section index.
const SectionIndexFile = "searchdata.js"

// LayoutInfo contains metadata about a shard layout
type LayoutInfo struct {
	Layout      Layout
	Description string
	Marker      string   // File whose presence identifies the layout
	Extensions  []string // Extensions of shard files
	MinSize     int64    // Minimum size of a usable shard file in bytes
}

var supportedLayouts = map[Layout]LayoutInfo{
	LayoutDoxygen: {
		Layout:      LayoutDoxygen,
		Description: "Doxygen search data",
		Marker:      SectionIndexFile,
		Extensions:  []string{".js"},
		MinSize:     int64(len("var searchData=[];")),
	},
	LayoutPacked: {
		Layout:      LayoutPacked,
		Description: "Packed msgpack shards",
		Marker:      ManifestFile,
		Extensions:  []string{PackedExt},
		MinSize:     1,
	},
}

func (l Layout) String() string {
	if info, ok := supportedLayouts[l]; ok {
		return info.Description
	}
	return "unknown"
}

// DetectLayout inspects the root of fsys and reports its layout.
// A manifest wins over Doxygen files; Doxygen shard files without a
// searchdata.js are still recognized.
func DetectLayout(fsys fs.FS) (Layout, error) {
	if _, err := fs.Stat(fsys, ManifestFile); err == nil {
		return LayoutPacked, nil
	}
	if _, err := fs.Stat(fsys, SectionIndexFile); err == nil {
		return LayoutDoxygen, nil
	}
	matches, err := fs.Glob(fsys, "*.js")
	if err != nil {
		return LayoutUnknown, fmt.Errorf("failed to scan for shard files: %w", err)
	}
	if len(matches) > 0 {
		log.Debugf("No %s found, treating %d script files as Doxygen shards", SectionIndexFile, len(matches))
		return LayoutDoxygen, nil
	}
	return LayoutUnknown, ErrUnknownLayout
}

// ValidateShardFile checks that a shard file exists, has an extension valid
// for the layout and is not too small to hold a shard.
func ValidateShardFile(fsys fs.FS, name string, layout Layout) error {
	info, exists := supportedLayouts[layout]
	if !exists {
		return fmt.Errorf("unknown layout: %v", layout)
	}

	fi, err := fs.Stat(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to stat shard %s: %w", name, err)
	}
	if fi.Size() < info.MinSize {
		return fmt.Errorf("shard %s is too small (%d bytes) for layout %s (minimum: %d bytes)",
			name, fi.Size(), info.Description, info.MinSize)
	}

	ext := strings.ToLower(path.Ext(name))
	for _, valid := range info.Extensions {
		if ext == valid {
			return nil
		}
	}
	return fmt.Errorf("shard %s has invalid extension %s for layout %s (expected: %v)",
		name, ext, info.Description, info.Extensions)
}

// GetLayoutInfo returns information about a specific layout
func GetLayoutInfo(layout Layout) (LayoutInfo, bool) {
	info, exists := supportedLayouts[layout]
	return info, exists
}
