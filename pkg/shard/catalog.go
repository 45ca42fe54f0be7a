package shard

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/charmbracelet/log"
)

// Descriptor identifies one shard file without loading it.
type Descriptor struct {
	ID       string
	Section  string
	Category symbol.Category
	// Partition is the label the partitioner assigns to every key of the
	// shard; empty when unknown, in which case the shard is always relevant.
	Partition string
	File      string
}

// CatalogOptions configure how a shard directory is cataloged.
type CatalogOptions struct {
	// SkipSections excludes whole sections, e.g. Doxygen's "all" section
	// which repeats every other section without categories.
	SkipSections []string
}

// Catalog is the set of shards available in a directory.
type Catalog struct {
	layout      Layout
	partitioner Partitioner
	shards      []Descriptor
	byID        map[string]Descriptor
}

// OpenCatalog scans fsys and returns its catalog.
func OpenCatalog(fsys fs.FS, opts CatalogOptions) (*Catalog, error) {
	layout, err := DetectLayout(fsys)
	if err != nil {
		return nil, err
	}

	var (
		shards      []Descriptor
		partitioner Partitioner = FirstRune{}
	)
	switch layout {
	case LayoutPacked:
		shards, partitioner, err = packedDescriptors(fsys)
	case LayoutDoxygen:
		shards, err = doxygenDescriptors(fsys)
	default:
		err = ErrUnknownLayout
	}
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(opts.SkipSections))
	for _, s := range opts.SkipSections {
		skip[s] = true
	}
	c := &Catalog{
		layout:      layout,
		partitioner: partitioner,
		byID:        make(map[string]Descriptor, len(shards)),
	}
	for _, d := range shards {
		if skip[d.Section] {
			continue
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate shard id %q", d.ID)
		}
		c.byID[d.ID] = d
		c.shards = append(c.shards, d)
	}
	sort.Slice(c.shards, func(i, j int) bool {
		return c.shards[i].ID < c.shards[j].ID
	})

	log.Debugf("Cataloged %d shards (%s, %s partitions)", len(c.shards), layout, partitioner.Name())
	return c, nil
}

// NewCatalog builds a catalog from explicit descriptors.
func NewCatalog(layout Layout, partitioner Partitioner, shards []Descriptor) *Catalog {
	c := &Catalog{
		layout:      layout,
		partitioner: partitioner,
		byID:        make(map[string]Descriptor, len(shards)),
	}
	for _, d := range shards {
		c.byID[d.ID] = d
		c.shards = append(c.shards, d)
	}
	return c
}

// Layout returns the layout the catalog was read from.
func (c *Catalog) Layout() Layout { return c.layout }

// Partitioner returns the partition function the shards were built with.
func (c *Catalog) Partitioner() Partitioner { return c.partitioner }

// Shards returns every cataloged shard ordered by id.
func (c *Catalog) Shards() []Descriptor {
	out := make([]Descriptor, len(c.shards))
	copy(out, c.shards)
	return out
}

// Lookup returns the descriptor for id.
func (c *Catalog) Lookup(id string) (Descriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Relevant returns the shards that may hold keys starting with the
// normalized input.
func (c *Catalog) Relevant(input string) []Descriptor {
	if input == "" {
		return nil
	}
	if !c.partitioner.Selective() {
		return c.Shards()
	}
	want := c.partitioner.Partition(input)
	var out []Descriptor
	for _, d := range c.shards {
		if d.Partition == "" || d.Partition == want {
			out = append(out, d)
		}
	}
	return out
}

func packedDescriptors(fsys fs.FS) ([]Descriptor, Partitioner, error) {
	m, err := ReadManifest(fsys)
	if err != nil {
		return nil, nil, err
	}
	p, err := NewPartitioner(m.Partitioner, m.HashShards)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ManifestFile, err)
	}
	shards := make([]Descriptor, 0, len(m.Shards))
	for _, s := range m.Shards {
		shards = append(shards, Descriptor{
			ID:        s.ID,
			Section:   s.Section,
			Category:  symbol.CategoryForSection(s.Section),
			Partition: s.Partition,
			File:      s.File,
		})
	}
	return shards, p, nil
}

func doxygenDescriptors(fsys fs.FS) ([]Descriptor, error) {
	var sections *SectionIndex
	if data, err := fs.ReadFile(fsys, SectionIndexFile); err == nil {
		sections, err = ParseSectionIndex(data)
		if err != nil {
			log.Warnf("Ignoring unreadable %s: %v", SectionIndexFile, err)
			sections = nil
		}
	}

	files, err := fs.Glob(fsys, "*.js")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for shard files: %w", err)
	}
	var shards []Descriptor
	for _, file := range files {
		if file == SectionIndexFile {
			continue
		}
		section, fileNo, ok := splitDoxygenName(file)
		if !ok {
			log.Debugf("Skipping %s: not a <section>_<n>.js shard name", file)
			continue
		}
		d := Descriptor{
			ID:       strings.TrimSuffix(file, path.Ext(file)),
			Section:  section,
			Category: symbol.CategoryForSection(section),
			File:     file,
		}
		if sections != nil {
			d.Partition = sections.Partition(section, fileNo)
		}
		shards = append(shards, d)
	}
	if len(shards) == 0 {
		return nil, ErrUnknownLayout
	}
	return shards, nil
}

// splitDoxygenName splits "functions_1a.js" into ("functions", 26).
func splitDoxygenName(file string) (string, int, bool) {
	stem := strings.TrimSuffix(file, path.Ext(file))
	at := strings.LastIndexByte(stem, '_')
	if at <= 0 {
		return "", 0, false
	}
	n, err := strconv.ParseInt(stem[at+1:], 16, 32)
	if err != nil {
		return "", 0, false
	}
	return stem[:at], int(n), true
}
