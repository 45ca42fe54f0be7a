package shard

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/bastiangx/docsearch/internal/utils"
	"github.com/charmbracelet/log"
)

// Repartition regroups the records of shards into the partitions of p,
// section by section, and returns the packed shards with their manifest.
// Records sharing a key within one section are merged.
func Repartition(shards []*Shard, p Partitioner) ([]*Shard, *Manifest) {
	type bucketKey struct{ section, label string }
	buckets := make(map[bucketKey]*Shard)
	positions := make(map[bucketKey]map[string]int)

	for _, s := range shards {
		for _, rec := range s.Records {
			bk := bucketKey{s.Section, p.Partition(rec.Key)}
			b, ok := buckets[bk]
			if !ok {
				b = &Shard{
					ID:       fmt.Sprintf("%s_%x", bk.section, bk.label),
					Section:  s.Section,
					Category: s.Category,
				}
				buckets[bk] = b
				positions[bk] = make(map[string]int)
			}
			if at, ok := positions[bk][rec.Key]; ok {
				b.Records[at].Entries = append(b.Records[at].Entries, rec.Entries...)
				continue
			}
			positions[bk][rec.Key] = len(b.Records)
			b.Records = append(b.Records, Record{Key: rec.Key, Entries: slices.Clone(rec.Entries)})
		}
	}

	m := &Manifest{Version: packedVersion, Partitioner: p.Name()}
	if h, ok := p.(Hash); ok {
		m.HashShards = h.Shards
	}
	packed := make([]*Shard, 0, len(buckets))
	for bk, b := range buckets {
		sort.Slice(b.Records, func(i, j int) bool {
			return b.Records[i].Key < b.Records[j].Key
		})
		packed = append(packed, b)
		m.Shards = append(m.Shards, ManifestShard{
			ID:        b.ID,
			Section:   b.Section,
			Partition: bk.label,
			File:      b.ID + PackedExt,
			Records:   len(b.Records),
		})
	}
	sort.Slice(packed, func(i, j int) bool { return packed[i].ID < packed[j].ID })
	sort.Slice(m.Shards, func(i, j int) bool { return m.Shards[i].ID < m.Shards[j].ID })
	return packed, m
}

// WritePackedDir writes shards and their manifest into dir, creating it if
// needed. The manifest is written last so a partially written directory is
// never mistaken for a packed one.
func WritePackedDir(dir string, shards []*Shard, m *Manifest) error {
	if err := utils.EnsureDir(dir); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, s := range shards {
		if err := writeFile(filepath.Join(dir, s.ID+PackedExt), func(w *bufio.Writer) error {
			return EncodePacked(w, s)
		}); err != nil {
			return err
		}
	}
	if err := writeFile(filepath.Join(dir, ManifestFile), func(w *bufio.Writer) error {
		return WriteManifest(w, m)
	}); err != nil {
		return err
	}
	log.Debugf("Packed %d shards into %s", len(shards), dir)
	return nil
}

func writeFile(path string, encode func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := encode(w); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
