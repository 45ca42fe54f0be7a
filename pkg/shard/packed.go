package shard

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"

	"github.com/BurntSushi/toml"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// ManifestFile names the catalog of a packed shard directory.
	ManifestFile = "manifest.toml"
	// PackedExt is the file extension of packed shards.
	PackedExt = ".msgpack"

	packedVersion = 1
)

// Manifest lists the shards of a packed directory.
type Manifest struct {
	Version     int             `toml:"version"`
	Partitioner string          `toml:"partitioner"`
	HashShards  int             `toml:"hash_shards,omitempty"`
	Shards      []ManifestShard `toml:"shard"`
}

// ManifestShard describes one packed shard file.
type ManifestShard struct {
	ID        string `toml:"id"`
	Section   string `toml:"section"`
	Partition string `toml:"partition"`
	File      string `toml:"file"`
	Records   int    `toml:"records"`
}

// packedShard is the msgpack body of a packed shard file.
type packedShard struct {
	Version int      `msgpack:"v"`
	ID      string   `msgpack:"id"`
	Section string   `msgpack:"s"`
	Records []Record `msgpack:"r"`
}

// ReadManifest decodes manifest.toml from fsys.
func ReadManifest(fsys fs.FS) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}
	if m.Version != packedVersion {
		return nil, fmt.Errorf("%s: unsupported version %d", ManifestFile, m.Version)
	}
	return &m, nil
}

// WriteManifest encodes m as TOML.
func WriteManifest(w io.Writer, m *Manifest) error {
	m.Version = packedVersion
	return toml.NewEncoder(w).Encode(m)
}

// EncodePacked writes s as a packed shard.
func EncodePacked(w io.Writer, s *Shard) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return enc.Encode(&packedShard{
		Version: packedVersion,
		ID:      s.ID,
		Section: s.Section,
		Records: s.Records,
	})
}

// DecodePacked reads a packed shard. The returned shard is not validated.
func DecodePacked(data []byte) (*Shard, error) {
	var p packedShard
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding packed shard: %w", err)
	}
	if p.Version != packedVersion {
		return nil, fmt.Errorf("packed shard %s: unsupported version %d", p.ID, p.Version)
	}
	return &Shard{
		ID:       p.ID,
		Section:  p.Section,
		Category: symbol.CategoryForSection(p.Section),
		Records:  p.Records,
	}, nil
}
