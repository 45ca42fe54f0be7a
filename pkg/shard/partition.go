package shard

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// Partitioner maps a normalized key to the partition of the shard holding it.
type Partitioner interface {
	// Partition returns the partition label for key.
	Partition(key string) string
	// Selective reports whether a query prefix determines its partition.
	// Hash partitions are not selective: a prefix says nothing about the
	// bucket of the keys that extend it.
	Selective() bool
	Name() string
}

// FirstRune partitions by the first rune of the key, the layout Doxygen uses.
type FirstRune struct{}

func (FirstRune) Partition(key string) string {
	r, size := utf8.DecodeRuneInString(key)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return string(r)
}

func (FirstRune) Selective() bool { return true }

func (FirstRune) Name() string { return "first-rune" }

// Hash partitions keys into a fixed number of buckets by xxhash.
type Hash struct {
	Shards int
}

func (h Hash) Partition(key string) string {
	n := h.Shards
	if n <= 0 {
		n = 1
	}
	return strconv.FormatUint(xxhash.Sum64String(key)%uint64(n), 16)
}

func (Hash) Selective() bool { return false }

func (Hash) Name() string { return "hash" }

// NewPartitioner returns the partitioner with the given name.
func NewPartitioner(name string, hashShards int) (Partitioner, error) {
	switch name {
	case "", "first-rune":
		return FirstRune{}, nil
	case "hash":
		if hashShards <= 0 {
			return nil, fmt.Errorf("hash partitioning needs a positive shard count, got %d", hashShards)
		}
		return Hash{Shards: hashShards}, nil
	}
	return nil, fmt.Errorf("unknown partitioner %q", name)
}
