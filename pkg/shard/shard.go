/*
Package shard loads documentation search shards.

A shard is one partition of the full symbol vocabulary: an ordered list of
records, each a normalized key with one or more entries. Shards are produced
by the documentation build and are read-only here. Two on-disk layouts are
understood:

	doxygen  searchdata.js + <section>_<hex>.js files as emitted by Doxygen
	packed   manifest.toml + msgpack shard files written by `docsearch pack`

The Loader fetches shards on demand, memoized by shard id, and never lets a
bad record or a bad shard take the process down: malformed records are
dropped with a warning and shard failures surface as *LoadError.
*/
package shard

import (
	"errors"
	"fmt"

	"github.com/bastiangx/docsearch/pkg/symbol"
)

var (
	// ErrUnknownShard is returned when a shard id is not in the catalog.
	ErrUnknownShard = errors.New("unknown shard")
	// ErrUnknownLayout is returned when a directory holds no recognizable shards.
	ErrUnknownLayout = errors.New("unknown shard layout")
	// ErrRetriesExhausted is returned for shards that failed too many times.
	ErrRetriesExhausted = errors.New("shard load retries exhausted")
)

// Record is one key of a shard with its entries, in shard order.
type Record struct {
	Key     string         `msgpack:"k"`
	Entries []symbol.Entry `msgpack:"e"`
}

// Shard is a loaded, validated shard.
type Shard struct {
	ID       string
	Section  string
	Category symbol.Category
	Records  []Record
}

// EntryCount returns the number of entries across all records.
func (s *Shard) EntryCount() int {
	n := 0
	for _, r := range s.Records {
		n += len(r.Entries)
	}
	return n
}

// LoadError reports a shard that could not be fetched or parsed.
type LoadError struct {
	ShardID string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading shard %s: %v", e.ShardID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// MalformedRecordError reports a single record or entry dropped from an
// otherwise usable shard.
type MalformedRecordError struct {
	ShardID string
	Index   int
	Key     string
	Reason  string
}

func (e *MalformedRecordError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("shard %s record %d (%s): %s", e.ShardID, e.Index, e.Key, e.Reason)
	}
	return fmt.Sprintf("shard %s record %d: %s", e.ShardID, e.Index, e.Reason)
}

// validate drops invalid entries and empty records, preserving order.
// Keys are deduplicated within the shard by folding later records into the
// first record with the same key.
func validate(s *Shard) []error {
	var problems []error
	records := make([]Record, 0, len(s.Records))
	position := make(map[string]int, len(s.Records))

	for i, rec := range s.Records {
		if rec.Key == "" {
			problems = append(problems, &MalformedRecordError{ShardID: s.ID, Index: i, Reason: "empty key"})
			continue
		}
		kept := make([]symbol.Entry, 0, len(rec.Entries))
		for _, e := range rec.Entries {
			e.Key = rec.Key
			e.ShardID = s.ID
			if e.Category == symbol.Unknown {
				e.Category = s.Category
			}
			if err := e.Validate(); err != nil {
				problems = append(problems, &MalformedRecordError{ShardID: s.ID, Index: i, Key: rec.Key, Reason: err.Error()})
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			problems = append(problems, &MalformedRecordError{ShardID: s.ID, Index: i, Key: rec.Key, Reason: "no valid entries"})
			continue
		}
		if at, ok := position[rec.Key]; ok {
			records[at].Entries = append(records[at].Entries, kept...)
			continue
		}
		position[rec.Key] = len(records)
		records = append(records, Record{Key: rec.Key, Entries: kept})
	}
	s.Records = records
	return problems
}
