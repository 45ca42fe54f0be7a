// Package search is the query engine: it turns one keystroke's worth of
// input into a ranked, deduplicated and capped list of symbol hits, loading
// the shards the input needs on the way.
package search

import (
	"context"
	"errors"

	"github.com/bastiangx/docsearch/pkg/symbol"
)

var (
	// ErrStaleQuery is returned when a newer query superseded this one
	// before it finished.
	ErrStaleQuery = errors.New("query superseded by a newer one")
	// ErrClosed is returned by queries on a closed session.
	ErrClosed = errors.New("session closed")
)

// Searcher answers single queries. Engine implements it; sessions accept
// any Searcher.
type Searcher interface {
	// Query returns the ranked hits for raw. Shards that cannot be loaded
	// before ctx ends make the result Degraded rather than failing it.
	Query(ctx context.Context, raw string) (Result, error)
}

// MatchKind classifies how a key matched the input. Lower kinds rank first.
type MatchKind int

const (
	ExactMatch MatchKind = iota
	PrefixMatch
	WordMatch
)

func (k MatchKind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case PrefixMatch:
		return "prefix"
	case WordMatch:
		return "word"
	}
	return "unknown"
}

// Hit is one entry of a result together with how its key matched.
type Hit struct {
	Entry symbol.Entry
	Kind  MatchKind
}

// Result is the answer to one query. Hits are value copies and share no
// state with the index.
type Result struct {
	// Seq is the session sequence number of the query; zero outside sessions.
	Seq uint64
	// Input is the normalized input the hits were computed for.
	Input string
	Hits  []Hit
	// Degraded is set when a relevant shard could not be loaded in time.
	Degraded bool
	// Failed lists the ids of the shards that could not be loaded.
	Failed []string
}

// clone returns a copy of r whose slices can be handed out independently.
func (r Result) clone() Result {
	r.Hits = append([]Hit(nil), r.Hits...)
	r.Failed = append([]string(nil), r.Failed...)
	return r
}
