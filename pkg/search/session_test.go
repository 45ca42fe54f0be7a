package search_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/docsearch/internal/metrics"
	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSearcher answers every query with its input. Queries for gated inputs
// block until the gate is closed, ignoring cancellation like a fetch that
// has already left the process, unless cancelable is set.
type stubSearcher struct {
	cancelable bool

	mu       sync.Mutex
	gates    map[string]chan struct{}
	started  map[string]bool
	canceled map[string]error
}

func newStubSearcher(gated ...string) *stubSearcher {
	s := &stubSearcher{
		gates:    make(map[string]chan struct{}),
		started:  make(map[string]bool),
		canceled: make(map[string]error),
	}
	for _, in := range gated {
		s.gates[in] = make(chan struct{})
	}
	return s
}

func (s *stubSearcher) Query(ctx context.Context, raw string) (search.Result, error) {
	s.mu.Lock()
	gate := s.gates[raw]
	s.started[raw] = true
	s.mu.Unlock()
	if gate != nil {
		if s.cancelable {
			select {
			case <-gate:
			case <-ctx.Done():
			}
		} else {
			<-gate
		}
	}

	s.mu.Lock()
	s.canceled[raw] = ctx.Err()
	s.mu.Unlock()
	return search.Result{Input: raw}, nil
}

func (s *stubSearcher) open(raw string) {
	close(s.gates[raw])
}

func (s *stubSearcher) hasStarted(raw string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started[raw]
}

func (s *stubSearcher) ctxErr(raw string) (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err, ok := s.canceled[raw]
	return err, ok
}

func receive(t *testing.T, s *search.Session) search.Outcome {
	t.Helper()
	select {
	case out := <-s.Results():
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome published")
	}
	return search.Outcome{}
}

func TestSessionDropsSupersededQuery(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	stub := newStubSearcher("cg")
	s := search.NewSession(context.Background(), stub, m)
	defer s.Close()

	assert.Equal(t, uint64(1), s.Submit("cg"))
	assert.Equal(t, uint64(2), s.Submit("cgroup_free"))

	out := receive(t, s)
	require.NoError(t, out.Err)
	assert.Equal(t, uint64(2), out.Result.Seq)
	assert.Equal(t, "cgroup_free", out.Result.Input)

	// the first query completes after the second and must not publish
	stub.open("cg")
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.StaleQueriesTotal) == 1
	}, 5*time.Second, 5*time.Millisecond)

	select {
	case out := <-s.Results():
		t.Fatalf("stale outcome published: %+v", out)
	default:
	}

	err, ok := stub.ctxErr("cg")
	require.True(t, ok)
	assert.ErrorIs(t, err, context.Canceled, "submitting cancels the previous query")
}

func TestSessionPublishesInOrder(t *testing.T) {
	t.Parallel()

	s := search.NewSession(context.Background(), newStubSearcher(), nil)
	defer s.Close()

	for i, in := range []string{"c", "cg", "cgr"} {
		seq := s.Submit(in)
		out := receive(t, s)
		assert.Equal(t, uint64(i+1), seq)
		assert.Equal(t, seq, out.Result.Seq)
		assert.Equal(t, in, out.Result.Input)
	}
}

func TestSessionOverEngine(t *testing.T) {
	t.Parallel()

	g := newGatedFS(libcgroupFS(), "functions_0.js")
	e := newEngine(t, g, func(o *search.Options) { o.LoadTimeout = 0 })
	s := search.NewSession(context.Background(), e, nil)
	defer s.Close()

	s.Submit("cg")
	require.Eventually(t, func() bool { return g.waiting.Load() >= 1 }, 5*time.Second, time.Millisecond)
	s.Submit("cgroup_free")
	close(g.release)

	out := receive(t, s)
	require.NoError(t, out.Err)
	assert.Equal(t, uint64(2), out.Result.Seq)
	assert.False(t, out.Result.Degraded)
	require.Len(t, out.Result.Hits, 3)
	assert.Equal(t, search.ExactMatch, out.Result.Hits[0].Kind)

	select {
	case out := <-s.Results():
		t.Fatalf("unexpected second outcome for seq %d", out.Result.Seq)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionSearchStale(t *testing.T) {
	t.Parallel()

	stub := newStubSearcher("slow")
	s := search.NewSession(context.Background(), stub, nil)
	defer s.Close()

	done := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "slow")
		done <- err
	}()

	require.Eventually(t, func() bool { return stub.hasStarted("slow") }, 5*time.Second, time.Millisecond)
	s.Submit("fast")
	stub.open("slow")

	assert.ErrorIs(t, <-done, search.ErrStaleQuery)
}

func TestSessionSearch(t *testing.T) {
	t.Parallel()

	s := search.NewSession(context.Background(), newStubSearcher(), nil)
	defer s.Close()

	res, err := s.Search(context.Background(), "cgroup")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Seq)
	assert.Equal(t, "cgroup", res.Input)
}

func TestSessionClose(t *testing.T) {
	t.Parallel()

	stub := newStubSearcher("cg")
	stub.cancelable = true
	s := search.NewSession(context.Background(), stub, nil)
	s.Submit("cg")
	require.Eventually(t, func() bool { return stub.hasStarted("cg") }, 5*time.Second, time.Millisecond)

	s.Close()
	err, ok := stub.ctxErr("cg")
	require.True(t, ok, "Close waits for the running query")
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case out := <-s.Results():
		t.Fatalf("outcome published after close: %+v", out)
	default:
	}

	_, err = s.Search(context.Background(), "cg")
	assert.ErrorIs(t, err, search.ErrClosed)
	assert.Equal(t, uint64(1), s.Submit("cgroup"), "closed sessions do not advance")
}
