package search

import (
	"context"
	"errors"
	"sync"

	"github.com/bastiangx/docsearch/internal/logger"
	"github.com/bastiangx/docsearch/internal/metrics"
	"github.com/charmbracelet/log"
)

// Outcome is what a session publishes for a submitted query.
type Outcome struct {
	Result Result
	Err    error
}

// Session sequences the queries of one input field. Every submission gets
// the next sequence number and cancels the query before it; a query only
// publishes if no newer one was submitted in the meantime, so results are
// never delivered out of keystroke order.
type Session struct {
	searcher Searcher
	metrics  *metrics.Metrics
	logger   *log.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	latest  uint64
	cancel  context.CancelFunc
	results chan Outcome
	closed  bool
}

// NewSession creates a session querying searcher. Queries run under ctx;
// canceling it is equivalent to Close.
func NewSession(ctx context.Context, searcher Searcher, m *metrics.Metrics) *Session {
	sctx, stop := context.WithCancel(ctx)
	return &Session{
		searcher: searcher,
		metrics:  m,
		logger:   logger.New("session"),
		ctx:      sctx,
		stop:     stop,
		results:  make(chan Outcome, 1),
	}
}

// Results delivers the outcome of the latest query. Only the most recent
// unread outcome is kept.
func (s *Session) Results() <-chan Outcome {
	return s.results
}

// Submit starts a query for raw and returns its sequence number. The
// previous query, if still running, is canceled and will never publish.
func (s *Session) Submit(raw string) uint64 {
	ctx, seq, ok := s.begin(s.ctx)
	if !ok {
		return seq
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.searcher.Query(ctx, raw)
		res.Seq = seq
		if errors.Is(s.publish(seq, Outcome{Result: res, Err: err}), ErrStaleQuery) {
			s.logger.Debugf("Dropped stale query %d (%q)", seq, raw)
		}
	}()
	return seq
}

// Search runs a query synchronously. It returns ErrStaleQuery if another
// query was submitted to the session before this one finished.
func (s *Session) Search(ctx context.Context, raw string) (Result, error) {
	qctx, seq, ok := s.begin(ctx)
	if !ok {
		return Result{}, ErrClosed
	}

	res, err := s.searcher.Query(qctx, raw)
	res.Seq = seq

	s.mu.Lock()
	stale := seq != s.latest
	s.mu.Unlock()
	if stale {
		s.metrics.StaleQuery()
		return Result{}, ErrStaleQuery
	}
	return res, err
}

// Close cancels the running query and waits for it. No outcome is
// published afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
}

// begin assigns the next sequence number and cancels the previous query.
func (s *Session) begin(parent context.Context) (context.Context, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, s.latest, false
	}
	s.latest++
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, s.latest, true
}

// publish delivers out if seq is still the latest submission, replacing
// any unread outcome.
func (s *Session) publish(seq uint64, out Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.latest || s.closed {
		s.metrics.StaleQuery()
		return ErrStaleQuery
	}
	select {
	case <-s.results:
	default:
	}
	s.results <- out
	return nil
}
