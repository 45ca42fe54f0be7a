package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bastiangx/docsearch/internal/logger"
	"github.com/bastiangx/docsearch/internal/metrics"
	"github.com/bastiangx/docsearch/internal/utils"
	"github.com/bastiangx/docsearch/pkg/config"
	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// LoaderFunc opens a fresh loader over the shard directory for reloads.
type LoaderFunc func() (*shard.Loader, error)

// pending is a query waiting for its outcome.
type pending struct {
	id    string
	limit int
	start time.Time
}

// Server handles the IPC for symbol search
type Server struct {
	engine  *search.Engine
	open    LoaderFunc
	limits  config.ServerConfig
	metrics *metrics.Metrics
	logger  *log.Logger

	reader io.Reader
	writer *bufio.Writer
	wmu    sync.Mutex

	mu      sync.Mutex
	idle    *sync.Cond
	waiting map[uint64]pending
}

// Option customizes a Server.
type Option func(*Server)

// WithIO replaces stdin and stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.reader = r
		s.writer = bufio.NewWriter(w)
	}
}

// WithLimits sets the default and maximum result counts.
func WithLimits(limits config.ServerConfig) Option {
	return func(s *Server) { s.limits = limits }
}

// WithReload enables the reload action.
func WithReload(open LoaderFunc) Option {
	return func(s *Server) { s.open = open }
}

// WithMetrics records stale queries of the server's session.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a search server over engine using stdin/stdout for IPC.
func NewServer(engine *search.Engine, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		limits:  config.DefaultConfig().Server,
		logger:  logger.New("server"),
		reader:  os.Stdin,
		writer:  bufio.NewWriter(os.Stdout),
		waiting: make(map[uint64]pending),
	}
	s.idle = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start serves requests until the input ends or ctx is canceled. Queries
// still running when the input ends are answered before Start returns.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting Server.")

	session := search.NewSession(ctx, s.engine, s.metrics)
	pctx, stop := context.WithCancel(ctx)
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		s.publish(pctx, session)
	}()
	defer func() {
		session.Close()
		stop()
		<-publisherDone
	}()

	s.send(map[string]string{"status": "ready"})

	dec := msgpack.NewDecoder(bufio.NewReader(s.reader))
	for {
		raw, err := dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.waitIdle()
				return nil
			}
			s.logger.Errorf("Reading request: %v", err)
			s.sendError("", "malformed message stream", 400)
			return fmt.Errorf("reading request: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.logger.Warnf("Invalid request: %v", err)
			s.sendError("", "invalid request", 400)
			continue
		}
		s.handleRequest(ctx, session, req)
	}
}

// handleRequest dispatches one decoded request.
func (s *Server) handleRequest(ctx context.Context, session *search.Session, req Request) {
	switch req.Action {
	case "":
		// registered before the publisher can see the outcome
		s.mu.Lock()
		start := time.Now()
		seq := session.Submit(req.Query)
		s.waiting[seq] = pending{id: req.ID, limit: s.limits.Limit(req.Limit), start: start}
		s.mu.Unlock()
	case "stats":
		st := s.engine.Stats()
		s.send(ControlResponse{ID: req.ID, Status: "ok", Stats: &StatsPayload{
			Keys:            st.Keys,
			Entries:         st.Entries,
			Generation:      st.Generation,
			MergedShards:    st.MergedShards,
			AvailableShards: st.AvailableShards,
			ResidentShards:  st.ResidentShards,
			FailedShards:    st.FailedShards,
			Cache:           st.Cache,
		}})
	case "preload":
		s.control(req.ID, s.engine.Preload(ctx))
	case "reload":
		s.control(req.ID, s.reload(ctx))
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown action: %s", req.Action), 400)
	}
}

func (s *Server) reload(ctx context.Context) error {
	if s.open == nil {
		return errors.New("reload is not available")
	}
	loader, err := s.open()
	if err != nil {
		return err
	}
	return s.engine.Reload(ctx, loader)
}

// control reports the outcome of a control action. Partial failures still
// leave the engine usable, so they are reported with status "partial".
func (s *Server) control(id string, err error) {
	if err == nil {
		s.send(ControlResponse{ID: id, Status: "ok"})
		return
	}
	s.logger.Warn("Control action failed", "id", id, "err", err)
	var lerr *shard.LoadError
	if errors.As(err, &lerr) {
		s.send(ControlResponse{ID: id, Status: "partial", Error: err.Error()})
		return
	}
	s.send(ControlResponse{ID: id, Status: "error", Error: err.Error()})
}

// publish writes the outcome of every query that was not superseded and
// forgets the superseded ones.
func (s *Server) publish(ctx context.Context, session *search.Session) {
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			clear(s.waiting)
			s.idle.Broadcast()
			s.mu.Unlock()
			return
		case out := <-session.Results():
			seq := out.Result.Seq
			s.mu.Lock()
			p, ok := s.waiting[seq]
			s.mu.Unlock()
			if ok {
				s.respond(p, out)
			}

			s.mu.Lock()
			for waiting := range s.waiting {
				if waiting <= seq {
					delete(s.waiting, waiting)
				}
			}
			s.idle.Broadcast()
			s.mu.Unlock()
		}
	}
}

func (s *Server) respond(p pending, out search.Outcome) {
	if out.Err != nil {
		s.sendError(p.id, out.Err.Error(), 500)
		return
	}

	hits := out.Result.Hits
	if p.limit > 0 && len(hits) > p.limit {
		hits = hits[:p.limit]
	}
	ranks := utils.CreateRankList(len(hits))
	payload := make([]HitPayload, len(hits))
	for i, h := range hits {
		payload[i] = HitPayload{
			Key:         h.Entry.Key,
			Name:        h.Entry.Name,
			DisplayName: h.Entry.DisplayName,
			Anchor:      h.Entry.Locator.Anchor,
			SourceLabel: h.Entry.Locator.SourceLabel,
			Category:    h.Entry.Category.String(),
			Match:       h.Kind.String(),
			Rank:        ranks[i],
		}
	}
	s.send(QueryResponse{
		ID:        p.id,
		Seq:       out.Result.Seq,
		Hits:      payload,
		Count:     len(payload),
		Degraded:  out.Result.Degraded,
		Failed:    out.Result.Failed,
		TimeTaken: time.Since(p.start).Microseconds(),
	})
}

// waitIdle blocks until every submitted query was answered or superseded.
func (s *Server) waitIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.waiting) > 0 {
		s.idle.Wait()
	}
}

// send encodes one response and flushes it.
func (s *Server) send(response any) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	data, err := msgpack.Marshal(response)
	if err != nil {
		s.logger.Errorf("Marshaling response: %v", err)
		return
	}
	if _, err := s.writer.Write(data); err != nil {
		s.logger.Errorf("Writing response: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		s.logger.Errorf("Flushing response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
