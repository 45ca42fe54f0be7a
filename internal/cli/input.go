// Package cli provides an interactive prompt for trying queries against the
// engine in real time while debugging.
package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/charmbracelet/log"
)

// Engine is what the prompt needs from the query engine.
type Engine interface {
	search.Searcher
	Preload(ctx context.Context) error
	Stats() search.Stats
}

// InputHandler reads one query per line and prints its ranked hits.
// Lines starting with ':' are commands: :stats, :preload and :quit.
type InputHandler struct {
	engine  Engine
	session *search.Session
	limit   int
	in      io.Reader
	out     io.Writer
	view    *view
}

// NewInputHandler creates a prompt reading from in and printing to out.
// At most limit hits are printed per query; zero prints all.
func NewInputHandler(ctx context.Context, engine Engine, limit int, in io.Reader, out io.Writer) *InputHandler {
	return &InputHandler{
		engine:  engine,
		session: search.NewSession(ctx, engine, nil),
		limit:   limit,
		in:      in,
		out:     out,
		view:    newView(out),
	}
}

// Start runs the prompt until the input ends or :quit is entered.
func (h *InputHandler) Start(ctx context.Context) error {
	defer h.session.Close()

	h.view.banner()
	reader := bufio.NewReader(h.in)
	for {
		h.view.prompt()
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			if quit := h.handleInput(ctx, line); quit {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handleInput runs one line and reports whether the prompt should end.
func (h *InputHandler) handleInput(ctx context.Context, line string) bool {
	switch line {
	case ":q", ":quit", ":exit":
		return true
	case ":stats":
		h.view.stats(h.engine.Stats())
		return false
	case ":preload":
		start := time.Now()
		if err := h.engine.Preload(ctx); err != nil {
			log.Warnf("Preload incomplete: %v", err)
		}
		h.view.linef("preloaded in %v", time.Since(start))
		return false
	}

	start := time.Now()
	res, err := h.session.Search(ctx, line)
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for input '%s'", elapsed, line)

	if err != nil {
		log.Errorf("Query failed: %v", err)
		return false
	}

	if res.Degraded {
		log.Warnf("Results degraded, shards unavailable: %s", strings.Join(res.Failed, ", "))
	}
	if len(res.Hits) == 0 {
		h.view.linef("no matches for '%s'", line)
		return false
	}
	h.view.hits(res, h.limit, elapsed)
	return false
}
