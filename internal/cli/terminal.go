package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	kindStyles = map[search.MatchKind]lipgloss.Style{
		search.ExactMatch:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		search.PrefixMatch: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		search.WordMatch:   lipgloss.NewStyle().Foreground(lipgloss.Color("177")),
	}
)

// view renders prompt output.
type view struct {
	out io.Writer
}

func newView(out io.Writer) *view {
	return &view{out: out}
}

func (v *view) banner() {
	fmt.Fprintln(v.out, titleStyle.Render("docsearch"))
	fmt.Fprintln(v.out, dimStyle.Render("type a symbol and press Enter (:stats, :preload, :quit)"))
}

func (v *view) prompt() {
	fmt.Fprint(v.out, "> ")
}

func (v *view) linef(format string, args ...any) {
	fmt.Fprintln(v.out, dimStyle.Render(fmt.Sprintf(format, args...)))
}

func (v *view) hits(res search.Result, limit int, elapsed time.Duration) {
	hits := res.Hits
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	v.linef("%d of %d matches for '%s' in %v", len(hits), len(res.Hits), res.Input, elapsed)
	for i, h := range hits {
		kind := kindStyles[h.Kind].Render(fmt.Sprintf("%-6s", h.Kind))
		fmt.Fprintf(v.out, "%2d. %s %-48s %s\n",
			i+1, kind, nameStyle.Render(h.Entry.DisplayName),
			dimStyle.Render(fmt.Sprintf("%s  %s  %s", h.Entry.Category, h.Entry.Locator.SourceLabel, h.Entry.Locator.Anchor)))
	}
}

func (v *view) stats(st search.Stats) {
	fmt.Fprintf(v.out, "keys %d, entries %d, generation %d\n", st.Keys, st.Entries, st.Generation)
	fmt.Fprintf(v.out, "shards: %d merged, %d resident, %d available, %d failed\n",
		st.MergedShards, st.ResidentShards, st.AvailableShards, st.FailedShards)

	names := make([]string, 0, len(st.Cache))
	for name := range st.Cache {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(v.out, "  %s: %d\n", name, st.Cache[name])
	}
}
