package main

import (
	"sort"

	"github.com/bastiangx/docsearch/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Run prints the version banner.
func (c *VersionCmd) Run(deps *Dependencies) error {
	logger := log.NewWithOptions(deps.Stdout, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ DocSearch ] Symbol search for every keystroke")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)

	if !c.Paths {
		return nil
	}
	pr, err := utils.NewPathResolver(dataMarkers...)
	if err != nil {
		return err
	}
	info := pr.GetRuntimeInfo()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	logger.Print("")
	for _, k := range keys {
		logger.Print(k, "path", info[k])
	}
	return nil
}
