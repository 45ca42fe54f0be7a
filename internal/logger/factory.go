package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// Setup configures the package-level charm logger. Debug mode lowers the
// level and adds timestamps; otherwise only warnings and errors are shown.
func Setup(debug bool, format string) {
	log.SetOutput(os.Stderr)
	formatter = ParseFormatter(format)
	log.SetFormatter(formatter)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		return
	}
	log.SetLevel(log.WarnLevel)
	log.SetReportTimestamp(false)
}

// ParseFormatter maps "text", "json" or "logfmt" to a charm log formatter.
// Unknown names fall back to text.
func ParseFormatter(name string) log.Formatter {
	switch name {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	}
	return log.TextFormatter
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}
