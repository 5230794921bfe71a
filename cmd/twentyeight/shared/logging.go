package shared

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures console logging at the named level. Unknown
// levels fall back to info; format "json" emits JSON lines instead of
// text.
func SetupLogger(level, format string) *log.Logger {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	formatter := log.TextFormatter
	if format == "json" {
		formatter = log.JSONFormatter
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           parsed,
		Formatter:       formatter,
	})
}
