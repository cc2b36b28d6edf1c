package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/handlescan/handlescan/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// formatNames maps accepted spellings to canonical formats. The empty string
// keeps table as the default for commands that never saw an --output flag.
var formatNames = map[string]Format{
	"":         FormatTable,
	"table":    FormatTable,
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
}

// Formatter renders check results for one username.
type Formatter interface {
	FormatCheck(result *core.CheckResult) (string, error)
	FormatQuick(result *core.QuickResult) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	format, ok := formatNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
	return format, nil
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatCheckList renders the outcome of a batch run. JSON keeps the batch
// entries intact so callers can recover per-username errors; the text formats
// render each completed check as its own section.
func FormatCheckList(format Format, results []*core.BatchResult) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	formatter := NewFormatter(format)
	var sections []string
	for _, entry := range results {
		if entry == nil || entry.Result == nil {
			continue
		}
		section, err := formatter.FormatCheck(entry.Result)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(section) != "" {
			sections = append(sections, section)
		}
	}

	return strings.Join(sections, "\n\n"), nil
}
