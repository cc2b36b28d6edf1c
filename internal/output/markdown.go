package output

import (
	"fmt"
	"strings"

	"github.com/handlescan/handlescan/internal/core"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatCheck renders a full check result as Markdown.
func (f *MarkdownFormatter) FormatCheck(result *core.CheckResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s availability\n\n", escapeMarkdownCell(result.Username)))
	sb.WriteString("| Platform | Status | Notes |\n")
	sb.WriteString("|----------|--------|-------|\n")

	for _, outcome := range sortedOutcomes(result.Outcomes) {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			escapeMarkdownCell(outcome.PlatformID),
			escapeMarkdownCell(verdictLabel(outcome.Verdict)),
			escapeMarkdownCell(outcomeNotes(outcome)),
		))
	}

	if probed := result.Probed(); probed > 0 {
		summary := fmt.Sprintf("%d/%d available", len(result.Available), probed)
		if unknown := len(result.Unknown); unknown > 0 {
			summary += fmt.Sprintf(", %d unknown", unknown)
		}
		sb.WriteString(fmt.Sprintf("\n**Score**: %s\n", summary))
	}

	return sb.String(), nil
}

// FormatQuick renders a quick check result as Markdown.
func (f *MarkdownFormatter) FormatQuick(result *core.QuickResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s availability\n\n", escapeMarkdownCell(result.Username)))
	sb.WriteString("| Platform | Status | Notes |\n")
	sb.WriteString("|----------|--------|-------|\n")

	for _, id := range result.Available {
		sb.WriteString(fmt.Sprintf("| %s | available | %s |\n",
			escapeMarkdownCell(id), escapeMarkdownCell(quickNotes(result, id))))
	}
	for _, id := range result.Taken {
		sb.WriteString(fmt.Sprintf("| %s | taken | %s |\n",
			escapeMarkdownCell(id), escapeMarkdownCell(quickNotes(result, id))))
	}

	if total := len(result.Available) + len(result.Taken); total > 0 {
		sb.WriteString(fmt.Sprintf("\n**Score**: %d available\n", len(result.Available)))
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
