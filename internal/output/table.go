package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/handlescan/handlescan/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatCheck renders a full check result as a table.
func (f *TableFormatter) FormatCheck(result *core.CheckResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(result.Username)
	t.AppendHeader(table.Row{"Platform", "Status", "Notes"})

	for _, outcome := range sortedOutcomes(result.Outcomes) {
		t.AppendRow(table.Row{
			outcome.PlatformID,
			statusCell(outcome.Verdict),
			outcomeNotes(outcome),
		})
	}

	if probed := result.Probed(); probed > 0 {
		summary := fmt.Sprintf("%d/%d available", len(result.Available), probed)
		if unknown := len(result.Unknown); unknown > 0 {
			summary += fmt.Sprintf(", %d unknown", unknown)
		}
		t.AppendFooter(table.Row{"", summary, ""})
	}

	return t.Render(), nil
}

// FormatQuick renders a quick check result as a table. Only the available
// and taken platforms appear.
func (f *TableFormatter) FormatQuick(result *core.QuickResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(result.Username)
	t.AppendHeader(table.Row{"Platform", "Status", "Notes"})

	for _, id := range result.Available {
		t.AppendRow(table.Row{id, statusCell(core.VerdictAvailable), quickNotes(result, id)})
	}
	for _, id := range result.Taken {
		t.AppendRow(table.Row{id, statusCell(core.VerdictTaken), quickNotes(result, id)})
	}

	if total := len(result.Available) + len(result.Taken); total > 0 {
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d available", len(result.Available)), ""})
	}

	return t.Render(), nil
}
