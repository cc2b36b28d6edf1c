package output

import (
	"fmt"
	"strings"
)

// Section is a titled block of lines appended after a rendered result, such
// as the alternative-handle suggestions.
type Section struct {
	Title string
	Lines []string
}

// SuggestionsSection builds the section listing alternative handles.
func SuggestionsSection(suggestions []string) (Section, bool) {
	if len(suggestions) == 0 {
		return Section{}, false
	}

	lines := make([]string, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if trimmed := strings.TrimSpace(suggestion); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return Section{}, false
	}

	return Section{Title: "Suggestions", Lines: lines}, true
}

// RenderSections renders sections beneath a result, as markdown headings or
// as indented plain text for table output.
func RenderSections(sections []Section, markdown bool) string {
	if len(sections) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		if markdown {
			sb.WriteString(fmt.Sprintf("\n\n### %s\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("- %s\n", line))
			}
		} else {
			sb.WriteString(fmt.Sprintf("\n\n%s:\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("  %s\n", line))
			}
		}
	}
	return sb.String()
}
