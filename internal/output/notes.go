package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/handlescan/handlescan/internal/core"
)

var (
	availableColor = color.New(color.FgGreen, color.Bold)
	takenColor     = color.New(color.FgRed)
	unknownColor   = color.New(color.FgYellow)
)

// SetColorMode overrides fatih/color's TTY autodetection. "auto" leaves the
// detected behavior in place.
func SetColorMode(mode string) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		return fmt.Errorf("unsupported color mode: %s", mode)
	}
	return nil
}

// verdictLabel returns the plain-text status for a verdict.
func verdictLabel(verdict core.Verdict) string {
	return verdict.String()
}

// statusCell returns the colored glyph + label cell used by table output.
// fatih/color suppresses the escape codes itself when stdout is not a TTY.
func statusCell(verdict core.Verdict) string {
	switch verdict {
	case core.VerdictAvailable:
		return availableColor.Sprint("✓ available")
	case core.VerdictTaken:
		return takenColor.Sprint("✗ taken")
	default:
		return unknownColor.Sprint("? unknown")
	}
}

// outcomeNotes strips the platform prefix the engine puts on failure details,
// since the table already has a platform column.
func outcomeNotes(outcome core.ProbeOutcome) string {
	detail := strings.TrimSpace(outcome.Detail)
	return strings.TrimPrefix(detail, outcome.PlatformID+": ")
}

// quickNotes looks up the outcome detail for a platform id when the quick
// result still carries outcomes; deserialized results render without notes.
func quickNotes(result *core.QuickResult, platformID string) string {
	if result == nil {
		return ""
	}
	for _, outcome := range result.Outcomes {
		if outcome.PlatformID == platformID {
			return outcomeNotes(outcome)
		}
	}
	return ""
}

// sortedOutcomes orders outcomes by platform id so rendered rows are stable
// regardless of worker completion order.
func sortedOutcomes(outcomes []core.ProbeOutcome) []core.ProbeOutcome {
	sorted := make([]core.ProbeOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PlatformID < sorted[j].PlatformID
	})
	return sorted
}
