package metrics

import (
	"time"

	"github.com/handlescan/handlescan/internal/core"
)

// Check series.
const (
	ChecksTotalName      = "checks_total"
	CheckDurationName    = "check_duration_ms"
	CheckVerdictsName    = "check_verdicts_total"
	CheckPlatformsName   = "check_platforms"
	SuggestionsTotalName = "suggestions_total"
)

// RecordCheck records a completed username check. Mode distinguishes full
// checks from quick ones.
func RecordCheck(mode string, result *core.CheckResult) {
	if result == nil {
		return
	}

	modeLabel := map[string]string{"mode": mode}
	count(ChecksTotalName, modeLabel)
	histogram(CheckDurationName, result.Elapsed, modeLabel)
	gauge(CheckPlatformsName, float64(result.Probed()), modeLabel)

	for _, outcome := range result.Outcomes {
		RecordProbeVerdict(outcome.PlatformID, outcome.Verdict)
	}
}

// RecordProbeVerdict counts one platform verdict.
func RecordProbeVerdict(platformID string, verdict core.Verdict) {
	count(CheckVerdictsName, map[string]string{
		"platform": platformID,
		"verdict":  verdict.String(),
	})
}

// RecordQuickCheck records a completed quick check, which carries no
// unknown set.
func RecordQuickCheck(mode string, result *core.QuickResult) {
	if result == nil {
		return
	}

	modeLabel := map[string]string{"mode": mode}
	count(ChecksTotalName, modeLabel)
	histogram(CheckDurationName, result.Elapsed, modeLabel)

	for _, outcome := range result.Outcomes {
		RecordProbeVerdict(outcome.PlatformID, outcome.Verdict)
	}
}

// RecordSuggestions records that alternative handles were offered.
func RecordSuggestions(n int) {
	if n <= 0 {
		return
	}
	count(SuggestionsTotalName, nil)
}

// RecordCheckDuration records check latency without a full result, for
// callers that only track elapsed time.
func RecordCheckDuration(mode string, elapsed time.Duration) {
	histogram(CheckDurationName, elapsed, map[string]string{"mode": mode})
}
