package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProbeMethod identifies how a platform response is classified.
type ProbeMethod string

const (
	MethodStatusCode   ProbeMethod = "status_code"
	MethodContentMatch ProbeMethod = "content_match"
)

// Verdict represents the three-way outcome of a single probe.
type Verdict int

const (
	VerdictUnknown   Verdict = 0
	VerdictAvailable Verdict = 1
	VerdictTaken     Verdict = 2
)

// String returns the lowercase label used in output and serialization.
func (v Verdict) String() string {
	switch v {
	case VerdictAvailable:
		return "available"
	case VerdictTaken:
		return "taken"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the verdict as its lowercase label.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a lowercase verdict label.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "available":
		*v = VerdictAvailable
	case "taken":
		*v = VerdictTaken
	case "unknown", "":
		*v = VerdictUnknown
	default:
		return fmt.Errorf("unknown verdict %q", label)
	}
	return nil
}

// Rule describes how to probe one platform for a username.
// The classification method is a closed tagged variant: status rules compare
// HTTP status codes against the marker pair, content rules search the
// response body for the marker substrings.
type Rule struct {
	ID          string      `json:"id" yaml:"id"`
	URLTemplate string      `json:"url_template" yaml:"url_template"`
	Method      ProbeMethod `json:"method" yaml:"method"`

	AvailableStatus int `json:"available_status,omitempty" yaml:"available_status,omitempty"`
	TakenStatus     int `json:"taken_status,omitempty" yaml:"taken_status,omitempty"`

	AvailableText string `json:"available_text,omitempty" yaml:"available_text,omitempty"`
	TakenText     string `json:"taken_text,omitempty" yaml:"taken_text,omitempty"`
}

// Validate reports the first structural problem with the rule.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule id is required")
	}
	if strings.Count(r.URLTemplate, "%s") != 1 || strings.Count(r.URLTemplate, "%") != 1 {
		return fmt.Errorf("rule %q: url_template must contain exactly one %%s slot", r.ID)
	}

	switch r.Method {
	case MethodStatusCode:
		if r.AvailableStatus == 0 || r.TakenStatus == 0 {
			return fmt.Errorf("rule %q: status_code rules need available_status and taken_status", r.ID)
		}
		if r.AvailableStatus == r.TakenStatus {
			return fmt.Errorf("rule %q: available_status and taken_status must differ", r.ID)
		}
	case MethodContentMatch:
		if r.AvailableText == "" || r.TakenText == "" {
			return fmt.Errorf("rule %q: content_match rules need available_text and taken_text", r.ID)
		}
		if r.AvailableText == r.TakenText {
			return fmt.Errorf("rule %q: available_text and taken_text must differ", r.ID)
		}
	default:
		return fmt.Errorf("rule %q: unknown probe method %q", r.ID, r.Method)
	}

	return nil
}

// URL substitutes the username into the rule's template.
func (r Rule) URL(username string) string {
	return fmt.Sprintf(r.URLTemplate, username)
}

// ProbeOutcome is the classified result of one probe against one platform.
// Created exactly once per probe task and immutable afterwards. Detail holds
// the resolved profile URL on success or a failure description otherwise.
type ProbeOutcome struct {
	PlatformID string  `json:"platform_id"`
	Verdict    Verdict `json:"verdict"`
	Detail     string  `json:"detail,omitempty"`
}

// CheckResult aggregates one full probe batch for a username.
//
// The three id slices partition the probed platform set: every probed
// platform appears in exactly one of them, sorted lexicographically. Only
// the flat record (username, timestamp, three sets) serializes; outcomes and
// run metadata are carried for rendering and storage but stay out of the
// interchange format so key order and shape remain stable.
type CheckResult struct {
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Available []string  `json:"available"`
	Taken     []string  `json:"taken"`
	Unknown   []string  `json:"unknown"`

	CheckID  string         `json:"-"`
	Elapsed  time.Duration  `json:"-"`
	Outcomes []ProbeOutcome `json:"-"`
}

// Probed returns the number of platforms covered by the batch.
func (r *CheckResult) Probed() int {
	if r == nil {
		return 0
	}
	return len(r.Available) + len(r.Taken) + len(r.Unknown)
}

// Outcome returns the outcome recorded for a platform id, if any.
func (r *CheckResult) Outcome(platformID string) (ProbeOutcome, bool) {
	if r == nil {
		return ProbeOutcome{}, false
	}
	for _, outcome := range r.Outcomes {
		if outcome.PlatformID == platformID {
			return outcome, true
		}
	}
	return ProbeOutcome{}, false
}

// QuickResult is the trimmed result of a quick probe over a platform subset.
// Unknown outcomes are reported through Outcomes but not retained as a set.
type QuickResult struct {
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Available []string  `json:"available"`
	Taken     []string  `json:"taken"`

	Elapsed  time.Duration  `json:"-"`
	Outcomes []ProbeOutcome `json:"-"`
}

// BatchResult captures the probe batch for one username in a multi-name run.
type BatchResult struct {
	Username    string       `json:"username"`
	Score       int          `json:"score"`
	Total       int          `json:"total"`
	CompletedAt time.Time    `json:"completed_at"`
	Result      *CheckResult `json:"result,omitempty"`
}
