// Package engine implements the concurrent probing engine: it fans one HTTP
// probe per platform rule out over a bounded worker pool, classifies every
// response or failure, and folds the outcomes into a partitioned result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/handlescan/handlescan/internal/core"
)

const (
	// DefaultConcurrency bounds in-flight probes when none is configured.
	DefaultConcurrency = 5

	// DefaultDelay is the per-task courtesy pause before each request.
	DefaultDelay = 500 * time.Millisecond

	// DefaultTimeout bounds a single probe request.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies the tool to probed platforms.
	DefaultUserAgent = "handlescan (+https://github.com/handlescan/handlescan)"

	// maxBodyBytes caps how much of a response body content rules inspect.
	maxBodyBytes = 1 << 20
)

// Prober issues availability probes for a username across platform rules.
//
// The zero value works with built-in defaults; callers normally share one
// Prober (and its HTTP client's connection pool) across batches. All fields
// are read-only while a probe batch is running. A zero Delay or Timeout
// selects the default; a negative Delay disables the courtesy pause.
type Prober struct {
	Client      *http.Client
	UserAgent   string
	Delay       time.Duration
	Timeout     time.Duration
	Concurrency int
	Clock       func() time.Time
}

type probeJob struct {
	index int
	rule  core.Rule
}

// Probe checks the username against every rule and returns the partitioned
// result. Individual probe failures degrade to an unknown verdict and never
// abort the batch; Probe itself fails only on bad caller input.
func (p *Prober) Probe(ctx context.Context, username string, rules []core.Rule) (*core.CheckResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(rules) == 0 {
		return nil, errors.New("at least one platform rule is required")
	}

	startedAt := p.now()
	outcomes := make([]core.ProbeOutcome, len(rules))
	jobs := make(chan probeJob)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for job := range jobs {
			// Each worker writes only its own slot, so collection needs no lock.
			outcomes[job.index] = p.probeOne(ctx, job.rule, username)
		}
	}

	concurrency := p.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(rules) {
		concurrency = len(rules)
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

	// Every job is always submitted: on cancellation the remaining probes
	// degrade to unknown almost immediately instead of dropping out of the
	// partition.
	for i, rule := range rules {
		jobs <- probeJob{index: i, rule: rule}
	}
	close(jobs)
	wg.Wait()

	available, taken, unknown := partition(outcomes)

	return &core.CheckResult{
		Username:  username,
		Timestamp: startedAt,
		Available: available,
		Taken:     taken,
		Unknown:   unknown,
		CheckID:   uuid.New().String(),
		Elapsed:   p.now().Sub(startedAt),
		Outcomes:  outcomes,
	}, nil
}

// QuickProbe runs the same bounded probe over a caller-selected subset and
// keeps only the available and taken sets. Unknown outcomes stay visible
// through Outcomes but are not retained as a named set.
func (p *Prober) QuickProbe(ctx context.Context, username string, rules []core.Rule) (*core.QuickResult, error) {
	result, err := p.Probe(ctx, username, rules)
	if err != nil {
		return nil, err
	}

	return &core.QuickResult{
		Username:  result.Username,
		Timestamp: result.Timestamp,
		Available: result.Available,
		Taken:     result.Taken,
		Elapsed:   result.Elapsed,
		Outcomes:  result.Outcomes,
	}, nil
}

func (p *Prober) probeOne(ctx context.Context, rule core.Rule, username string) core.ProbeOutcome {
	if delay := p.delay(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return core.ProbeOutcome{
				PlatformID: rule.ID,
				Verdict:    core.VerdictUnknown,
				Detail:     failureDetail(rule.ID, ctx.Err()),
			}
		case <-timer.C:
		}
	}

	target := rule.URL(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return core.ProbeOutcome{
			PlatformID: rule.ID,
			Verdict:    core.VerdictUnknown,
			Detail:     fmt.Sprintf("%s: build request: %v", rule.ID, err),
		}
	}
	req.Header.Set("User-Agent", p.userAgent())

	resp, err := p.client().Do(req)
	if err != nil {
		return core.ProbeOutcome{
			PlatformID: rule.ID,
			Verdict:    core.VerdictUnknown,
			Detail:     failureDetail(rule.ID, err),
		}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	var body []byte
	if rule.Method == core.MethodContentMatch {
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return core.ProbeOutcome{
				PlatformID: rule.ID,
				Verdict:    core.VerdictUnknown,
				Detail:     fmt.Sprintf("%s: read response body: %v", rule.ID, err),
			}
		}
	}

	verdict := classify(rule, resp.StatusCode, body)
	detail := resolvedURL(resp, target)
	if verdict == core.VerdictUnknown {
		detail = ambiguousDetail(rule, resp.StatusCode)
	}

	return core.ProbeOutcome{
		PlatformID: rule.ID,
		Verdict:    verdict,
		Detail:     detail,
	}
}

// classify applies a rule's tagged classification method to one response.
// Content rules check the available marker first, so a body containing both
// markers classifies as available.
func classify(rule core.Rule, statusCode int, body []byte) core.Verdict {
	switch rule.Method {
	case core.MethodStatusCode:
		switch statusCode {
		case rule.AvailableStatus:
			return core.VerdictAvailable
		case rule.TakenStatus:
			return core.VerdictTaken
		}
		return core.VerdictUnknown
	case core.MethodContentMatch:
		text := string(body)
		if strings.Contains(text, rule.AvailableText) {
			return core.VerdictAvailable
		}
		if strings.Contains(text, rule.TakenText) {
			return core.VerdictTaken
		}
		return core.VerdictUnknown
	default:
		return core.VerdictUnknown
	}
}

func partition(outcomes []core.ProbeOutcome) (available, taken, unknown []string) {
	available = make([]string, 0, len(outcomes))
	taken = make([]string, 0, len(outcomes))
	unknown = make([]string, 0, len(outcomes))

	for _, outcome := range outcomes {
		switch outcome.Verdict {
		case core.VerdictAvailable:
			available = append(available, outcome.PlatformID)
		case core.VerdictTaken:
			taken = append(taken, outcome.PlatformID)
		default:
			unknown = append(unknown, outcome.PlatformID)
		}
	}

	sort.Strings(available)
	sort.Strings(taken)
	sort.Strings(unknown)
	return available, taken, unknown
}

func failureDetail(platformID string, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s: request timed out", platformID)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s: request canceled", platformID)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Sprintf("%s: request timed out: %v", platformID, urlErr.Err)
		}
		return fmt.Sprintf("%s: connection failed: %v", platformID, urlErr.Err)
	}

	return fmt.Sprintf("%s: %v", platformID, err)
}

func ambiguousDetail(rule core.Rule, statusCode int) string {
	if rule.Method == core.MethodContentMatch {
		return fmt.Sprintf("%s: response matched no marker (status %d)", rule.ID, statusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d", rule.ID, statusCode)
}

func resolvedURL(resp *http.Response, fallback string) string {
	if resp != nil && resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return fallback
}

func (p *Prober) client() *http.Client {
	if p != nil && p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: p.timeout()}
}

func (p *Prober) userAgent() string {
	if p != nil && strings.TrimSpace(p.UserAgent) != "" {
		return p.UserAgent
	}
	return DefaultUserAgent
}

func (p *Prober) delay() time.Duration {
	if p == nil || p.Delay == 0 {
		return DefaultDelay
	}
	if p.Delay < 0 {
		return 0
	}
	return p.Delay
}

func (p *Prober) timeout() time.Duration {
	if p != nil && p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

func (p *Prober) now() time.Time {
	if p != nil && p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}
