package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/handlescan/handlescan/internal/core"
)

func statusRule(id, template string) core.Rule {
	return core.Rule{
		ID:              id,
		URLTemplate:     template,
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	}
}

func contentRule(id, template string) core.Rule {
	return core.Rule{
		ID:            id,
		URLTemplate:   template,
		Method:        core.MethodContentMatch,
		AvailableText: "X",
		TakenText:     "Y",
	}
}

func TestProbeStatusCodeVerdicts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/free/"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(r.URL.Path, "/held/"):
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	prober := &Prober{Client: server.Client(), Delay: -1}
	result, err := prober.Probe(context.Background(), "octocat", []core.Rule{
		statusRule("freebird", server.URL+"/free/%s"),
		statusRule("heldfast", server.URL+"/held/%s"),
		statusRule("murky", server.URL+"/odd/%s"),
	})
	require.NoError(t, err)

	require.Equal(t, []string{"freebird"}, result.Available)
	require.Equal(t, []string{"heldfast"}, result.Taken)
	require.Equal(t, []string{"murky"}, result.Unknown)

	outcome, ok := result.Outcome("murky")
	require.True(t, ok)
	require.Contains(t, outcome.Detail, "murky")
	require.Contains(t, outcome.Detail, "500")
}

func TestProbeContentMatchPriority(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/both/"):
			_, _ = w.Write([]byte("page says Y but also X somewhere"))
		case strings.HasPrefix(r.URL.Path, "/taken/"):
			_, _ = w.Write([]byte("only Y here"))
		default:
			_, _ = w.Write([]byte("nothing matches"))
		}
	}))
	defer server.Close()

	prober := &Prober{Client: server.Client(), Delay: -1}
	result, err := prober.Probe(context.Background(), "octocat", []core.Rule{
		contentRule("doubled", server.URL+"/both/%s"),
		contentRule("occupied", server.URL+"/taken/%s"),
		contentRule("blank", server.URL+"/none/%s"),
	})
	require.NoError(t, err)

	require.Equal(t, []string{"doubled"}, result.Available)
	require.Equal(t, []string{"occupied"}, result.Taken)
	require.Equal(t, []string{"blank"}, result.Unknown)
}

func TestProbePartitionProperty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/free/"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(r.URL.Path, "/held/"):
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	// A server that is already gone produces connection failures.
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	rules := []core.Rule{
		statusRule("alpha", server.URL+"/free/%s"),
		statusRule("bravo", server.URL+"/held/%s"),
		statusRule("charlie", server.URL+"/odd/%s"),
		statusRule("delta", server.URL+"/free/%s"),
		statusRule("echo", server.URL+"/held/%s"),
		statusRule("foxtrot", deadURL+"/%s"),
	}

	prober := &Prober{Delay: -1, Timeout: 2 * time.Second}
	result, err := prober.Probe(context.Background(), "octocat", rules)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, id := range result.Available {
		seen[id]++
	}
	for _, id := range result.Taken {
		seen[id]++
	}
	for _, id := range result.Unknown {
		seen[id]++
	}

	require.Len(t, seen, len(rules))
	for _, rule := range rules {
		require.Equal(t, 1, seen[rule.ID], "platform %s must land in exactly one set", rule.ID)
	}

	require.Equal(t, []string{"alpha", "delta"}, result.Available)
	require.Equal(t, []string{"bravo", "echo"}, result.Taken)
	require.Equal(t, []string{"charlie", "foxtrot"}, result.Unknown)

	outcome, ok := result.Outcome("foxtrot")
	require.True(t, ok)
	require.Contains(t, outcome.Detail, "foxtrot")
	require.Contains(t, outcome.Detail, "connection failed")
}

func TestProbeTimeoutDoesNotBlockSiblings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/slow/") {
			time.Sleep(400 * time.Millisecond)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	prober := &Prober{Delay: -1, Timeout: 50 * time.Millisecond}
	result, err := prober.Probe(context.Background(), "octocat", []core.Rule{
		statusRule("sluggish", server.URL+"/slow/%s"),
		statusRule("snappy", server.URL+"/fast/%s"),
	})
	require.NoError(t, err)

	require.Equal(t, []string{"snappy"}, result.Available)
	require.Empty(t, result.Taken)
	require.Equal(t, []string{"sluggish"}, result.Unknown)

	outcome, ok := result.Outcome("sluggish")
	require.True(t, ok)
	require.Contains(t, outcome.Detail, "sluggish")
	require.Contains(t, outcome.Detail, "timed out")
}

func TestProbeConcurrencyBound(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
		total    int
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		total++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(25 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rules := make([]core.Rule, 0, 15)
	ids := []string{
		"p01", "p02", "p03", "p04", "p05", "p06", "p07", "p08",
		"p09", "p10", "p11", "p12", "p13", "p14", "p15",
	}
	for _, id := range ids {
		rules = append(rules, statusRule(id, server.URL+"/"+id+"/%s"))
	}

	prober := &Prober{Client: server.Client(), Delay: -1, Concurrency: 5}
	result, err := prober.Probe(context.Background(), "octocat", rules)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 15, total)
	require.LessOrEqual(t, peak, 5)
	require.Len(t, result.Available, 15)
}

func TestProbeCourtesyDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	prober := &Prober{Client: server.Client(), Delay: 40 * time.Millisecond}
	started := time.Now()
	result, err := prober.Probe(context.Background(), "octocat", []core.Rule{
		statusRule("patient", server.URL+"/%s"),
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(started), 40*time.Millisecond)
	require.Equal(t, []string{"patient"}, result.Available)
}

func TestProbeFollowsRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/u/") {
			http.Redirect(w, r, "/profile/octocat", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := &Prober{Client: server.Client(), Delay: -1}
	result, err := prober.Probe(context.Background(), "octocat", []core.Rule{
		statusRule("hopper", server.URL+"/u/%s"),
	})
	require.NoError(t, err)

	require.Equal(t, []string{"hopper"}, result.Taken)
	outcome, ok := result.Outcome("hopper")
	require.True(t, ok)
	require.Equal(t, server.URL+"/profile/octocat", outcome.Detail)
}

func TestProbeSendsUserAgent(t *testing.T) {
	var (
		mu    sync.Mutex
		agent string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agent = r.Header.Get("User-Agent")
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	prober := &Prober{Client: server.Client(), Delay: -1, UserAgent: "handlescan/1.2.3"}
	_, err := prober.Probe(context.Background(), "octocat", []core.Rule{
		statusRule("hello", server.URL+"/%s"),
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "handlescan/1.2.3", agent)
}

func TestProbeResultMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fixed := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	prober := &Prober{
		Client: server.Client(),
		Delay:  -1,
		Clock:  func() time.Time { return fixed },
	}

	result, err := prober.Probe(context.Background(), "octocat", []core.Rule{
		statusRule("zulu", server.URL+"/z/%s"),
		statusRule("alpha", server.URL+"/a/%s"),
	})
	require.NoError(t, err)

	require.Equal(t, "octocat", result.Username)
	require.True(t, result.Timestamp.Equal(fixed))
	require.NotEmpty(t, result.CheckID)
	require.Len(t, result.Outcomes, 2)
	require.Equal(t, []string{"alpha", "zulu"}, result.Available)
}

func TestProbeInputErrors(t *testing.T) {
	prober := &Prober{Delay: -1}

	_, err := prober.Probe(context.Background(), "  ", []core.Rule{statusRule("alpha", "https://alpha.example/%s")})
	require.Error(t, err)

	_, err = prober.Probe(context.Background(), "octocat", nil)
	require.Error(t, err)
}

func TestQuickProbeMatchesProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/free/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rules := []core.Rule{
		statusRule("one", server.URL+"/free/%s"),
		statusRule("two", server.URL+"/held/%s"),
		statusRule("three", server.URL+"/free/%s"),
		statusRule("four", server.URL+"/held/%s"),
		statusRule("five", server.URL+"/free/%s"),
	}

	prober := &Prober{Client: server.Client(), Delay: -1}

	full, err := prober.Probe(context.Background(), "octocat", rules)
	require.NoError(t, err)

	quick, err := prober.QuickProbe(context.Background(), "octocat", rules)
	require.NoError(t, err)

	require.Equal(t, full.Available, quick.Available)
	require.Equal(t, full.Taken, quick.Taken)
	require.Len(t, quick.Outcomes, len(rules))
	require.Equal(t, []string{"five", "one", "three"}, quick.Available)
	require.Equal(t, []string{"four", "two"}, quick.Taken)
}

func TestClassify(t *testing.T) {
	status := core.Rule{Method: core.MethodStatusCode, AvailableStatus: 404, TakenStatus: 200}
	require.Equal(t, core.VerdictAvailable, classify(status, 404, nil))
	require.Equal(t, core.VerdictTaken, classify(status, 200, nil))
	require.Equal(t, core.VerdictUnknown, classify(status, 503, nil))

	content := core.Rule{Method: core.MethodContentMatch, AvailableText: "X", TakenText: "Y"}
	require.Equal(t, core.VerdictAvailable, classify(content, 200, []byte("X and Y together")))
	require.Equal(t, core.VerdictTaken, classify(content, 200, []byte("just Y")))
	require.Equal(t, core.VerdictUnknown, classify(content, 200, []byte("neither marker")))

	require.Equal(t, core.VerdictUnknown, classify(core.Rule{Method: "regex"}, 200, nil))
}
