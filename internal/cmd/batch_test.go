package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/handlescan/handlescan/internal/core"
	"github.com/handlescan/handlescan/internal/core/engine"
)

func sampleBatchCheck(available, taken, unknown []string) *core.CheckResult {
	return &core.CheckResult{
		Username:  "octocat",
		Timestamp: time.Now().UTC(),
		Available: available,
		Taken:     taken,
		Unknown:   unknown,
	}
}

func TestSummarizeCheck(t *testing.T) {
	batch := summarizeCheck("octocat", sampleBatchCheck(
		[]string{"github", "reddit"},
		[]string{"steam"},
		[]string{"tiktok"},
	))
	if batch == nil {
		t.Fatal("expected batch result")
	}
	if batch.Score != 2 {
		t.Fatalf("expected score 2, got %d", batch.Score)
	}
	if batch.Total != 4 {
		t.Fatalf("expected total 4, got %d", batch.Total)
	}
	if batch.Result == nil {
		t.Fatal("expected inner result to be carried")
	}

	if summarizeCheck("octocat", nil) != nil {
		t.Fatal("expected nil batch for nil result")
	}
}

func TestFilterBatchResults(t *testing.T) {
	full := summarizeCheck("fully-free", sampleBatchCheck([]string{"github", "reddit"}, nil, nil))
	partial := summarizeCheck("partly-free", sampleBatchCheck([]string{"github"}, []string{"reddit"}, nil))
	results := []*core.BatchResult{full, nil, partial}

	kept := filterBatchResults(results, false)
	if len(kept) != 3 {
		t.Fatalf("expected passthrough without filter, got %d", len(kept))
	}

	kept = filterBatchResults(results, true)
	if len(kept) != 1 {
		t.Fatalf("expected 1 fully available result, got %d", len(kept))
	}
	if kept[0].Username != "fully-free" {
		t.Fatalf("expected fully-free, got %s", kept[0].Username)
	}
}

func TestTotalProbes(t *testing.T) {
	results := []*core.BatchResult{
		summarizeCheck("a1", sampleBatchCheck([]string{"github"}, []string{"reddit"}, nil)),
		nil,
		summarizeCheck("b2", sampleBatchCheck(nil, nil, []string{"steam"})),
	}
	if got := totalProbes(results); got != 3 {
		t.Fatalf("expected 3 probes, got %d", got)
	}
}

func TestRunBatchChecksPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rules := []core.Rule{{
		ID:              "testnet",
		URLTemplate:     srv.URL + "/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	}}

	prober := &engine.Prober{
		Client:      srv.Client(),
		Delay:       -1,
		Timeout:     2 * time.Second,
		Concurrency: 2,
	}

	usernames := []string{"alpha", "bravo", "charlie"}
	results, err := runBatchChecks(context.Background(), prober, rules, usernames, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(usernames) {
		t.Fatalf("expected %d results, got %d", len(usernames), len(results))
	}
	for i, username := range usernames {
		if results[i] == nil {
			t.Fatalf("missing result for %s", username)
		}
		if results[i].Username != username {
			t.Fatalf("result %d: expected %s, got %s", i, username, results[i].Username)
		}
		if results[i].Score != 1 || results[i].Total != 1 {
			t.Fatalf("result %d: expected 1/1 available, got %d/%d", i, results[i].Score, results[i].Total)
		}
	}
}
