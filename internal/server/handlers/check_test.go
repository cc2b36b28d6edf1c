package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/handlescan/handlescan/internal/core"
	"github.com/handlescan/handlescan/internal/core/registry"
	apperrors "github.com/handlescan/handlescan/internal/errors"
)

type stubProber struct {
	result      *core.CheckResult
	quickResult *core.QuickResult
	err         error

	gotUsername string
	gotRules    []core.Rule
	quickCalled bool
}

func (s *stubProber) Probe(ctx context.Context, username string, rules []core.Rule) (*core.CheckResult, error) {
	s.gotUsername = username
	s.gotRules = rules
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubProber) QuickProbe(ctx context.Context, username string, rules []core.Rule) (*core.QuickResult, error) {
	s.gotUsername = username
	s.gotRules = rules
	s.quickCalled = true
	if s.err != nil {
		return nil, s.err
	}
	return s.quickResult, nil
}

type stubRecorder struct {
	recorded []*core.CheckResult
	err      error
}

func (s *stubRecorder) RecordCheck(ctx context.Context, result *core.CheckResult) error {
	s.recorded = append(s.recorded, result)
	return s.err
}

func setupCheckDeps(t *testing.T, prober UsernameProber) *registry.Registry {
	t.Helper()

	reg := registry.BuiltIn()
	SetCheckDeps(prober, reg)
	t.Cleanup(func() {
		SetCheckDeps(nil, nil)
		SetCheckRecorder(nil)
		SetSetReader(nil)
	})
	return reg
}

func serveCheck(target string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/api/v1/check/{username}", CheckHandler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func sampleCheckResult(username string) *core.CheckResult {
	return &core.CheckResult{
		Username:  username,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Available: []string{"github"},
		Taken:     []string{"reddit"},
		Unknown:   []string{"steam"},
		CheckID:   "chk-test",
		Elapsed:   750 * time.Millisecond,
		Outcomes: []core.ProbeOutcome{
			{PlatformID: "github", Verdict: core.VerdictAvailable, Detail: "https://github.com/" + username},
			{PlatformID: "reddit", Verdict: core.VerdictTaken, Detail: "https://www.reddit.com/user/" + username},
			{PlatformID: "steam", Verdict: core.VerdictUnknown, Detail: "steam: unexpected status 500"},
		},
	}
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func TestCheckHandlerReturnsPartitionedResult(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	reg := setupCheckDeps(t, prober)

	recorder := &stubRecorder{}
	SetCheckRecorder(recorder)

	rec := serveCheck("/api/v1/check/octocat")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp core.CheckResult
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Username != "octocat" {
		t.Fatalf("expected username octocat, got %s", resp.Username)
	}
	if len(resp.Available) != 1 || resp.Available[0] != "github" {
		t.Fatalf("unexpected available set: %v", resp.Available)
	}
	if len(resp.Unknown) != 1 || resp.Unknown[0] != "steam" {
		t.Fatalf("unexpected unknown set: %v", resp.Unknown)
	}

	if len(prober.gotRules) != reg.Len() {
		t.Fatalf("expected probe across all %d platforms, got %d", reg.Len(), len(prober.gotRules))
	}

	if len(recorder.recorded) != 1 || recorder.recorded[0].CheckID != "chk-test" {
		t.Fatalf("expected check to be recorded once, got %d", len(recorder.recorded))
	}
}

func TestCheckHandlerRejectsInvalidUsername(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("ab")}
	setupCheckDeps(t, prober)

	rec := serveCheck("/api/v1/check/ab")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	body := decodeErrorResponse(t, rec)
	if body.Error.Code != "INVALID_INPUT" {
		t.Fatalf("expected INVALID_INPUT, got %s", body.Error.Code)
	}

	if prober.gotUsername != "" {
		t.Fatal("prober must not run for an invalid username")
	}
}

func TestCheckHandlerResolvesPlatformsParam(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	setupCheckDeps(t, prober)

	rec := serveCheck("/api/v1/check/octocat?platforms=github,reddit")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(prober.gotRules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(prober.gotRules))
	}
	for _, rule := range prober.gotRules {
		if rule.ID != "github" && rule.ID != "reddit" {
			t.Fatalf("unexpected rule %s in subset", rule.ID)
		}
	}
}

func TestCheckHandlerRejectsUnknownPlatform(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	setupCheckDeps(t, prober)

	rec := serveCheck("/api/v1/check/octocat?platforms=github,doesnotexist")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	body := decodeErrorResponse(t, rec)
	if body.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", body.Error.Code)
	}
}

func TestCheckHandlerResolvesBuiltInSet(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	setupCheckDeps(t, prober)

	rec := serveCheck("/api/v1/check/octocat?set=dev")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	set, ok := core.FindBuiltInSet("dev")
	if !ok {
		t.Fatal("dev set must exist")
	}
	if len(prober.gotRules) != len(set.Platforms) {
		t.Fatalf("expected %d rules for the dev set, got %d", len(set.Platforms), len(prober.gotRules))
	}
}

func TestCheckHandlerRejectsUnknownSet(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	setupCheckDeps(t, prober)

	rec := serveCheck("/api/v1/check/octocat?set=doesnotexist")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	body := decodeErrorResponse(t, rec)
	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestCheckHandlerRejectsPlatformsCombinedWithSet(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	setupCheckDeps(t, prober)

	rec := serveCheck("/api/v1/check/octocat?platforms=github&set=dev")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	body := decodeErrorResponse(t, rec)
	if body.Error.Code != "INVALID_INPUT" {
		t.Fatalf("expected INVALID_INPUT, got %s", body.Error.Code)
	}
}

func TestCheckHandlerQuickMode(t *testing.T) {
	prober := &stubProber{
		quickResult: &core.QuickResult{
			Username:  "octocat",
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Available: []string{"github"},
			Taken:     []string{"reddit"},
		},
	}
	setupCheckDeps(t, prober)

	rec := serveCheck("/api/v1/check/octocat?quick=true")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !prober.quickCalled {
		t.Fatal("expected the quick probe path")
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if _, present := payload["unknown"]; present {
		t.Fatal("quick results must not expose an unknown set")
	}
	if _, present := payload["available"]; !present {
		t.Fatal("quick results must expose the available set")
	}
}

func TestCheckHandlerRejectsBadQuickValue(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	setupCheckDeps(t, prober)

	rec := serveCheck("/api/v1/check/octocat?quick=maybe")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestCheckHandlerStorageFailureDoesNotFailRequest(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	setupCheckDeps(t, prober)
	SetCheckRecorder(&stubRecorder{err: errors.New("disk full")})

	rec := serveCheck("/api/v1/check/octocat")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 despite storage failure, got %d", rec.Code)
	}
}

func TestPlatformsHandlerListsRegistry(t *testing.T) {
	reg := setupCheckDeps(t, &stubProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	rec := httptest.NewRecorder()

	PlatformsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp PlatformsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Count != reg.Len() || len(resp.Platforms) != reg.Len() {
		t.Fatalf("expected %d platforms, got count=%d len=%d", reg.Len(), resp.Count, len(resp.Platforms))
	}

	seen := false
	for _, platform := range resp.Platforms {
		if platform.ID == "github" {
			seen = true
			if platform.URL == "" || platform.Method == "" {
				t.Fatalf("github entry missing fields: %+v", platform)
			}
		}
	}
	if !seen {
		t.Fatal("expected github in the platform listing")
	}
}

func TestPlatformSetsHandlerListsBuiltIns(t *testing.T) {
	setupCheckDeps(t, &stubProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms/sets", nil)
	rec := httptest.NewRecorder()

	PlatformSetsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp PlatformSetsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Count != len(core.BuiltInSets) {
		t.Fatalf("expected %d sets, got %d", len(core.BuiltInSets), resp.Count)
	}

	names := make(map[string]bool, len(resp.Sets))
	for _, set := range resp.Sets {
		names[set.Name] = true
		if !set.BuiltIn {
			t.Fatalf("expected %s to be marked built-in", set.Name)
		}
	}
	if !names["major"] || !names["dev"] {
		t.Fatalf("expected major and dev sets, got %v", names)
	}
}

type stubSetReader struct {
	records []core.PlatformSetRecord
	err     error
}

func (s *stubSetReader) GetSet(ctx context.Context, name string) (*core.PlatformSetRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.records {
		if s.records[i].Set.Name == name {
			return &s.records[i], nil
		}
	}
	return nil, nil
}

func (s *stubSetReader) ListSets(ctx context.Context) ([]core.PlatformSetRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func TestCheckHandlerResolvesStoredSet(t *testing.T) {
	prober := &stubProber{result: sampleCheckResult("octocat")}
	setupCheckDeps(t, prober)
	SetSetReader(&stubSetReader{
		records: []core.PlatformSetRecord{
			{Set: core.PlatformSet{Name: "portfolio", Platforms: []string{"github", "medium"}}},
		},
	})

	rec := serveCheck("/api/v1/check/octocat?set=portfolio")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(prober.gotRules) != 2 {
		t.Fatalf("expected 2 rules from the stored set, got %d", len(prober.gotRules))
	}
}

func TestPlatformSetsHandlerUsesStoreRecords(t *testing.T) {
	setupCheckDeps(t, &stubProber{})
	SetSetReader(&stubSetReader{
		records: []core.PlatformSetRecord{
			{Set: core.PlatformSet{Name: "major", Platforms: []string{"github"}}, IsBuiltin: true},
			{Set: core.PlatformSet{Name: "portfolio", Platforms: []string{"github", "medium"}}},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms/sets", nil)
	rec := httptest.NewRecorder()

	PlatformSetsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp PlatformSetsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Count != 2 {
		t.Fatalf("expected 2 sets from the store, got %d", resp.Count)
	}
}
