package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
)

func decodeVersionResponse(t *testing.T, rec *httptest.ResponseRecorder) VersionResponse {
	t.Helper()

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp VersionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestVersionHandlerReportsIdentityAndBuildInfo(t *testing.T) {
	SetVersionInfo("0.3.0", "f3a9c21", "2026-08-01T09:30:00Z")
	SetAppIdentity(&appidentity.Identity{
		BinaryName: "handlescan",
	})
	t.Cleanup(func() {
		SetAppIdentity(nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	VersionHandler(rec, req)

	resp := decodeVersionResponse(t, rec)

	if resp.App.Name != "handlescan" {
		t.Fatalf("expected app name handlescan, got %s", resp.App.Name)
	}
	if resp.App.Version != "0.3.0" {
		t.Fatalf("expected version 0.3.0, got %s", resp.App.Version)
	}
	if resp.App.Commit != "f3a9c21" {
		t.Fatalf("expected commit f3a9c21, got %s", resp.App.Commit)
	}
	if resp.App.GoVersion == "" {
		t.Fatal("expected go version to be populated")
	}

	if resp.Dependencies.Gofulmen == "" || resp.Dependencies.Crucible == "" {
		t.Fatal("expected dependency versions to be populated")
	}

	if resp.Runtime.Platform == "" {
		t.Fatal("expected runtime platform to be populated")
	}
	if resp.Runtime.NumCPU < 1 {
		t.Fatalf("expected at least one CPU, got %d", resp.Runtime.NumCPU)
	}
}

func TestVersionHandlerFallsBackToExecutableName(t *testing.T) {
	SetAppIdentity(nil)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	VersionHandler(rec, req)

	resp := decodeVersionResponse(t, rec)

	// Without an injected identity the handler derives a name from the
	// executable, which is never empty.
	if resp.App.Name == "" {
		t.Fatal("expected a fallback app name")
	}
}
