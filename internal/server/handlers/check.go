package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/core"
	"github.com/handlescan/handlescan/internal/core/registry"
	apperrors "github.com/handlescan/handlescan/internal/errors"
	"github.com/handlescan/handlescan/internal/metrics"
	"github.com/handlescan/handlescan/internal/observability"
)

// UsernameProber runs availability probes for one username across a slice of
// platform rules. Satisfied by engine.Prober.
type UsernameProber interface {
	Probe(ctx context.Context, username string, rules []core.Rule) (*core.CheckResult, error)
	QuickProbe(ctx context.Context, username string, rules []core.Rule) (*core.QuickResult, error)
}

// CheckRecorder persists finished check results for the history surface.
type CheckRecorder interface {
	RecordCheck(ctx context.Context, result *core.CheckResult) error
}

// SetReader resolves named platform sets beyond the built-in ones.
type SetReader interface {
	GetSet(ctx context.Context, name string) (*core.PlatformSetRecord, error)
	ListSets(ctx context.Context) ([]core.PlatformSetRecord, error)
}

var (
	checkProber   UsernameProber
	checkRegistry *registry.Registry
	checkRecorder CheckRecorder
	checkSets     SetReader
)

// SetCheckDeps wires the probing engine and platform registry used by the
// check endpoints. Both must be set before the routes are served.
func SetCheckDeps(prober UsernameProber, reg *registry.Registry) {
	checkProber = prober
	checkRegistry = reg
}

// SetCheckRecorder wires the optional history store. A nil recorder disables
// persistence; checks still run.
func SetCheckRecorder(recorder CheckRecorder) {
	checkRecorder = recorder
}

// SetSetReader wires the optional store-backed platform set source. Without
// it only the built-in sets resolve.
func SetSetReader(reader SetReader) {
	checkSets = reader
}

// PlatformInfo is one registry entry in the platforms listing.
type PlatformInfo struct {
	ID     string `json:"id"`
	URL    string `json:"url_template"`
	Method string `json:"method"`
}

// PlatformsResponse lists every platform the registry can probe.
type PlatformsResponse struct {
	Platforms []PlatformInfo `json:"platforms"`
	Count     int            `json:"count"`
}

// PlatformSetInfo is one named set in the sets listing.
type PlatformSetInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Platforms   []string `json:"platforms"`
	BuiltIn     bool     `json:"built_in"`
}

// PlatformSetsResponse lists the named platform sets.
type PlatformSetsResponse struct {
	Sets  []PlatformSetInfo `json:"sets"`
	Count int               `json:"count"`
}

// CheckHandler probes the username from the URL path across the selected
// platforms. Query parameters: platforms (comma-separated ids), set (named
// platform set), quick (availability-focused result without the unknown set).
// platforms and set are mutually exclusive; with neither, every registered
// platform is probed.
func CheckHandler(w http.ResponseWriter, r *http.Request) {
	if checkProber == nil || checkRegistry == nil {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "check service not initialized")
		respondWithError(w, r, envelope)
		return
	}

	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if err := core.ValidateUsername(username); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	rules, envelope := resolveCheckRules(r)
	if envelope != nil {
		respondWithError(w, r, envelope)
		return
	}

	quick, err := parseQuickParam(r)
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	if quick {
		result, err := checkProber.QuickProbe(r.Context(), username, rules)
		if err != nil {
			respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "quick check failed"))
			return
		}

		metrics.RecordQuickCheck("server_quick", result)
		writeJSON(w, http.StatusOK, result)
		return
	}

	result, err := checkProber.Probe(r.Context(), username, rules)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "check failed"))
		return
	}

	metrics.RecordCheck("server", result)
	recordCheckHistory(r.Context(), result)

	writeJSON(w, http.StatusOK, result)
}

// PlatformsHandler lists every platform rule in the registry.
func PlatformsHandler(w http.ResponseWriter, r *http.Request) {
	if checkRegistry == nil {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "platform registry not initialized")
		respondWithError(w, r, envelope)
		return
	}

	rules := checkRegistry.Rules()
	platforms := make([]PlatformInfo, 0, len(rules))
	for _, rule := range rules {
		platforms = append(platforms, PlatformInfo{
			ID:     rule.ID,
			URL:    rule.URLTemplate,
			Method: string(rule.Method),
		})
	}

	writeJSON(w, http.StatusOK, PlatformsResponse{
		Platforms: platforms,
		Count:     len(platforms),
	})
}

// PlatformSetsHandler lists the named platform sets. When a store is wired
// its records replace the compiled-in list so custom sets appear too.
func PlatformSetsHandler(w http.ResponseWriter, r *http.Request) {
	if checkSets != nil {
		records, err := checkSets.ListSets(r.Context())
		metrics.RecordStoreOperation("list_sets", err)
		if err != nil {
			respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "list platform sets"))
			return
		}

		sets := make([]PlatformSetInfo, 0, len(records))
		for _, record := range records {
			sets = append(sets, PlatformSetInfo{
				Name:        record.Set.Name,
				Description: record.Set.Description,
				Platforms:   record.Set.Platforms,
				BuiltIn:     record.IsBuiltin,
			})
		}

		writeJSON(w, http.StatusOK, PlatformSetsResponse{Sets: sets, Count: len(sets)})
		return
	}

	sets := make([]PlatformSetInfo, 0, len(core.BuiltInSets))
	for _, set := range core.BuiltInSets {
		sets = append(sets, PlatformSetInfo{
			Name:        set.Name,
			Description: set.Description,
			Platforms:   set.Platforms,
			BuiltIn:     true,
		})
	}

	writeJSON(w, http.StatusOK, PlatformSetsResponse{Sets: sets, Count: len(sets)})
}

// resolveCheckRules picks the rule subset for one check request.
func resolveCheckRules(r *http.Request) ([]core.Rule, *errors.ErrorEnvelope) {
	query := r.URL.Query()
	platforms := strings.TrimSpace(query.Get("platforms"))
	setName := strings.TrimSpace(query.Get("set"))

	if platforms != "" && setName != "" {
		return nil, apperrors.NewInvalidInputError("platforms and set are mutually exclusive")
	}

	if platforms != "" {
		ids := splitPlatformList(platforms)
		if len(ids) == 0 {
			return nil, apperrors.NewInvalidInputError("platforms parameter is empty")
		}
		rules, err := checkRegistry.Subset(ids)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		return rules, nil
	}

	if setName != "" {
		ids, envelope := resolveSetPlatforms(r.Context(), setName)
		if envelope != nil {
			return nil, envelope
		}
		rules, err := checkRegistry.Subset(ids)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		return rules, nil
	}

	return checkRegistry.Rules(), nil
}

// resolveSetPlatforms resolves a set name to platform ids, preferring the
// built-ins and falling back to the store when one is wired.
func resolveSetPlatforms(ctx context.Context, name string) ([]string, *errors.ErrorEnvelope) {
	if set, ok := core.FindBuiltInSet(name); ok {
		return set.Platforms, nil
	}

	if checkSets != nil {
		record, err := checkSets.GetSet(ctx, name)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(ctx, err, "load platform set")
		}
		if record != nil {
			return record.Set.Platforms, nil
		}
	}

	return nil, apperrors.NewNotFoundError(fmt.Sprintf("unknown platform set: %s", name))
}

func parseQuickParam(r *http.Request) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("quick"))
	if raw == "" {
		return false, nil
	}

	quick, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("quick must be a boolean value, got %q", raw)
	}
	return quick, nil
}

func splitPlatformList(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// recordCheckHistory persists the result best-effort. A storage failure is
// logged but never fails the request that already has its answer.
func recordCheckHistory(ctx context.Context, result *core.CheckResult) {
	if checkRecorder == nil {
		return
	}

	err := checkRecorder.RecordCheck(ctx, result)
	metrics.RecordStoreOperation("record_check", err)
	if err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to record check history",
			zap.String("username", result.Username),
			zap.String("check_id", result.CheckID),
			zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
