// Package suggest derives alternative handle candidates for a username that
// turned out to be taken. It is presentation-layer glue on top of probe
// results: candidates are plain string variants, generated deterministically,
// and never probed or validated against platforms here.
package suggest

import (
	"strings"

	"github.com/handlescan/handlescan/internal/core"
)

// DefaultLimit caps suggestions when the caller does not pick a count.
const DefaultLimit = 5

var (
	prefixes = []string{"the", "real", "its"}
	suffixes = []string{"hq", "app", "dev", "io"}
	numerals = []string{"1", "7", "123"}
)

// Variants returns up to limit candidate handles derived from the username.
// Output order is fixed for a given input, every candidate satisfies the
// same validation contract as probe input, and the original username is
// never included.
func Variants(username string, limit int) []string {
	base := strings.ToLower(strings.TrimSpace(username))
	if core.ValidateUsername(base) != nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates := make([]string, 0, len(prefixes)*2+len(suffixes)*2+len(numerals))
	for _, suffix := range suffixes {
		candidates = append(candidates, base+"_"+suffix)
	}
	for _, prefix := range prefixes {
		candidates = append(candidates, prefix+"_"+base)
	}
	for _, numeral := range numerals {
		candidates = append(candidates, base+numeral)
	}
	for _, prefix := range prefixes {
		candidates = append(candidates, prefix+base)
	}
	for _, suffix := range suffixes {
		candidates = append(candidates, base+"."+suffix)
	}

	seen := map[string]struct{}{base: {}}
	variants := make([]string, 0, limit)
	for _, candidate := range candidates {
		if len(variants) == limit {
			break
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		if core.ValidateUsername(candidate) != nil {
			continue
		}
		seen[candidate] = struct{}{}
		variants = append(variants, candidate)
	}

	return variants
}

// ForResult suggests alternatives only when the probe batch found the handle
// taken somewhere; a fully available handle needs none.
func ForResult(result *core.CheckResult, limit int) []string {
	if result == nil || len(result.Taken) == 0 {
		return nil
	}
	return Variants(result.Username, limit)
}
