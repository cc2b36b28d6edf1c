// Package registry holds the static table of platform probe rules and the
// lookup operations the probing engine and its callers build on. A Registry
// is immutable after construction; mutation never happens in place, callers
// construct a new one instead.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/handlescan/handlescan/internal/core"
)

// Registry is an ordered, id-unique collection of platform probe rules.
type Registry struct {
	rules []core.Rule
	index map[string]int
}

// New validates the rules and builds a registry preserving their order.
func New(rules []core.Rule) (*Registry, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("registry requires at least one rule")
	}

	index := make(map[string]int, len(rules))
	ordered := make([]core.Rule, 0, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if _, exists := index[rule.ID]; exists {
			return nil, fmt.Errorf("duplicate platform id %q", rule.ID)
		}
		index[rule.ID] = len(ordered)
		ordered = append(ordered, rule)
	}

	return &Registry{rules: ordered, index: index}, nil
}

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// BuiltIn returns the registry of bundled platform rules.
func BuiltIn() *Registry {
	builtinOnce.Do(func() {
		reg, err := New(builtinRules)
		if err != nil {
			panic("registry: invalid built-in rule table: " + err.Error())
		}
		builtin = reg
	})
	return builtin
}

// Len returns the number of platforms in the registry.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// Rules returns a copy of the rules in registry order.
func (r *Registry) Rules() []core.Rule {
	if r == nil {
		return nil
	}
	rules := make([]core.Rule, len(r.rules))
	copy(rules, r.rules)
	return rules
}

// IDs returns all platform ids sorted lexicographically.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		ids = append(ids, rule.ID)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the rule registered under the given id.
func (r *Registry) Lookup(id string) (core.Rule, bool) {
	if r == nil {
		return core.Rule{}, false
	}
	position, ok := r.index[strings.TrimSpace(id)]
	if !ok {
		return core.Rule{}, false
	}
	return r.rules[position], true
}

// Subset resolves the given ids against the registry, preserving registry
// order and rejecting ids the registry does not know.
func (r *Registry) Subset(ids []string) ([]core.Rule, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one platform id is required")
	}

	wanted := make(map[string]struct{}, len(ids))
	unknown := make([]string, 0)
	for _, id := range ids {
		trimmed := strings.ToLower(strings.TrimSpace(id))
		if trimmed == "" {
			continue
		}
		if r == nil || r.index == nil {
			unknown = append(unknown, trimmed)
			continue
		}
		if _, ok := r.index[trimmed]; !ok {
			unknown = append(unknown, trimmed)
			continue
		}
		wanted[trimmed] = struct{}{}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown platform ids: %s", strings.Join(unknown, ", "))
	}
	if len(wanted) == 0 {
		return nil, fmt.Errorf("at least one platform id is required")
	}

	subset := make([]core.Rule, 0, len(wanted))
	for _, rule := range r.rules {
		if _, ok := wanted[rule.ID]; ok {
			subset = append(subset, rule)
		}
	}
	return subset, nil
}

// MajorIDs returns the bundled quick-check platform ids that exist in this
// registry, sorted lexicographically.
func (r *Registry) MajorIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(majorIDs))
	for _, id := range majorIDs {
		if _, ok := r.index[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
