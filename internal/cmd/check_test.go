package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/handlescan/handlescan/internal/core"
	"github.com/handlescan/handlescan/internal/core/registry"
)

type stubSetGetter struct {
	record *core.PlatformSetRecord
	err    error
}

func (s *stubSetGetter) GetSet(ctx context.Context, name string) (*core.PlatformSetRecord, error) {
	return s.record, s.err
}

func TestNormalizePlatforms(t *testing.T) {
	input := []string{"GitHub", " reddit ", "github,steam", ""}
	result := normalizePlatforms(input)
	if len(result) != 3 {
		t.Fatalf("expected 3 platforms, got %d: %v", len(result), result)
	}
	want := []string{"github", "reddit", "steam"}
	for i, id := range want {
		if result[i] != id {
			t.Fatalf("expected %v, got %v", want, result)
		}
	}

	if normalizePlatforms(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestResolveRulesDefaultsToFullRegistry(t *testing.T) {
	reg := registry.BuiltIn()
	rules, err := resolveRules(context.Background(), nil, reg, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != reg.Len() {
		t.Fatalf("expected %d rules, got %d", reg.Len(), len(rules))
	}
}

func TestResolveRulesSubset(t *testing.T) {
	reg := registry.BuiltIn()
	rules, err := resolveRules(context.Background(), nil, reg, []string{"github,reddit"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
}

func TestResolveRulesRejectsPlatformsWithSet(t *testing.T) {
	reg := registry.BuiltIn()
	_, err := resolveRules(context.Background(), nil, reg, []string{"github"}, "dev")
	if err == nil {
		t.Fatal("expected error for --platforms combined with --set")
	}
}

func TestResolveRulesUnknownPlatform(t *testing.T) {
	reg := registry.BuiltIn()
	_, err := resolveRules(context.Background(), nil, reg, []string{"definitely-not-real"}, "")
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestResolveSetMembersPrefersBuiltin(t *testing.T) {
	shadow := &stubSetGetter{record: &core.PlatformSetRecord{
		Set: core.PlatformSet{Name: "dev", Platforms: []string{"myspace"}},
	}}

	members, err := resolveSetMembers(context.Background(), shadow, "dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	builtin, _ := core.FindBuiltInSet("dev")
	if len(members) != len(builtin.Platforms) {
		t.Fatalf("expected builtin members %v, got %v", builtin.Platforms, members)
	}
}

func TestResolveSetMembersStored(t *testing.T) {
	sets := &stubSetGetter{record: &core.PlatformSetRecord{
		Set: core.PlatformSet{Name: "portfolio", Platforms: []string{"github", "medium"}},
	}}

	members, err := resolveSetMembers(context.Background(), sets, "portfolio")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 2 || members[0] != "github" {
		t.Fatalf("expected stored members, got %v", members)
	}
}

func TestResolveSetMembersNotFound(t *testing.T) {
	_, err := resolveSetMembers(context.Background(), &stubSetGetter{}, "missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
