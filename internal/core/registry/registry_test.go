package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/handlescan/handlescan/internal/core"
)

func TestBuiltInRegistry(t *testing.T) {
	reg := BuiltIn()
	require.NotNil(t, reg)
	require.GreaterOrEqual(t, reg.Len(), 15)

	seen := make(map[string]struct{})
	for _, rule := range reg.Rules() {
		require.NoError(t, rule.Validate())
		_, duplicate := seen[rule.ID]
		require.False(t, duplicate, "duplicate id %s", rule.ID)
		seen[rule.ID] = struct{}{}
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]core.Rule{
		{ID: "alpha", URLTemplate: "https://alpha.example/%s", Method: core.MethodStatusCode, AvailableStatus: 404, TakenStatus: 200},
		{ID: "alpha", URLTemplate: "https://alpha.example/u/%s", Method: core.MethodStatusCode, AvailableStatus: 404, TakenStatus: 200},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate platform id")
}

func TestNewRejectsBadTemplate(t *testing.T) {
	_, err := New([]core.Rule{
		{ID: "alpha", URLTemplate: "https://alpha.example/%s/%s", Method: core.MethodStatusCode, AvailableStatus: 404, TakenStatus: 200},
	})
	require.Error(t, err)

	_, err = New([]core.Rule{
		{ID: "alpha", URLTemplate: "https://alpha.example/user", Method: core.MethodStatusCode, AvailableStatus: 404, TakenStatus: 200},
	})
	require.Error(t, err)
}

func TestNewRejectsMissingMarkers(t *testing.T) {
	_, err := New([]core.Rule{
		{ID: "alpha", URLTemplate: "https://alpha.example/%s", Method: core.MethodStatusCode, AvailableStatus: 404},
	})
	require.Error(t, err)

	_, err = New([]core.Rule{
		{ID: "alpha", URLTemplate: "https://alpha.example/%s", Method: core.MethodContentMatch, AvailableText: "free"},
	})
	require.Error(t, err)

	_, err = New([]core.Rule{
		{ID: "alpha", URLTemplate: "https://alpha.example/%s", Method: "regex", AvailableText: "free", TakenText: "busy"},
	})
	require.Error(t, err)
}

func TestLookup(t *testing.T) {
	reg := BuiltIn()

	rule, ok := reg.Lookup("github")
	require.True(t, ok)
	require.Equal(t, "github", rule.ID)
	require.Equal(t, core.MethodStatusCode, rule.Method)

	_, ok = reg.Lookup("myspace")
	require.False(t, ok)
}

func TestSubset(t *testing.T) {
	reg := BuiltIn()

	rules, err := reg.Subset([]string{"reddit", "github", "GitHub "})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "github", rules[0].ID)
	require.Equal(t, "reddit", rules[1].ID)
}

func TestSubsetUnknownIDs(t *testing.T) {
	reg := BuiltIn()

	_, err := reg.Subset([]string{"github", "myspace", "bebo"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown platform ids")
	require.Contains(t, err.Error(), "bebo, myspace")

	_, err = reg.Subset(nil)
	require.Error(t, err)
}

func TestMajorIDs(t *testing.T) {
	reg := BuiltIn()

	ids := reg.MajorIDs()
	require.Len(t, ids, 5)
	for _, id := range ids {
		_, ok := reg.Lookup(id)
		require.True(t, ok, "major id %s missing from registry", id)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	payload := `platforms:
  - id: forum
    url_template: "https://forum.example/u/%s"
    method: status_code
    available_status: 404
    taken_status: 200
  - id: wiki
    url_template: "https://wiki.example/wiki/User:%s"
    method: content_match
    available_text: "There is currently no text in this page"
    taken_text: "User contributions"
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())
	require.Equal(t, []string{"forum", "wiki"}, reg.IDs())

	rule, ok := reg.Lookup("wiki")
	require.True(t, ok)
	require.Equal(t, core.MethodContentMatch, rule.Method)
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	payload := `platforms:
  - id: forum
    url_template: "https://forum.example/u/%s"
    method: dice_roll
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown probe method")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
