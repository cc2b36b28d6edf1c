package core

import (
	"strings"
	"time"
)

// PlatformSet names a reusable selection of platform ids to probe together.
type PlatformSet struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Platforms   []string `json:"platforms"`
}

// PlatformSetRecord wraps a platform set with persistence metadata.
type PlatformSetRecord struct {
	Set       PlatformSet
	IsBuiltin bool
	UpdatedAt time.Time
}

// BuiltInSets provides the default platform selections bundled with
// handlescan. The "major" set doubles as the quick-check default.
var BuiltInSets = []PlatformSet{
	{
		Name:        "major",
		Description: "The handful of platforms most people care about first",
		Platforms:   []string{"github", "instagram", "reddit", "tiktok", "youtube"},
	},
	{
		Name:        "dev",
		Description: "Developer-facing platforms and communities",
		Platforms:   []string{"devto", "github", "gitlab", "hackernews", "keybase"},
	},
	{
		Name:        "social",
		Description: "General social networks",
		Platforms:   []string{"instagram", "mastodon", "pinterest", "reddit", "tiktok", "youtube"},
	},
	{
		Name:        "creative",
		Description: "Publishing, art, music, and video platforms",
		Platforms:   []string{"deviantart", "flickr", "medium", "patreon", "soundcloud", "spotify", "vimeo"},
	},
}

// FindBuiltInSet looks up a built-in platform set by name.
func FindBuiltInSet(name string) (*PlatformSet, bool) {
	needle := strings.TrimSpace(strings.ToLower(name))
	if needle == "" {
		return nil, false
	}

	for _, set := range BuiltInSets {
		if strings.EqualFold(set.Name, needle) {
			copied := set
			return &copied, true
		}
	}

	return nil, false
}
