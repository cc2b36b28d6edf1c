package registry

import (
	"net/http"

	"github.com/handlescan/handlescan/internal/core"
)

// majorIDs is the default quick-check subset.
var majorIDs = []string{"github", "instagram", "reddit", "tiktok", "youtube"}

// builtinRules is the bundled platform table. Most platforms answer missing
// profiles with a plain 404; the content rules cover platforms that return
// 200 for every profile URL and signal absence in the page body instead.
// Marker strings mirror what the platforms serve logged-out today and are
// best-effort heuristics, not contracts.
var builtinRules = []core.Rule{
	{
		ID:              "devto",
		URLTemplate:     "https://dev.to/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "deviantart",
		URLTemplate:     "https://www.deviantart.com/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "flickr",
		URLTemplate:     "https://www.flickr.com/people/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "github",
		URLTemplate:     "https://github.com/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "gitlab",
		URLTemplate:     "https://gitlab.com/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:            "hackernews",
		URLTemplate:   "https://news.ycombinator.com/user?id=%s",
		Method:        core.MethodContentMatch,
		AvailableText: "No such user.",
		TakenText:     "created:",
	},
	{
		ID:            "instagram",
		URLTemplate:   "https://www.instagram.com/%s/",
		Method:        core.MethodContentMatch,
		AvailableText: "Sorry, this page isn't available.",
		TakenText:     "Followers",
	},
	{
		ID:              "keybase",
		URLTemplate:     "https://keybase.io/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "lastfm",
		URLTemplate:     "https://www.last.fm/user/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "mastodon",
		URLTemplate:     "https://mastodon.social/@%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "medium",
		URLTemplate:     "https://medium.com/@%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "pastebin",
		URLTemplate:     "https://pastebin.com/u/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "patreon",
		URLTemplate:     "https://www.patreon.com/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "pinterest",
		URLTemplate:     "https://www.pinterest.com/%s/",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:            "reddit",
		URLTemplate:   "https://www.reddit.com/user/%s",
		Method:        core.MethodContentMatch,
		AvailableText: "Sorry, nobody on Reddit goes by that name",
		TakenText:     "overview for",
	},
	{
		ID:              "soundcloud",
		URLTemplate:     "https://soundcloud.com/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "spotify",
		URLTemplate:     "https://open.spotify.com/user/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		// Steam serves its error page with status 200; the error title also
		// contains the generic taken marker, so the available marker must
		// stay first in classification order.
		ID:            "steam",
		URLTemplate:   "https://steamcommunity.com/id/%s",
		Method:        core.MethodContentMatch,
		AvailableText: "The specified profile could not be found",
		TakenText:     "Steam Community :: ",
	},
	{
		ID:              "tiktok",
		URLTemplate:     "https://www.tiktok.com/@%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "vimeo",
		URLTemplate:     "https://vimeo.com/%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
	{
		ID:              "youtube",
		URLTemplate:     "https://www.youtube.com/@%s",
		Method:          core.MethodStatusCode,
		AvailableStatus: http.StatusNotFound,
		TakenStatus:     http.StatusOK,
	},
}
