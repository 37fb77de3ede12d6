package netease

import (
	"net/url"
	"strings"

	"github.com/musegrab/musegrab/grab/service"
)

// MatchURL recognizes NetEase share links. The web player puts the real route
// behind a fragment ("https://music.163.com/#/song?id=123"), the mobile share
// page uses plain paths, and short links sometimes bury the ID in a path
// segment.
func (m *Module) MatchURL(rawURL string) (service.MediaReference, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return service.MediaReference{}, false
	}
	if !strings.Contains(u.Hostname(), "music.163.com") {
		return service.MediaReference{}, false
	}

	route := u.Path
	query := u.Query()

	if u.Fragment != "" {
		frag := u.Fragment
		if idx := strings.LastIndex(frag, "?"); idx >= 0 {
			if vals, err := url.ParseQuery(frag[idx+1:]); err == nil {
				query = vals
			}
			frag = frag[:idx]
		}
		route = frag
	}

	id := query.Get("id")
	if id == "" {
		// Mobile share pages put the ID as the last path segment.
		for _, seg := range strings.Split(route, "/") {
			if seg != "" && allDigits(seg) {
				id = seg
			}
		}
	}
	if id == "" || !allDigits(id) {
		return service.MediaReference{}, false
	}

	return service.MediaReference{Type: mediaTypeOfRoute(route), ID: id}, true
}

func mediaTypeOfRoute(route string) service.MediaType {
	switch {
	case strings.Contains(route, "album"):
		return service.MediaAlbum
	case strings.Contains(route, "playlist"), strings.Contains(route, "discover/toplist"):
		return service.MediaPlaylist
	case strings.Contains(route, "artist"):
		return service.MediaArtist
	default:
		return service.MediaTrack
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
