package qqmusic

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/musegrab/musegrab/grab/service"
)

var (
	songPathRe = regexp.MustCompile(`^n/(?:ryqq|ryqq_v2)/(?:songDetail|song)/([^/?#]+)$|^song/([^/?#]+)$`)

	albumPathRe = regexp.MustCompile(`^n/(?:ryqq|ryqq_v2)/albumDetail/([^/?#]+)$|^album/([^/?#]+)$`)

	playlistPathRe = regexp.MustCompile(`^n/(?:ryqq|ryqq_v2)/playlist/([^/?#]+)$|^playlist/([^/?#]+)$`)
)

// MatchURL recognizes QQ Music share links: the ryqq web player routes plus
// the legacy share pages that put the ID in a query parameter.
func (m *Module) MatchURL(rawURL string) (service.MediaReference, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return service.MediaReference{}, false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !strings.Contains(host, "qq.com") {
		return service.MediaReference{}, false
	}

	path := strings.Trim(u.Path, "/")

	if id := firstGroup(songPathRe.FindStringSubmatch(path)); id != "" {
		return service.MediaReference{Type: service.MediaTrack, ID: id}, true
	}
	if id := firstGroup(albumPathRe.FindStringSubmatch(path)); id != "" {
		return service.MediaReference{Type: service.MediaAlbum, ID: id}, true
	}
	if id := firstGroup(playlistPathRe.FindStringSubmatch(path)); id != "" {
		return service.MediaReference{Type: service.MediaPlaylist, ID: id}, true
	}

	query := u.Query()
	for _, key := range []string{"songmid", "songid"} {
		if id := strings.TrimSpace(query.Get(key)); id != "" {
			return service.MediaReference{Type: service.MediaTrack, ID: id}, true
		}
	}
	for _, key := range []string{"disstid", "listid", "tid"} {
		if id := strings.TrimSpace(query.Get(key)); id != "" {
			return service.MediaReference{Type: service.MediaPlaylist, ID: id}, true
		}
	}
	if id := strings.TrimSpace(query.Get("albummid")); id != "" {
		return service.MediaReference{Type: service.MediaAlbum, ID: id}, true
	}

	return service.MediaReference{}, false
}

func firstGroup(match []string) string {
	if len(match) == 0 {
		return ""
	}
	for _, group := range match[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}
