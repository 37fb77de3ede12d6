package netease

import (
	"testing"

	"github.com/musegrab/musegrab/grab/service"
)

func TestMatchURL(t *testing.T) {
	m := &Module{}

	tests := []struct {
		name     string
		url      string
		wantID   string
		wantType service.MediaType
		wantOK   bool
	}{
		{
			name:     "web player song fragment",
			url:      "https://music.163.com/#/song?id=1974443814",
			wantID:   "1974443814",
			wantType: service.MediaTrack,
			wantOK:   true,
		},
		{
			name:     "plain song path",
			url:      "https://music.163.com/song?id=28949129",
			wantID:   "28949129",
			wantType: service.MediaTrack,
			wantOK:   true,
		},
		{
			name:     "album fragment",
			url:      "https://music.163.com/#/album?id=34836039",
			wantID:   "34836039",
			wantType: service.MediaAlbum,
			wantOK:   true,
		},
		{
			name:     "playlist with extra params",
			url:      "https://music.163.com/#/playlist?id=2829883282&creatorId=12345",
			wantID:   "2829883282",
			wantType: service.MediaPlaylist,
			wantOK:   true,
		},
		{
			name:     "artist page",
			url:      "https://music.163.com/#/artist?id=6452",
			wantID:   "6452",
			wantType: service.MediaArtist,
			wantOK:   true,
		},
		{
			name:     "mobile share path segment",
			url:      "https://music.163.com/m/song/1974443814",
			wantID:   "1974443814",
			wantType: service.MediaTrack,
			wantOK:   true,
		},
		{
			name:   "other host",
			url:    "https://open.spotify.com/track/abc123",
			wantOK: false,
		},
		{
			name:   "no id anywhere",
			url:    "https://music.163.com/#/discover",
			wantOK: false,
		},
		{
			name:   "non-numeric id",
			url:    "https://music.163.com/#/song?id=abc",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := m.MatchURL(tt.url)
			if ok != tt.wantOK {
				t.Fatalf("MatchURL(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if ref.ID != tt.wantID {
				t.Errorf("MatchURL(%q) id = %q, want %q", tt.url, ref.ID, tt.wantID)
			}
			if ref.Type != tt.wantType {
				t.Errorf("MatchURL(%q) type = %s, want %s", tt.url, ref.Type, tt.wantType)
			}
		})
	}
}
