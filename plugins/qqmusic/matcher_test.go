package qqmusic

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
			name:     "web player song detail",
			url:      "https://y.qq.com/n/ryqq/songDetail/0013WPvt4fQH2b",
			wantID:   "0013WPvt4fQH2b",
			wantType: service.MediaTrack,
			wantOK:   true,
		},
		{
			name:     "legacy v2 song detail",
			url:      "https://y.qq.com/n/ryqq_v2/songDetail/003a1tne1nSz1Y",
			wantID:   "003a1tne1nSz1Y",
			wantType: service.MediaTrack,
			wantOK:   true,
		},
		{
			name:     "album detail",
			url:      "https://y.qq.com/n/ryqq/albumDetail/000MkMni19ClKG",
			wantID:   "000MkMni19ClKG",
			wantType: service.MediaAlbum,
			wantOK:   true,
		},
		{
			name:     "playlist",
			url:      "https://y.qq.com/n/ryqq/playlist/7364061065",
			wantID:   "7364061065",
			wantType: service.MediaPlaylist,
			wantOK:   true,
		},
		{
			name:     "share page with songmid query",
			url:      "https://i.y.qq.com/v8/playsong.html?songmid=0013WPvt4fQH2b",
			wantID:   "0013WPvt4fQH2b",
			wantType: service.MediaTrack,
			wantOK:   true,
		},
		{
			name:     "taoge share with disstid",
			url:      "https://i.y.qq.com/n2/m/share/details/taoge.html?disstid=7364061065",
			wantID:   "7364061065",
			wantType: service.MediaPlaylist,
			wantOK:   true,
		},
		{
			name:   "other host",
			url:    "https://music.163.com/#/song?id=123",
			wantOK: false,
		},
		{
			name:   "qq host without media route",
			url:    "https://y.qq.com/portal/profile.html",
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
