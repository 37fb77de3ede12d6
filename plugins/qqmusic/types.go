package qqmusic

type singerInfo struct {
	ID   int64  `json:"id"`
	Mid  string `json:"mid"`
	Name string `json:"name"`
}

type albumRef struct {
	ID    int64  `json:"id"`
	Mid   string `json:"mid"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

type songDetail struct {
	ID         int64        `json:"id"`
	Mid        string       `json:"mid"`
	Name       string       `json:"name"`
	Title      string       `json:"title"`
	Album      albumRef     `json:"album"`
	Singer     []singerInfo `json:"singer"`
	Interval   int          `json:"interval"`
	IndexAlbum int          `json:"index_album"`
	IndexCD    int          `json:"index_cd"`
	TimePublic string       `json:"time_public"`
}

type fileInfo struct {
	MediaMid  string `json:"media_mid"`
	CoverMid  string `json:"-"`
	Size128   int64  `json:"size_128mp3"`
	Size320   int64  `json:"size_320mp3"`
	SizeFlac  int64  `json:"size_flac"`
	SizeHiRes int64  `json:"size_hires"`
}

type listedSong struct {
	SongID    int64        `json:"songid"`
	ID        int64        `json:"id"`
	SongMID   string       `json:"songmid"`
	Mid       string       `json:"mid"`
	SongName  string       `json:"songname"`
	Name      string       `json:"name"`
	Title     string       `json:"title"`
	AlbumName string       `json:"albumname"`
	AlbumMID  string       `json:"albummid"`
	Album     albumRef     `json:"album"`
	Interval  int          `json:"interval"`
	Singer    []singerInfo `json:"singer"`
}

type playlistData struct {
	ID       int64
	Name     string
	Desc     string
	CoverURL string
	Creator  string
	Total    int
	Songs    []listedSong
}

type albumData struct {
	ID    string
	Mid   string
	Name  string
	Total int
	Songs []listedSong
}
