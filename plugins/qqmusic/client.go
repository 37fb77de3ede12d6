package qqmusic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/service"
)

const (
	musicuEndpoint     = "https://u.y.qq.com/cgi-bin/musicu.fcg"
	musicsEndpoint     = "https://u.y.qq.com/cgi-bin/musics.fcg"
	songDetailEndpoint = "https://c.y.qq.com/v8/fcg-bin/fcg_play_single_song.fcg"
	lyricEndpoint      = "https://c.y.qq.com/lyric/fcgi-bin/fcg_query_lyric_new.fcg"
)

// Client talks to the QQ Music web gateways. The full account cookie unlocks
// lossless and hi-res tiers; anonymous requests get the lossy ones.
type Client struct {
	http    *http.Client
	headers http.Header
	cookie  string
	log     grab.Logger
}

func NewClient(cookie string, timeout time.Duration, log grab.Logger) *Client {
	headers := http.Header{}
	headers.Set("User-Agent", "QQMusic/14090508 (android 12)")
	headers.Set("Referer", "https://y.qq.com/")
	headers.Set("Origin", "https://y.qq.com")
	headers.Set("Accept", "*/*")
	headers.Set("Content-Type", "application/json")

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	return &Client{
		http:    rc.StandardClient(),
		headers: headers,
		cookie:  strings.TrimSpace(cookie),
		log:     log,
	}
}

// SongDetail resolves a track by numeric ID or mid.
func (c *Client) SongDetail(ctx context.Context, id string) (*songDetail, error) {
	query := url.Values{}
	query.Set("platform", "yqq")
	query.Set("format", "json")
	if isNumericID(id) {
		query.Set("songid", id)
	} else {
		query.Set("songmid", id)
	}

	body, err := c.get(ctx, songDetailEndpoint+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var resp struct {
		Code int          `json:"code"`
		Data []songDetail `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("qqmusic: decode song detail: %w", err)
	}
	if resp.Code != 0 || len(resp.Data) == 0 {
		return nil, service.NewNotFoundError("qqmusic", "track", id)
	}
	return &resp.Data[0], nil
}

// FileInfo reports which quality tiers exist for a song and the media mid
// needed to request them.
func (c *Client) FileInfo(ctx context.Context, songMid string) (*fileInfo, error) {
	payload := map[string]interface{}{
		"comm": map[string]interface{}{
			"ct":  "19",
			"cv":  "1859",
			"uin": "0",
		},
		"req": map[string]interface{}{
			"module": "music.pf_song_detail_svr",
			"method": "get_song_detail_yqq",
			"param": map[string]interface{}{
				"song_type": 0,
				"song_mid":  songMid,
			},
		},
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qqmusic: encode file info payload: %w", err)
	}

	sign := tencentSign(string(jsonBody), false)
	body, err := c.post(ctx, musicsEndpoint+"?format=json&sign="+url.QueryEscape(sign), jsonBody)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Req struct {
			Data struct {
				TrackInfo struct {
					File fileInfo `json:"file"`
					VS   []string `json:"vs"`
				} `json:"track_info"`
			} `json:"data"`
		} `json:"req"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("qqmusic: decode file info: %w", err)
	}

	file := resp.Req.Data.TrackInfo.File
	if len(resp.Req.Data.TrackInfo.VS) > 1 {
		file.CoverMid = strings.TrimSpace(resp.Req.Data.TrackInfo.VS[1])
	}
	if file.MediaMid == "" {
		return nil, service.NewUnavailableError("qqmusic", "track", songMid)
	}
	return &file, nil
}

// VKey exchanges a song and quality selection for a short-lived stream path.
func (c *Client) VKey(ctx context.Context, songMid, mediaMid, qualityCode, ext string) (string, error) {
	uin, authst := parseAuthCookie(c.cookie)
	filename := qualityCode + mediaMid + "." + ext
	payload := map[string]interface{}{
		"req": map[string]interface{}{
			"module": "music.vkey.GetVkey",
			"method": "UrlGetVkey",
			"param": map[string]interface{}{
				"filename":  []string{filename},
				"guid":      "114514",
				"songmid":   []string{songMid},
				"songtype":  []int{0},
				"uin":       uin,
				"loginflag": 1,
				"platform":  "20",
			},
		},
		"comm": map[string]interface{}{
			"qq":     uin,
			"authst": authst,
			"ct":     "26",
			"cv":     "2010101",
			"v":      "2010101",
		},
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("qqmusic: encode vkey payload: %w", err)
	}

	sign := tencentSign(string(jsonBody), true)
	body, err := c.post(ctx, musicsEndpoint+"?format=json&sign="+url.QueryEscape(sign), jsonBody)
	if err != nil {
		return "", err
	}

	var resp struct {
		Req struct {
			Data struct {
				MidURLInfo []struct {
					Purl string `json:"purl"`
					Vkey string `json:"vkey"`
				} `json:"midurlinfo"`
			} `json:"data"`
		} `json:"req"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("qqmusic: decode vkey: %w", err)
	}
	if len(resp.Req.Data.MidURLInfo) == 0 {
		return "", service.NewUnavailableError("qqmusic", "track", songMid)
	}
	info := resp.Req.Data.MidURLInfo[0]
	if strings.TrimSpace(info.Purl) == "" || strings.TrimSpace(info.Vkey) == "" {
		return "", service.NewUnavailableError("qqmusic", "track", songMid)
	}
	return info.Purl, nil
}

// AlbumSongs lists an album's tracks by album mid or numeric ID.
func (c *Client) AlbumSongs(ctx context.Context, albumID string) (*albumData, error) {
	albumID = strings.TrimSpace(albumID)
	if albumID == "" {
		return nil, service.NewNotFoundError("qqmusic", "album", "")
	}

	var numericAlbumID int64
	if parsed, err := strconv.ParseInt(albumID, 10, 64); err == nil {
		numericAlbumID = parsed
	}

	payload := map[string]interface{}{
		"comm": map[string]interface{}{
			"ct": 24,
			"cv": 10000,
		},
		"albumSonglist": map[string]interface{}{
			"module": "music.musichallAlbum.AlbumSongList",
			"method": "GetAlbumSongList",
			"param": map[string]interface{}{
				"albumMid": albumID,
				"albumID":  numericAlbumID,
				"begin":    0,
				"num":      10000,
				"order":    2,
			},
		},
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qqmusic: encode album payload: %w", err)
	}

	body, err := c.post(ctx, musicuEndpoint+"?format=json&inCharset=utf8&outCharset=utf8", jsonBody)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Code          int `json:"code"`
		AlbumSonglist struct {
			Code int `json:"code"`
			Data struct {
				AlbumMid string `json:"albumMid"`
				TotalNum int    `json:"totalNum"`
				SongList []struct {
					SongInfo listedSong `json:"songInfo"`
				} `json:"songList"`
			} `json:"data"`
		} `json:"albumSonglist"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("qqmusic: decode album detail: %w", err)
	}
	if resp.Code != 0 || resp.AlbumSonglist.Code != 0 {
		return nil, service.NewUnavailableError("qqmusic", "album", albumID)
	}

	data := resp.AlbumSonglist.Data
	if len(data.SongList) == 0 && data.TotalNum == 0 {
		return nil, service.NewNotFoundError("qqmusic", "album", albumID)
	}

	album := &albumData{
		ID:    albumID,
		Mid:   strings.TrimSpace(data.AlbumMid),
		Total: data.TotalNum,
	}
	album.Songs = make([]listedSong, 0, len(data.SongList))
	for _, item := range data.SongList {
		album.Songs = append(album.Songs, item.SongInfo)
	}
	return album, nil
}

// Playlist resolves a public songlist by its numeric disstid.
func (c *Client) Playlist(ctx context.Context, playlistID string) (*playlistData, error) {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return nil, service.NewNotFoundError("qqmusic", "playlist", "")
	}
	var disstid interface{} = playlistID
	if numericID, err := strconv.ParseInt(playlistID, 10, 64); err == nil {
		disstid = numericID
	}

	payload := map[string]interface{}{
		"comm": map[string]interface{}{
			"g_tk":        5381,
			"uin":         0,
			"format":      "json",
			"platform":    "h5",
			"needNewCode": 1,
		},
		"req_0": map[string]interface{}{
			"module": "music.srfDissInfo.aiDissInfo",
			"method": "uniform_get_Dissinfo",
			"param": map[string]interface{}{
				"disstid":      disstid,
				"enc_host_uin": "",
				"tag":          1,
				"userinfo":     1,
				"song_begin":   0,
				"song_num":     10000,
				"onlysonglist": 0,
			},
		},
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qqmusic: encode playlist payload: %w", err)
	}

	body, err := c.post(ctx, musicuEndpoint+"?_webcgikey=uniform_get_Dissinfo&format=json&inCharset=utf8&outCharset=utf8", jsonBody)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Code int `json:"code"`
		Req0 struct {
			Code int `json:"code"`
			Data struct {
				Code    int `json:"code"`
				DirInfo struct {
					ID      int64  `json:"id"`
					DirID   int64  `json:"dirid"`
					Title   string `json:"title"`
					Desc    string `json:"desc"`
					PicURL  string `json:"picurl"`
					PicURL2 string `json:"picurl2"`
					SongNum int    `json:"songnum"`
					Creator struct {
						Nick string `json:"nick"`
					} `json:"creator"`
				} `json:"dirinfo"`
				Songlist []listedSong `json:"songlist"`
			} `json:"data"`
		} `json:"req_0"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("qqmusic: decode playlist detail: %w", err)
	}
	if resp.Code != 0 || resp.Req0.Code != 0 || resp.Req0.Data.Code != 0 {
		return nil, service.NewUnavailableError("qqmusic", "playlist", playlistID)
	}

	data := resp.Req0.Data
	result := &playlistData{
		Name:     strings.TrimSpace(data.DirInfo.Title),
		Desc:     strings.TrimSpace(data.DirInfo.Desc),
		CoverURL: strings.TrimSpace(data.DirInfo.PicURL2),
		Total:    data.DirInfo.SongNum,
		Creator:  strings.TrimSpace(data.DirInfo.Creator.Nick),
		Songs:    data.Songlist,
	}
	if result.CoverURL == "" {
		result.CoverURL = strings.TrimSpace(data.DirInfo.PicURL)
	}
	result.ID = data.DirInfo.ID
	if result.ID == 0 {
		result.ID = data.DirInfo.DirID
	}
	if result.ID == 0 && result.Name == "" {
		return nil, service.NewNotFoundError("qqmusic", "playlist", playlistID)
	}
	return result, nil
}

// SearchSongs searches tracks by keyword through the desktop search service.
func (c *Client) SearchSongs(ctx context.Context, keyword string, limit int) ([]listedSong, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, service.NewNotFoundError("qqmusic", "search", "")
	}
	if limit <= 0 {
		limit = 10
	}

	payload := map[string]interface{}{
		"comm": map[string]interface{}{
			"ct":  "19",
			"cv":  "1859",
			"uin": "0",
		},
		"req": map[string]interface{}{
			"method": "DoSearchForQQMusicDesktop",
			"module": "music.search.SearchCgiService",
			"param": map[string]interface{}{
				"grp":          1,
				"num_per_page": limit,
				"page_num":     1,
				"query":        keyword,
				"search_type":  0,
			},
		},
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qqmusic: encode search payload: %w", err)
	}

	body, err := c.post(ctx, musicuEndpoint, jsonBody)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Code int `json:"code"`
		Req  struct {
			Code int `json:"code"`
			Data struct {
				Body struct {
					Song struct {
						List []listedSong `json:"list"`
					} `json:"song"`
				} `json:"body"`
			} `json:"data"`
		} `json:"req"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("qqmusic: decode search response: %w", err)
	}
	if resp.Code != 0 || resp.Req.Code != 0 {
		return nil, service.NewUnavailableError("qqmusic", "search", "")
	}
	return resp.Req.Data.Body.Song.List, nil
}

// Lyrics returns the raw LRC text and its translation, both base64-wrapped
// by the endpoint.
func (c *Client) Lyrics(ctx context.Context, songMid string) (string, string, error) {
	query := url.Values{}
	query.Set("songmid", songMid)
	query.Set("g_tk", "5381")
	query.Set("format", "json")
	query.Set("inCharset", "utf8")
	query.Set("outCharset", "utf-8")
	query.Set("platform", "yqq")

	body, err := c.get(ctx, lyricEndpoint+"?"+query.Encode())
	if err != nil {
		return "", "", err
	}

	var resp struct {
		RetCode int    `json:"retcode"`
		Lyric   string `json:"lyric"`
		Trans   string `json:"trans"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("qqmusic: decode lyric: %w", err)
	}
	if resp.RetCode != 0 {
		return "", "", service.NewNotFoundError("qqmusic", "lyrics", songMid)
	}
	return decodeBase64Text(resp.Lyric), decodeBase64Text(resp.Trans), nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus(resp.StatusCode, bodyBytes); err != nil {
		return nil, err
	}
	return bodyBytes, nil
}

func classifyStatus(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return service.NewAuthRequiredError("qqmusic")
	case http.StatusTooManyRequests:
		return service.NewRateLimitedError("qqmusic")
	case http.StatusNotFound:
		return service.NewNotFoundError("qqmusic", "track", "")
	default:
		if status >= 500 {
			return service.NewUnavailableError("qqmusic", "api", "")
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("qqmusic: http %d: %s", status, strings.TrimSpace(string(body)))
		}
	}
	return nil
}

func parseAuthCookie(cookie string) (uin string, authst string) {
	uin = cookieValue(cookie, "uin")
	authst = cookieValue(cookie, "qqmusic_key")
	if uin == "" {
		uin = "0"
	}
	return uin, authst
}

func cookieValue(cookie, key string) string {
	if cookie == "" || key == "" {
		return ""
	}
	for _, part := range strings.Split(cookie, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && strings.TrimSpace(kv[0]) == key {
			return strings.TrimSpace(kv[1])
		}
	}
	return ""
}

func decodeBase64Text(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return trimmed
	}
	return string(decoded)
}

func isNumericID(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	_, err := strconv.ParseInt(value, 10, 64)
	return err == nil
}
