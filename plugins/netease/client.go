package netease

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/XiaoMengXinX/Music163Api-Go/api"
	"github.com/XiaoMengXinX/Music163Api-Go/types"
	"github.com/XiaoMengXinX/Music163Api-Go/utils"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"

	"github.com/musegrab/musegrab/grab"
)

// Client provides resilient NetEase API calls: transport retries with
// backoff, and a circuit breaker so a dead API stops burning requests.
type Client struct {
	baseData   utils.RequestData
	spoofIP    bool
	retry      *retryablehttp.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	minBackoff time.Duration
	maxBackoff time.Duration
	log        grab.Logger
}

// Some catalog entries are only served to mainland clients; requests can
// carry a spoofed client IP from these ranges.
var mainlandIPPrefixes = [][2]uint8{
	{113, 0}, {113, 64}, {113, 128}, {114, 214},
	{118, 122}, {119, 112}, {211, 161}, {221, 238},
	{116, 224}, {222, 128}, {183, 128}, {116, 128},
	{101, 226}, {61, 128},
}

// albumDetail is the album endpoint response; the upstream API package does
// not model it, so it is decoded from the raw payload.
type albumDetail struct {
	Code  int                    `json:"code"`
	Album albumMetadata          `json:"album"`
	Songs []types.SongDetailData `json:"songs"`
}

type albumMetadata struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PicURL      string `json:"picUrl"`
	Description string `json:"description"`
	BriefDesc   string `json:"briefDesc"`
	Size        int    `json:"size"`
	PublishTime int64  `json:"publishTime"`
	Artist      struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
	Artists []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
}

// NewClient creates a NetEase client. The MUSIC_U cookie unlocks lossless
// and hi-res retrieval; without it the API falls back to previews.
func NewClient(musicU string, spoofIP bool, log grab.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	settings := gobreaker.Settings{
		Name:        "netease-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	data := utils.RequestData{}
	if musicU != "" {
		data.Cookies = []*http.Cookie{{Name: "MUSIC_U", Value: musicU}}
	} else if log != nil {
		log.Warn("netease client has no MUSIC_U cookie, lossless retrieval may fail")
	}

	return &Client{
		baseData:   data,
		spoofIP:    spoofIP,
		retry:      rc,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		maxRetries: rc.RetryMax,
		minBackoff: rc.RetryWaitMin,
		maxBackoff: rc.RetryWaitMax,
		log:        log,
	}
}

// SongDetails retrieves detail data for a batch of song IDs.
func (c *Client) SongDetails(ctx context.Context, musicIDs []int) (*types.SongsDetailData, error) {
	if len(musicIDs) == 0 {
		return nil, nil
	}

	var result types.SongsDetailData
	err := c.execute(ctx, func() error {
		data, err := api.GetSongDetail(c.requestData(), musicIDs)
		if err != nil {
			return err
		}
		result = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SongURL resolves the retrieval URL for a song at the given quality level.
func (c *Client) SongURL(ctx context.Context, musicID int, level string) (*types.SongsURLData, error) {
	var result types.SongsURLData
	err := c.execute(ctx, func() error {
		data, err := api.GetSongURL(c.requestData(), api.SongURLConfig{Ids: []int{musicID}, Level: level})
		if err != nil {
			return err
		}
		result = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AlbumDetail retrieves album metadata with its track listing.
func (c *Client) AlbumDetail(ctx context.Context, albumID int) (*albumDetail, error) {
	var result albumDetail
	err := c.execute(ctx, func() error {
		data, err := api.GetAlbumDetail(c.requestData(), albumID)
		if err != nil {
			return err
		}

		raw := strings.TrimSpace(data.RawJson)
		if raw == "" {
			rawBytes, marshalErr := json.Marshal(data)
			if marshalErr != nil {
				return fmt.Errorf("netease: marshal album detail: %w", marshalErr)
			}
			raw = string(rawBytes)
		}

		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return fmt.Errorf("netease: decode album detail: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// PlaylistDetail retrieves playlist metadata with its track ID listing.
func (c *Client) PlaylistDetail(ctx context.Context, playlistID int) (*types.PlaylistDetailData, error) {
	var result types.PlaylistDetailData
	err := c.execute(ctx, func() error {
		data, err := api.GetPlaylistDetail(c.requestData(), playlistID)
		if err != nil {
			return err
		}
		result = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchSongs searches songs by keyword.
func (c *Client) SearchSongs(ctx context.Context, keyword string, limit int) (*types.SearchSongData, error) {
	var result types.SearchSongData
	err := c.execute(ctx, func() error {
		data, err := api.SearchSong(c.requestData(), api.SearchSongConfig{Keyword: keyword, Limit: limit})
		if err != nil {
			return err
		}
		result = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Lyric retrieves lyric data for a song.
func (c *Client) Lyric(ctx context.Context, musicID int) (*types.SongLyricData, error) {
	var result types.SongLyricData
	err := c.execute(ctx, func() error {
		data, err := api.GetSongLyric(c.requestData(), musicID)
		if err != nil {
			return err
		}
		result = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) execute(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.withRetry(ctx, fn)
	})
	return err
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == c.maxRetries {
			break
		}

		wait := c.retry.Backoff(c.minBackoff, c.maxBackoff, attempt, nil)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if lastErr == nil {
		lastErr = errors.New("netease: retry failed")
	}
	return lastErr
}

func (c *Client) requestData() utils.RequestData {
	data := c.baseData

	headers := make(utils.Headers, 0, len(c.baseData.Headers)+4)
	headers = append(headers, c.baseData.Headers...)

	if c.spoofIP {
		if ip, err := randomMainlandIPv4(); err == nil {
			for _, name := range []string{"X-Real-IP", "X-Forwarded-For", "HTTP_X_FORWARDED_FOR", "CLIENT-IP"} {
				headers = append(headers, struct {
					Name  string
					Value string
				}{Name: name, Value: ip})
			}
		} else if c.log != nil {
			c.log.Warn("failed to generate random spoof ip", "error", err)
		}
	}

	data.Headers = headers
	return data
}

func randomMainlandIPv4() (string, error) {
	prefixIdx, err := cryptoRandInt(len(mainlandIPPrefixes))
	if err != nil {
		return "", err
	}
	prefix := mainlandIPPrefixes[prefixIdx]

	third, err := cryptoRandInt(254)
	if err != nil {
		return "", err
	}
	fourth, err := cryptoRandInt(254)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d.%d.%d.%d", prefix[0], prefix[1], third+1, fourth+1), nil
}

func cryptoRandInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("invalid max: %d", max)
	}
	n, err := crand.Int(crand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
