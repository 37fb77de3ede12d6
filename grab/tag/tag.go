package tag

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	marker "github.com/XiaoMengXinX/163KeyMarker"
	"github.com/bogem/id3v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"go.senan.xyz/taglib"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/service"
)

// maxCoverBytes caps embedded artwork; players choke on multi-megabyte tags.
const maxCoverBytes = 10 * 1024 * 1024

// Data is the full tag set written into a downloaded track.
type Data struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	AlbumArtist string `json:"album_artist,omitempty"`
	Year        string `json:"year,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Comment     string `json:"comment,omitempty"`

	TrackNumber int `json:"track_number,omitempty"`
	TotalTracks int `json:"total_tracks,omitempty"`
	DiscNumber  int `json:"disc_number,omitempty"`
	TotalDiscs  int `json:"total_discs,omitempty"`

	ISRC string `json:"isrc,omitempty"`
	UPC  string `json:"upc,omitempty"`

	// Lyrics is the unsynced text embedded into the file; synced lyrics go
	// to a side file instead.
	Lyrics string `json:"lyrics,omitempty"`

	Credits []service.CreditsEntry `json:"credits,omitempty"`

	// Extra carries module-provided tag payloads, like the NetEase 163 key.
	Extra service.Params `json:"extra,omitempty"`
}

// Tagger embeds tags and artwork into downloaded files, choosing the
// mechanism by container.
type Tagger struct {
	log grab.Logger
}

func New(log grab.Logger) *Tagger {
	return &Tagger{log: log}
}

// Embed writes the tag set and cover into the audio file. Container support:
// mp3 through ID3v2 frames, flac through vorbis comment and picture blocks,
// m4a/ogg/opus/wav through taglib (artwork excluded there). Unsupported
// containers return an error the caller recovers from with a tag sidecar.
func (t *Tagger) Embed(audioPath string, data *Data, coverPath string) error {
	if data == nil {
		return nil
	}

	switch strings.ToLower(filepath.Ext(audioPath)) {
	case ".mp3":
		return t.embedMP3(audioPath, data, coverPath)
	case ".flac":
		return t.embedFLAC(audioPath, data, coverPath)
	case ".m4a", ".mp4", ".ogg", ".opus", ".wav":
		return t.embedGeneric(audioPath, data, coverPath)
	default:
		return errors.New("unsupported audio format for tags")
	}
}

func (t *Tagger) embedMP3(audioPath string, data *Data, coverPath string) error {
	meta, err := id3v2.Open(audioPath, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer meta.Close()

	meta.SetDefaultEncoding(id3v2.EncodingUTF8)

	if data.Title != "" {
		meta.SetTitle(data.Title)
	}
	if data.Artist != "" {
		meta.SetArtist(data.Artist)
	}
	if data.Album != "" {
		meta.SetAlbum(data.Album)
	}
	if data.AlbumArtist != "" {
		meta.AddTextFrame("TPE2", id3v2.EncodingUTF8, data.AlbumArtist)
	}
	if data.Year != "" {
		meta.AddTextFrame("TDRC", id3v2.EncodingUTF8, data.Year)
	}
	if data.TrackNumber > 0 {
		meta.AddTextFrame("TRCK", id3v2.EncodingUTF8, numberOf(data.TrackNumber, data.TotalTracks))
	}
	if data.DiscNumber > 0 {
		meta.AddTextFrame("TPOS", id3v2.EncodingUTF8, numberOf(data.DiscNumber, data.TotalDiscs))
	}
	if data.Genre != "" {
		meta.SetGenre(data.Genre)
	}
	if data.ISRC != "" {
		meta.AddTextFrame("TSRC", id3v2.EncodingUTF8, data.ISRC)
	}
	if data.Comment != "" {
		meta.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Text:     data.Comment,
		})
	}
	for _, credit := range data.Credits {
		meta.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: credit.Role,
			Value:       strings.Join(credit.Names, "; "),
		})
	}

	if data.Lyrics != "" {
		meta.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "und",
			ContentDescriptor: "LRC",
			Lyrics:            data.Lyrics,
		})
	}

	if key := t.markerKey(data); key != "" {
		meta.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingISO,
			Language: "chs",
			Text:     key,
		})
	}

	if coverPath != "" {
		artwork, err := readCoverWithLimit(coverPath, maxCoverBytes)
		if err != nil {
			t.log.Warn("failed to read cover for mp3 embedding", "error", err)
		} else if len(artwork) > 0 {
			meta.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingISO,
				MimeType:    http.DetectContentType(artwork[:min(len(artwork), 32)]),
				PictureType: id3v2.PTFrontCover,
				Description: "Front cover",
				Picture:     artwork,
			})
		}
	}

	return meta.Save()
}

func (t *Tagger) embedFLAC(audioPath string, data *Data, coverPath string) error {
	file, err := os.Open(audioPath)
	if err != nil {
		return err
	}
	defer file.Close()

	parsed, err := flac.ParseMetadata(file)
	if err != nil {
		return err
	}

	if coverPath != "" {
		artwork, err := readCoverWithLimit(coverPath, maxCoverBytes)
		if err != nil {
			t.log.Warn("failed to read cover for flac embedding", "error", err)
		} else if len(artwork) > 0 {
			mime := http.DetectContentType(artwork[:min(len(artwork), 32)])
			picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "", artwork, mime)
			if err != nil {
				t.log.Warn("failed to create flac picture", "error", err)
			} else {
				block := picture.Marshal()
				parsed.Meta = append(parsed.Meta, &block)
			}
		}
	}

	vorbis := flacvorbis.New()
	add := func(field, value string) {
		if value != "" {
			_ = vorbis.Add(field, value)
		}
	}
	add(flacvorbis.FIELD_TITLE, data.Title)
	add(flacvorbis.FIELD_ARTIST, data.Artist)
	add(flacvorbis.FIELD_ALBUM, data.Album)
	add("ALBUMARTIST", data.AlbumArtist)
	add("DATE", data.Year)
	add("GENRE", data.Genre)
	add("COMMENT", data.Comment)
	add("ISRC", data.ISRC)
	add("BARCODE", data.UPC)
	add("LYRICS", data.Lyrics)
	if data.TrackNumber > 0 {
		add("TRACKNUMBER", strconv.Itoa(data.TrackNumber))
	}
	if data.TotalTracks > 0 {
		add("TRACKTOTAL", strconv.Itoa(data.TotalTracks))
	}
	if data.DiscNumber > 0 {
		add("DISCNUMBER", strconv.Itoa(data.DiscNumber))
	}
	if data.TotalDiscs > 0 {
		add("DISCTOTAL", strconv.Itoa(data.TotalDiscs))
	}
	for _, credit := range data.Credits {
		add(strings.ToUpper(credit.Role), strings.Join(credit.Names, "; "))
	}
	if key := t.markerKey(data); key != "" {
		add(flacvorbis.FIELD_DESCRIPTION, key)
	}

	block := vorbis.Marshal()
	idx := -1
	for i, m := range parsed.Meta {
		if m.Type == flac.VorbisComment {
			idx = i
			break
		}
	}
	if idx >= 0 {
		parsed.Meta[idx] = &block
	} else {
		parsed.Meta = append(parsed.Meta, &block)
	}

	return saveFLAC(audioPath, parsed)
}

// embedGeneric handles containers taglib covers. Artwork embedding is not
// available through this path; the external cover copy serves those files.
func (t *Tagger) embedGeneric(audioPath string, data *Data, coverPath string) error {
	tags := map[string][]string{}
	set := func(field string, values ...string) {
		out := values[:0]
		for _, v := range values {
			if v != "" {
				out = append(out, v)
			}
		}
		if len(out) > 0 {
			tags[field] = out
		}
	}

	set(taglib.Title, data.Title)
	set(taglib.Artist, data.Artist)
	set(taglib.Album, data.Album)
	set(taglib.AlbumArtist, data.AlbumArtist)
	set(taglib.Date, data.Year)
	set(taglib.Genre, data.Genre)
	set(taglib.Comment, data.Comment)
	set(taglib.ISRC, data.ISRC)
	set(taglib.Lyrics, data.Lyrics)
	if data.TrackNumber > 0 {
		set(taglib.TrackNumber, strconv.Itoa(data.TrackNumber))
	}
	if data.DiscNumber > 0 {
		set(taglib.DiscNumber, strconv.Itoa(data.DiscNumber))
	}
	for _, credit := range data.Credits {
		set(strings.ToUpper(credit.Role), credit.Names...)
	}
	if key := t.markerKey(data); key != "" {
		set("DESCRIPTION", key)
	}

	if err := taglib.WriteTags(audioPath, tags, taglib.Clear); err != nil {
		return err
	}

	if coverPath != "" {
		t.log.Debug("cover embedding not supported for container, relying on external cover", "file", filepath.Base(audioPath))
	}
	return nil
}

// markerKey renders the NetEase 163 key when a module attached marker data.
func (t *Tagger) markerKey(data *Data) string {
	if data.Extra == nil {
		return ""
	}
	md, ok := data.Extra["netease_marker"].(marker.MarkerData)
	if !ok {
		return ""
	}
	return marker.Create163KeyStr(md)
}

func saveFLAC(audioPath string, file *flac.File) error {
	original, err := os.Open(audioPath)
	if err != nil {
		return err
	}
	defer original.Close()

	stat, err := original.Stat()
	if err != nil {
		return err
	}

	tmpPath := audioPath + "-tagged"
	out, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, stat.Mode())
	if err != nil {
		return err
	}

	if _, err := out.Write([]byte("fLaC")); err != nil {
		_ = out.Close()
		return err
	}
	for i, meta := range file.Meta {
		last := i == len(file.Meta)-1
		if _, err := out.Write(meta.Marshal(last)); err != nil {
			_ = out.Close()
			return err
		}
	}

	if _, err := original.Seek(4, 0); err != nil {
		_ = out.Close()
		return err
	}
	if _, err := out.ReadFrom(original); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, audioPath)
}

func numberOf(number, total int) string {
	if total > 0 {
		return fmt.Sprintf("%d/%d", number, total)
	}
	return strconv.Itoa(number)
}

func readCoverWithLimit(path string, maxSize int64) ([]byte, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if stat.Size() > maxSize {
		return nil, fmt.Errorf("cover image too large: %d bytes (max %d)", stat.Size(), maxSize)
	}
	return os.ReadFile(path)
}
