package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/musegrab/musegrab/grab/service"
)

func newFetcher(multipart bool) *Fetcher {
	return NewFetcher(FetcherOptions{
		Timeout:  10 * time.Second,
		CheckMD5: true,
		Multipart: MultipartOptions{
			Enabled:     multipart,
			Concurrency: 2,
			MinSize:     1,
			PartSize:    8,
		},
	})
}

func TestFetchWritesFile(t *testing.T) {
	body := []byte("not really audio but close enough")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Auth"); got != "token" {
			t.Errorf("missing header, got %q", got)
		}
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "track.flac")
	sum := md5.Sum(body)

	written, err := newFetcher(false).Fetch(context.Background(), &service.DownloadResult{
		URL:     srv.URL,
		Headers: map[string]string{"X-Auth": "token"},
		Size:    int64(len(body)),
		MD5:     hex.EncodeToString(sum[:]),
	}, dest, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if written != int64(len(body)) {
		t.Fatalf("written = %d, want %d", written, len(body))
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != string(body) {
		t.Fatal("content mismatch")
	}
}

func TestFetchRejectsBadMD5(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "track.mp3")
	_, err := newFetcher(false).Fetch(context.Background(), &service.DownloadResult{
		URL: srv.URL,
		MD5: strings.Repeat("0", 32),
	}, dest, nil)
	if err == nil {
		t.Fatal("expected md5 mismatch error")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("corrupt file should be removed")
	}
}

func TestFetchRejectsShortBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("short"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "track.mp3")
	_, err := newFetcher(false).Fetch(context.Background(), &service.DownloadResult{
		URL:  srv.URL,
		Size: 9999,
	}, dest, nil)
	if err == nil {
		t.Fatal("expected incomplete download error")
	}
}

func TestFetchAdoptsLocalFile(t *testing.T) {
	dir := t.TempDir()
	temp := filepath.Join(dir, "module-made.flac")
	if err := os.WriteFile(temp, []byte("module output"), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	dest := filepath.Join(dir, "final.flac")
	written, err := newFetcher(false).Fetch(context.Background(), &service.DownloadResult{
		TempPath: temp,
	}, dest, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if written != int64(len("module output")) {
		t.Fatalf("written = %d", written)
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Fatal("temp file should be gone after adoption")
	}
}

func rangeServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			return
		}

		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Write(body)
			return
		}

		var start, end int
		if err := parseRange(rangeHeader, &start, &end); err != nil {
			t.Errorf("bad range header %q", rangeHeader)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if end >= len(body) {
			end = len(body) - 1
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body[start : end+1])
	}))
}

func parseRange(rangeHeader string, start, end *int) error {
	trimmed := strings.TrimPrefix(rangeHeader, "bytes=")
	parts := strings.SplitN(trimmed, "-", 2)
	var err error
	if *start, err = strconv.Atoi(parts[0]); err != nil {
		return err
	}
	if *end, err = strconv.Atoi(parts[1]); err != nil {
		return err
	}
	return nil
}

func TestMultipartDownload(t *testing.T) {
	body := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	srv := rangeServer(t, body)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "big.flac")
	written, err := newFetcher(true).Fetch(context.Background(), &service.DownloadResult{
		URL:  srv.URL,
		Size: int64(len(body)),
	}, dest, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if written != int64(len(body)) {
		t.Fatalf("written = %d, want %d", written, len(body))
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("merged content mismatch: %q", got)
	}
}

func TestMultipartFallsBackWithoutRangeSupport(t *testing.T) {
	body := []byte("server without range support")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "plain.mp3")
	written, err := newFetcher(true).Fetch(context.Background(), &service.DownloadResult{
		URL: srv.URL,
	}, dest, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if written != int64(len(body)) {
		t.Fatalf("written = %d, want %d", written, len(body))
	}
}
