package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/musegrab/musegrab/grab/service"
)

type ProgressFunc func(written, total int64)

// Fetcher streams remote audio and artwork to disk. Transport-level retries
// (connection resets, 5xx) are handled by the retryable client; policy-level
// retries belong to the caller.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	checkMD5  bool
	multipart *MultipartDownloader
}

type FetcherOptions struct {
	Timeout  time.Duration
	CheckMD5 bool

	// Multipart enables ranged concurrent downloads for large files.
	Multipart MultipartOptions
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = nil

	client := rc.StandardClient()

	f := &Fetcher{
		client:   client,
		timeout:  opts.Timeout,
		checkMD5: opts.CheckMD5,
	}
	if opts.Multipart.Enabled {
		f.multipart = NewMultipartDownloader(client, opts.Multipart)
	}
	return f
}

// Fetch downloads the result's URL to destPath. Files already materialized
// by a module (TempPath) are moved into place instead. Size and MD5 are
// verified when the module reported them.
func (f *Fetcher) Fetch(ctx context.Context, result *service.DownloadResult, destPath string, progress ProgressFunc) (int64, error) {
	if result == nil {
		return 0, errors.New("download result missing")
	}
	if destPath == "" {
		return 0, errors.New("dest path missing")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return 0, err
	}

	if result.TempPath != "" {
		return f.adoptLocal(result, destPath)
	}
	if result.URL == "" {
		return 0, errors.New("download result has neither URL nor local file")
	}

	if f.multipart != nil {
		written, err := f.multipart.Download(ctx, result.URL, result.Headers, destPath, result.Size, progress)
		if err == nil {
			return f.verify(result, destPath, written)
		}
		// Range downloads are an optimization; any failure falls back to a
		// single stream.
		_ = os.Remove(destPath)
	}

	written, err := f.fetchOnce(ctx, result, destPath, progress)
	if err != nil {
		_ = os.Remove(destPath)
		return 0, err
	}
	return f.verify(result, destPath, written)
}

// FetchURL downloads a bare URL (covers, booklets) to destPath.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL, destPath string) error {
	if rawURL == "" {
		return errors.New("url missing")
	}
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}
	_, err := f.fetchOnce(ctx, &service.DownloadResult{URL: rawURL}, destPath, nil)
	if err != nil {
		_ = os.Remove(destPath)
	}
	return err
}

func (f *Fetcher) adoptLocal(result *service.DownloadResult, destPath string) (int64, error) {
	if err := os.Rename(result.TempPath, destPath); err != nil {
		// Cross-device moves need a copy.
		if err := copyFile(result.TempPath, destPath); err != nil {
			return 0, err
		}
		_ = os.Remove(result.TempPath)
	}
	info, err := os.Stat(destPath)
	if err != nil {
		return 0, err
	}
	return f.verify(result, destPath, info.Size())
}

func (f *Fetcher) verify(result *service.DownloadResult, destPath string, written int64) (int64, error) {
	if result.Size > 0 && written != result.Size {
		_ = os.Remove(destPath)
		return 0, fmt.Errorf("incomplete download: got %d bytes, expected %d", written, result.Size)
	}
	if f.checkMD5 && result.MD5 != "" {
		ok, err := verifyMD5(destPath, result.MD5)
		if err != nil {
			_ = os.Remove(destPath)
			return 0, err
		}
		if !ok {
			_ = os.Remove(destPath)
			return 0, errors.New("md5 verification failed")
		}
	}
	return written, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, result *service.DownloadResult, destPath string, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
	if err != nil {
		return 0, err
	}
	for k, v := range result.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	total := result.Size
	if total <= 0 {
		total = resp.ContentLength
	}

	return copyWithProgress(file, resp.Body, total, progress)
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, 128*1024)
	var written int64
	lastUpdate := time.Now()

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if progress != nil && time.Since(lastUpdate) >= 2*time.Second {
				progress(written, total)
				lastUpdate = time.Now()
			}
		}
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func verifyMD5(filePath, expected string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return false, err
	}
	actual := hex.EncodeToString(h.Sum(nil))
	return strings.EqualFold(actual, expected), nil
}
