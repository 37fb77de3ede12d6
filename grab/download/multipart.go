package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// MultipartOptions configures ranged concurrent downloads.
type MultipartOptions struct {
	Enabled bool
	// Number of concurrent parts (default: 4)
	Concurrency int
	// Minimum file size for multipart download in bytes (default: 5MB)
	MinSize int64
	// Size of each part in bytes (default: auto-calculated)
	PartSize int64
}

// MultipartDownloader splits large downloads into ranged parts fetched
// concurrently, then merges them.
type MultipartDownloader struct {
	client      *http.Client
	concurrency int
	minSize     int64
	partSize    int64
}

type part struct {
	index int
	start int64
	end   int64
	path  string
}

// progressTracker aggregates progress across parts.
type progressTracker struct {
	mu       sync.Mutex
	parts    map[int]int64
	total    int64
	callback ProgressFunc
	lastCall time.Time
}

func newProgressTracker(total int64, callback ProgressFunc) *progressTracker {
	return &progressTracker{
		parts:    make(map[int]int64),
		total:    total,
		callback: callback,
		lastCall: time.Now(),
	}
}

func (pt *progressTracker) update(partIndex int, written int64) {
	if pt.callback == nil {
		return
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.parts[partIndex] = written

	now := time.Now()
	if now.Sub(pt.lastCall) < 500*time.Millisecond {
		return
	}
	pt.lastCall = now

	var totalWritten int64
	for _, w := range pt.parts {
		totalWritten += w
	}

	pt.callback(totalWritten, pt.total)
}

func NewMultipartDownloader(client *http.Client, opts MultipartOptions) *MultipartDownloader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MinSize <= 0 {
		opts.MinSize = 5 * 1024 * 1024 // 5MB
	}

	return &MultipartDownloader{
		client:      client,
		concurrency: opts.Concurrency,
		minSize:     opts.MinSize,
		partSize:    opts.PartSize,
	}
}

// probeRange checks whether the server supports Range requests and reports
// the content length.
func (md *MultipartDownloader) probeRange(ctx context.Context, rawURL string, headers map[string]string) (bool, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := md.client.Do(req)
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, 0, fmt.Errorf("HEAD request failed with status %d", resp.StatusCode)
	}

	// Server must explicitly support ranges and provide content length
	supportsRange := resp.Header.Get("Accept-Ranges") == "bytes" && resp.ContentLength > 0

	return supportsRange, resp.ContentLength, nil
}

// Download fetches rawURL in concurrent ranged parts. It returns an error
// when the server cannot serve ranges or the file is too small; the caller
// falls back to a single stream.
func (md *MultipartDownloader) Download(ctx context.Context, rawURL string, headers map[string]string, destPath string, knownSize int64, progress ProgressFunc) (int64, error) {
	supportsRange, contentLength, err := md.probeRange(ctx, rawURL, headers)
	if err != nil {
		return 0, fmt.Errorf("range check failed: %w", err)
	}

	totalSize := contentLength
	if totalSize <= 0 && knownSize > 0 {
		totalSize = knownSize
	}

	if !supportsRange {
		return 0, fmt.Errorf("server does not support Range requests")
	}
	if totalSize <= 0 {
		return 0, fmt.Errorf("unknown file size")
	}
	if totalSize < md.minSize {
		return 0, fmt.Errorf("file too small (%d bytes < %d bytes)", totalSize, md.minSize)
	}

	partSize := md.partSize
	if partSize <= 0 {
		partSize = totalSize / int64(md.concurrency)
		if partSize < 1024*1024 {
			partSize = 1024 * 1024 // Minimum 1MB per part
		}
	}

	numParts := int(totalSize / partSize)
	if totalSize%partSize != 0 {
		numParts++
	}

	tempDir := destPath + ".parts"
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tracker := newProgressTracker(totalSize, progress)

	parts := make([]part, numParts)
	for i := range parts {
		start := int64(i) * partSize
		end := start + partSize - 1
		if i == numParts-1 {
			end = totalSize - 1
		}
		parts[i] = part{
			index: i,
			start: start,
			end:   end,
			path:  fmt.Sprintf("%s/part.%d", tempDir, i),
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(md.concurrency)
	for i := range parts {
		p := parts[i]
		g.Go(func() error {
			if err := md.downloadPart(gctx, rawURL, headers, p, tracker); err != nil {
				return fmt.Errorf("part %d failed: %w", p.index, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	written, err := mergeParts(parts, destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to merge parts: %w", err)
	}

	if progress != nil {
		progress(written, totalSize)
	}

	return written, nil
}

func (md *MultipartDownloader) downloadPart(ctx context.Context, rawURL string, headers map[string]string, p part, tracker *progressTracker) (retErr error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	for k, v := range headers {
		if k != "Range" {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", p.start, p.end))

	resp, err := md.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Accept both 200 (full content) and 206 (partial content)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status %d for range request", resp.StatusCode)
	}

	file, err := os.Create(p.path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()

	expectedSize := p.end - p.start + 1
	var written int64
	buf := make([]byte, 32*1024)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		nr, err := resp.Body.Read(buf)
		if nr > 0 {
			nw, ew := file.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
				tracker.update(p.index, written)
			}
			if ew != nil {
				return ew
			}
			if nr != nw {
				return io.ErrShortWrite
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}

	if written != expectedSize {
		return fmt.Errorf("part size mismatch: got %d, expected %d", written, expectedSize)
	}

	return nil
}

func mergeParts(parts []part, destPath string) (totalWritten int64, retErr error) {
	outFile, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := outFile.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()

	for _, p := range parts {
		partFile, err := os.Open(p.path)
		if err != nil {
			return totalWritten, err
		}

		written, err := io.Copy(outFile, partFile)
		closeErr := partFile.Close()
		if err != nil {
			return totalWritten, err
		}
		if closeErr != nil {
			return totalWritten, closeErr
		}

		totalWritten += written
	}

	return totalWritten, nil
}
