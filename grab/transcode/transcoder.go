package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/service"
)

// experimentalEncoderRe matches the hint ffmpeg prints when the default
// encoder for a codec is experimental and a stable alternative exists.
var experimentalEncoderRe = regexp.MustCompile(`non experimental encoder '([^']+)'`)

// Transcoder converts downloaded tracks between codecs by invoking the
// external ffmpeg binary.
type Transcoder struct {
	ffmpegPath   string
	keepOriginal bool
	flags        map[service.Codec][]string
	log          grab.Logger
}

func New(policy config.ConversionSettings, log grab.Logger) *Transcoder {
	path := policy.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	return &Transcoder{
		ffmpegPath:   path,
		keepOriginal: policy.KeepOriginal,
		flags:        policy.Flags,
		log:          log,
	}
}

// Convert re-encodes srcPath into the target codec. It returns the converted
// file's path and, under keep-original, the path where the source file now
// lives. The output is written to a scratch name and renamed only after
// ffmpeg exits cleanly, so a failed conversion never leaves a truncated
// track at the final path. When ffmpeg rejects the default encoder as
// experimental, the stable encoder it names is tried once.
func (t *Transcoder) Convert(ctx context.Context, srcPath string, target service.Codec) (string, string, error) {
	encoder := target.EncoderName()
	if encoder == "" {
		return "", "", fmt.Errorf("no encoder for codec %s", target)
	}

	ext := "." + target.Props().Container
	finalPath := strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ext
	scratch := finalPath + ".convert" + ext

	stderr, err := t.run(ctx, srcPath, scratch, encoder, t.flags[target])
	if err != nil {
		if alt := alternateEncoder(stderr); alt != "" {
			t.log.Info("retrying conversion with stable encoder", "encoder", alt)
			_ = os.Remove(scratch)
			stderr, err = t.run(ctx, srcPath, scratch, alt, t.flags[target])
		}
	}
	if err != nil {
		_ = os.Remove(scratch)
		return "", "", fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr))
	}

	// When source and target share a container the converted file lands on
	// the source path. Under keep-original the source is set aside first so
	// the rename cannot overwrite it.
	original := ""
	if t.keepOriginal {
		if finalPath == srcPath {
			original = strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + "_original" + filepath.Ext(srcPath)
			if err := os.Rename(srcPath, original); err != nil {
				_ = os.Remove(scratch)
				return "", "", err
			}
		} else {
			original = srcPath
		}
	}

	if err := os.Rename(scratch, finalPath); err != nil {
		_ = os.Remove(scratch)
		return "", "", err
	}
	if original == "" && finalPath != srcPath {
		_ = os.Remove(srcPath)
	}
	return finalPath, original, nil
}

func (t *Transcoder) run(ctx context.Context, srcPath, outPath, encoder string, flags []string) (string, error) {
	args := ffmpegArgs(srcPath, outPath, encoder, flags)

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.log.Debug("running ffmpeg", "args", strings.Join(args, " "))
	err := cmd.Run()
	return stderr.String(), err
}

// ffmpegArgs builds the conversion invocation. Per-target encoder flags sit
// between the encoder selection and the output path so they apply to the
// audio stream being written.
func ffmpegArgs(srcPath, outPath, encoder string, flags []string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", srcPath,
		"-map_metadata", "0",
		"-vn",
		"-c:a", encoder,
	}
	args = append(args, flags...)
	return append(args, outPath)
}

func alternateEncoder(stderr string) string {
	m := experimentalEncoderRe.FindStringSubmatch(stderr)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
