package cover

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/nfnt/resize"
)

// Diff computes the perceptual distance between two images as the root mean
// square of per-pixel channel differences after both are normalized to a
// res x res square. The result is on the 0-255 channel scale; identical
// artwork at different resolutions or compression levels scores well under
// 25, unrelated artwork far above it.
func Diff(a, b image.Image, res int) float64 {
	if res <= 0 {
		res = 100
	}

	na := resize.Resize(uint(res), uint(res), a, resize.Lanczos3)
	nb := resize.Resize(uint(res), uint(res), b, resize.Lanczos3)

	var sum float64
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			ar, ag, ab, _ := na.At(x, y).RGBA()
			br, bg, bb, _ := nb.At(x, y).RGBA()

			// RGBA returns 16-bit channels; scale to 8-bit.
			dr := float64(ar>>8) - float64(br>>8)
			dg := float64(ag>>8) - float64(bg>>8)
			db := float64(ab>>8) - float64(bb>>8)

			sum += dr*dr + dg*dg + db*db
		}
	}

	n := float64(res * res * 3)
	return math.Sqrt(sum / n)
}

// DiffFiles compares two image files on disk.
func DiffFiles(pathA, pathB string, res int) (float64, error) {
	a, err := decodeImage(pathA)
	if err != nil {
		return 0, err
	}
	b, err := decodeImage(pathB)
	if err != nil {
		return 0, err
	}
	return Diff(a, b, res), nil
}

func decodeImage(filePath string) (image.Image, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	img, jpegErr := jpeg.Decode(file)
	if jpegErr == nil {
		return img, nil
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	img, pngErr := png.Decode(file)
	if pngErr == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image decode error %s", filePath)
}
