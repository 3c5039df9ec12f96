// Package palette extracts a single dominant color from album art.
//
// The dominant color is the most saturated sampled pixel whose brightness is
// neither near-black nor near-white.
package palette

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/lucasb-eyer/go-colorful"
)

// Fallback is returned when every sampled pixel is excluded, e.g. a pure
// grayscale cover. Spotify green.
const Fallback = "#1db954"

const (
	minBrightness = 0.08
	maxBrightness = 0.92
)

// Extract returns the dominant color of the image as an RGB hex string.
//
// The image is sampled on a grid rather than scanned per pixel. A decode
// failure returns an error ("absent" to the caller); an image with no
// qualifying pixel returns Fallback. The asymmetry is deliberate: an
// all-excluded cover still has a well-defined answer, a broken fetch does
// not.
func Extract(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	step := min(width, height) / 16
	if step < 1 {
		step = 1
	}

	bestSat := -1.0
	best := Fallback

	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			r := float64(r16 >> 8)
			g := float64(g16 >> 8)
			b := float64(b16 >> 8)

			brightness := (r + g + b) / 765
			if brightness < minBrightness || brightness > maxBrightness {
				continue
			}

			c := colorful.Color{R: r / 255, G: g / 255, B: b / 255}
			if _, sat, _ := c.Hsl(); sat > bestSat {
				bestSat = sat
				best = c.Hex()
			}
		}
	}

	return best, nil
}
