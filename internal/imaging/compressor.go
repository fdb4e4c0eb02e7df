// Package imaging provides the size-targeted JPEG compression used for
// every catalog image upload.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/talkincode/stockpilot/internal/domain"
)

const (
	// DefaultMaxDimension caps the longer side of any stored image.
	DefaultMaxDimension = 2048

	defaultMaxAttempts = 8
	defaultTolerance   = 0.10

	minQuality = 0.1
	maxQuality = 1.0
)

// Compressor re-encodes images to approach a target byte budget with a
// bounded binary search over JPEG quality.
type Compressor struct {
	MaxDimension int
	MaxAttempts  int
	Tolerance    float64
}

func NewCompressor() *Compressor {
	return &Compressor{
		MaxDimension: DefaultMaxDimension,
		MaxAttempts:  defaultMaxAttempts,
		Tolerance:    defaultTolerance,
	}
}

// Compress decodes data, downscales it to the dimension cap when needed
// and searches for the quality whose encoded size lands closest to
// targetBytes. The best candidate seen is returned even when a later
// search step produced a worse one, so the search never overshoots past
// an acceptable result. The size measure is the exact encoded byte count.
func (c *Compressor) Compress(data []byte, targetBytes int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(domain.ErrImageDecode, "decode: %v", err)
	}
	img = c.downscale(img)

	lo, hi := minQuality, maxQuality
	var best []byte
	bestDist := math.Inf(1)
	target := float64(targetBytes)

	var buf bytes.Buffer
	for attempt := 0; attempt < c.attempts(); attempt++ {
		quality := (lo + hi) / 2

		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.JPEG,
			imaging.JPEGQuality(encoderQuality(quality))); err != nil {
			return nil, errors.Wrap(err, "jpeg encode")
		}

		size := float64(buf.Len())
		dist := math.Abs(size - target)
		if dist < bestDist {
			best = append(best[:0], buf.Bytes()...)
			bestDist = dist
		}

		if size > target {
			hi = quality
		} else {
			lo = quality
		}
		if dist/target < c.tolerance() {
			break
		}
	}
	return best, nil
}

// downscale caps the longer side at MaxDimension, preserving aspect
// ratio and rounding to the nearest pixel.
func (c *Compressor) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	limit := c.maxDimension()
	longer := width
	if height > longer {
		longer = height
	}
	if longer <= limit {
		return img
	}

	ratio := float64(limit) / float64(longer)
	newWidth := int(math.Round(float64(width) * ratio))
	newHeight := int(math.Round(float64(height) * ratio))
	return imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
}

func (c *Compressor) maxDimension() int {
	if c.MaxDimension > 0 {
		return c.MaxDimension
	}
	return DefaultMaxDimension
}

func (c *Compressor) attempts() int {
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return defaultMaxAttempts
}

func (c *Compressor) tolerance() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return defaultTolerance
}

// encoderQuality maps the [0.1, 1.0] search parameter onto the encoder's
// 1..100 scale.
func encoderQuality(q float64) int {
	eq := int(math.Round(q * 100))
	if eq < 1 {
		eq = 1
	}
	if eq > 100 {
		eq = 100
	}
	return eq
}

// Placeholder produces the small blank JPEG staged for imported products
// that have no uploaded image yet.
func Placeholder() []byte {
	img := imaging.New(100, 100, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	var buf bytes.Buffer
	// encoding a solid fill cannot fail with a bytes.Buffer sink
	_ = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80))
	return buf.Bytes()
}
