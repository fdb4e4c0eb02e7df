package imaging

import (
	"bytes"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/stockpilot/internal/domain"
)

// noisyJPEG encodes a random-pixel image, which compresses poorly and
// gives the quality search something to work against.
func noisyJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := imaging.New(width, height, color.NRGBA{A: 0xff})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 0xff,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)))
	return buf.Bytes()
}

func TestCompressRejectsGarbage(t *testing.T) {
	c := NewCompressor()
	_, err := c.Compress([]byte("not an image"), 100*1024)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrImageDecode)
}

func TestCompressProducesDecodableJPEG(t *testing.T) {
	c := NewCompressor()
	out, err := c.Compress(noisyJPEG(t, 400, 300), 50*1024)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestCompressCapsDimensions(t *testing.T) {
	c := NewCompressor()
	c.MaxDimension = 256
	out, err := c.Compress(noisyJPEG(t, 1024, 512), 200*1024)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
}

func TestCompressShrinksOversizedInput(t *testing.T) {
	c := NewCompressor()
	src := noisyJPEG(t, 800, 600)
	target := len(src) / 4
	out, err := c.Compress(src, target)
	require.NoError(t, err)
	assert.Less(t, len(out), len(src))
}

func TestPlaceholderDecodes(t *testing.T) {
	img, err := imaging.Decode(bytes.NewReader(Placeholder()))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}
