package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lcbimport/internal/errors"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestConvertProfiles(t *testing.T) {
	t.Parallel()

	src := encodePNG(t, 300, 120)
	conv := NewJPEGConverter()

	for _, p := range []Profile{LowRes, HighRes} {
		t.Run(p.Name, func(t *testing.T) {
			t.Parallel()

			out, err := conv.Convert(src, p)
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, p.Width, cfg.Width)
			assert.Equal(t, p.Height, cfg.Height)
		})
	}
}

func TestConvertJPEGInput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 64, 64)), nil))

	out, err := NewJPEGConverter().Convert(buf.Bytes(), LowRes)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestConvertRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewJPEGConverter().Convert([]byte("definitely not an image"), HighRes)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageConversion))
}

func TestProfiles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Profile{Name: "high", Width: 1024, Height: 1024, Quality: 85}, HighRes)
	assert.Equal(t, Profile{Name: "low", Width: 200, Height: 200, Quality: 55}, LowRes)
}
