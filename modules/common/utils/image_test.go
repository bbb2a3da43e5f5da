package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResizeImageExactDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	dst := ResizeImage(src, 40, 20)

	assert.Equal(t, 40, dst.Bounds().Dx())
	assert.Equal(t, 20, dst.Bounds().Dy())
}

func TestResizeImagePreservesSolidColor(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	red := color.RGBA{R: 255, A: 255}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			src.Set(x, y, red)
		}
	}

	dst := ResizeImage(src, 4, 4)
	r, _, _, a := dst.At(2, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)
}

func TestDataURLRoundTrip(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0xff}
	url := DataURL("image/png", ToBase64(raw))

	mime, data, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, data)
}

func TestParseDataURLPlainBase64AssumesPNG(t *testing.T) {
	raw := []byte("payload")
	mime, data, err := ParseDataURL(ToBase64(raw))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, data)
}

func TestParseDataURLMalformed(t *testing.T) {
	_, _, err := ParseDataURL("data:image/png;base64")
	assert.Error(t, err)

	_, _, err = ParseDataURL("not/base64??!")
	assert.Error(t, err)
}

func TestConvertToWebPShrinksOversizedImages(t *testing.T) {
	src := solidPNG(t, MaxStorageDimension+512, 256, color.RGBA{G: 200, A: 255})

	out, err := ConvertToWebP(src, 80)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// RIFF....WEBP container header
	require.Greater(t, len(out), 12)
	assert.Equal(t, "RIFF", string(out[:4]))
	assert.Equal(t, "WEBP", string(out[8:12]))
}

func TestConvertToWebPRejectsGarbage(t *testing.T) {
	_, err := ConvertToWebP([]byte("definitely not an image"), 80)
	assert.Error(t, err)
}
