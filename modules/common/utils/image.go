package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"log"
	"math"
	"strings"

	_ "github.com/kolesa-team/go-webp/decoder" // register WebP decoder
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// MaxStorageDimension - generated images are downscaled to fit this before
// being persisted
const MaxStorageDimension = 1536

// ConvertToWebP - re-encode any decodable image (PNG/JPEG/WebP) as lossy WebP,
// downscaling so neither dimension exceeds MaxStorageDimension
func ConvertToWebP(imageData []byte, quality float32) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxStorageDimension || bounds.Dy() > MaxStorageDimension {
		scale := math.Min(
			float64(MaxStorageDimension)/float64(bounds.Dx()),
			float64(MaxStorageDimension)/float64(bounds.Dy()),
		)
		img = ResizeImage(img, int(float64(bounds.Dx())*scale), int(float64(bounds.Dy())*scale))
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var webpBuffer bytes.Buffer
	if err := webp.Encode(&webpBuffer, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}

	webpData := webpBuffer.Bytes()
	log.Printf("✅ %s converted to WebP: %d bytes → %d bytes (%.1f%% reduction)",
		strings.ToUpper(format), len(imageData), len(webpData),
		float64(len(imageData)-len(webpData))/float64(len(imageData))*100)

	return webpData, nil
}

// EncodePNG - encode a decoded image back to PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ResizeImage - nearest-neighbor resize to exactly targetWidth x targetHeight
func ResizeImage(src image.Image, targetWidth, targetHeight int) image.Image {
	srcBounds := src.Bounds()
	srcWidth := srcBounds.Dx()
	srcHeight := srcBounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	for y := 0; y < targetHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			srcX := srcBounds.Min.X + x*srcWidth/targetWidth
			srcY := srcBounds.Min.Y + y*srcHeight/targetHeight
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}

// DataURL - base64 payload + mime type into a browser-ready data URL
func DataURL(mimeType, base64Data string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}

// ParseDataURL splits a data URL into mime type and raw bytes. Plain base64
// without a data: prefix is accepted and assumed PNG.
func ParseDataURL(dataURL string) (mimeType string, data []byte, err error) {
	payload := dataURL
	mimeType = "image/png"

	if strings.HasPrefix(dataURL, "data:") {
		head, rest, found := strings.Cut(dataURL[len("data:"):], ",")
		if !found {
			return "", nil, fmt.Errorf("malformed data URL")
		}
		mimeType = strings.TrimSuffix(head, ";base64")
		payload = rest
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64 image data: %w", err)
	}
	return mimeType, data, nil
}

// ToBase64 - raw bytes to standard base64
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
