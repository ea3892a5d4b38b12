// Package imaging converts recipe photos into the stored JPEG renditions.
package imaging

import (
	"bytes"

	imgproc "github.com/disintegration/imaging"

	"github.com/tphakala/lcbimport/internal/errors"
)

// ContentType of every converted image.
const ContentType = "image/jpeg"

// Profile is a target rendition. Images are cover-resized to exactly
// Width x Height, cropping around the center.
type Profile struct {
	Name    string
	Width   int
	Height  int
	Quality int
}

var (
	// HighRes is used for imported recipe images.
	HighRes = Profile{Name: "high", Width: 1024, Height: 1024, Quality: 85}
	// LowRes is the thumbnail rendition.
	LowRes = Profile{Name: "low", Width: 200, Height: 200, Quality: 55}
)

// Converter turns encoded image bytes into a JPEG rendition.
type Converter interface {
	Convert(data []byte, p Profile) ([]byte, error)
}

// JPEGConverter is the default Converter. It honours the EXIF orientation tag.
type JPEGConverter struct{}

// NewJPEGConverter returns the default converter.
func NewJPEGConverter() *JPEGConverter {
	return &JPEGConverter{}
}

// Convert implements Converter.
func (c *JPEGConverter) Convert(data []byte, p Profile) ([]byte, error) {
	img, err := imgproc.Decode(bytes.NewReader(data), imgproc.AutoOrientation(true))
	if err != nil {
		return nil, conversionError(err, p, "decode")
	}

	resized := imgproc.Fill(img, p.Width, p.Height, imgproc.Center, imgproc.Lanczos)

	var buf bytes.Buffer
	if err := imgproc.Encode(&buf, resized, imgproc.JPEG, imgproc.JPEGQuality(p.Quality)); err != nil {
		return nil, conversionError(err, p, "encode")
	}
	return buf.Bytes(), nil
}

func conversionError(err error, p Profile, op string) error {
	return errors.New(err).
		Component("imaging").
		Category(errors.CategoryImageConversion).
		Context("profile", p.Name).
		Context("operation", op).
		Build()
}
