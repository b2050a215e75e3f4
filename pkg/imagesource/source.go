// Package imagesource resolves the origins an image can be supplied from into a decoded image.
package imagesource

import (
	"bytes"
	"image"
	"os"
	"time"

	// Decoders registered with the image package.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/api"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/metric"
)

// Source yields a decoded image. Image may be called more than once; file backed sources read the
// file again on each call.
type Source interface {
	Image() (image.Image, error)
	// Origin names where the image comes from, for logs and errors.
	Origin() string
}

type pathSource string

// Path returns a Source that opens and decodes the file at p.
func Path(p string) Source { return pathSource(p) }

// String returns a Source interpreting s as a file path.
func String(s string) Source { return pathSource(s) }

func (p pathSource) Origin() string { return "path" }

func (p pathSource) Image() (image.Image, error) {
	start := time.Now()
	f, err := os.Open(string(p))
	if err != nil {
		return nil, api.NewDecodeError("failed to open image "+string(p), err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, api.NewDecodeError("failed to decode image "+string(p), err)
	}
	recordDecode(p.Origin(), format, start)
	return img, nil
}

type decodedSource struct {
	img image.Image
}

// Decoded returns a Source for an already decoded image.
func Decoded(img image.Image) Source { return decodedSource{img: img} }

func (d decodedSource) Origin() string { return "decoded" }

func (d decodedSource) Image() (image.Image, error) {
	if d.img == nil {
		return nil, api.NewDecodeError("decoded image is nil", nil)
	}
	return d.img, nil
}

type encodedSource []byte

// Encoded returns a Source decoding an in-memory encoded image (PNG, JPEG, GIF, BMP, TIFF or WebP).
func Encoded(b []byte) Source { return encodedSource(b) }

func (e encodedSource) Origin() string { return "encoded" }

func (e encodedSource) Image() (image.Image, error) {
	start := time.Now()
	img, format, err := image.Decode(bytes.NewReader(e))
	if err != nil {
		return nil, api.NewDecodeError("failed to decode in-memory image", err)
	}
	recordDecode(e.Origin(), format, start)
	return img, nil
}

func recordDecode(origin, format string, start time.Time) {
	metric.TimingWithStart(metric.ImageDecodeLatency, start, metric.BuildTag(
		metric.NewTag(metric.TagImageOrigin, origin),
		metric.NewTag(metric.TagImageFormat, format),
	))
}
