// Package imagingtest builds encoded images and data URIs for tests.
package imagingtest

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

// Solid returns a w×h RGBA image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// Encode encodes img in the given subtype.
func Encode(t testing.TB, subtype string, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	var err error
	switch subtype {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	default:
		t.Fatalf("imagingtest: unknown subtype %q", subtype)
	}
	if err != nil {
		t.Fatalf("imagingtest: encode %s: %v", subtype, err)
	}
	return buf.Bytes()
}

// DataURI wraps raw bytes as data:image/<subtype>;base64,<content>.
func DataURI(subtype string, raw []byte) string {
	return "data:image/" + subtype + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// RedPNG returns the data URI of a w×h opaque red PNG.
func RedPNG(t testing.TB, w, h int) string {
	t.Helper()
	return DataURI("png", Encode(t, "png", Solid(w, h, color.RGBA{R: 255, A: 255})))
}
