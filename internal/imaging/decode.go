package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/image/bmp"
)

const (
	dataImageMarker = "data:image"
	base64Framing   = ";base64,"
)

// DefaultMaxPixels caps width×height when no limit is configured.
const DefaultMaxPixels = 50_000_000

// SupportedSubtypes lists the accepted image MIME subtypes.
var SupportedSubtypes = []string{"jpeg", "png", "gif", "bmp"}

type decodeFunc func(io.Reader) (image.Image, error)

type configFunc func(io.Reader) (image.Config, error)

type codec struct {
	decode decodeFunc
	config configFunc
}

// Decoder turns data-URI payloads into images. Decoding is selected by the
// declared MIME subtype, not by sniffing the bytes.
type Decoder struct {
	logger       *slog.Logger
	maxPixels    int64
	decodeBase64 func(string) ([]byte, error)
	codecs       map[string]codec
}

// NewDecoder returns a Decoder for the supported subtypes. Images whose
// header declares more than maxPixels pixels are rejected before their
// pixel buffer is allocated. A non-positive maxPixels means DefaultMaxPixels.
func NewDecoder(logger *slog.Logger, maxPixels int) *Decoder {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Decoder{
		logger:       logger,
		maxPixels:    int64(maxPixels),
		decodeBase64: decodeBase64,
		codecs: map[string]codec{
			"jpeg": {jpeg.Decode, jpeg.DecodeConfig},
			"png":  {png.Decode, png.DecodeConfig},
			"gif":  {gif.Decode, gif.DecodeConfig},
			"bmp":  {bmp.Decode, bmp.DecodeConfig},
		},
	}
}

// Decode validates payload and decodes the image it carries.
//
// Checks run cheapest first: marker, then MIME subtype, then base64, then
// the image header, then the full codec. A failure at one stage means later
// stages never run.
func (d *Decoder) Decode(payload string) (*Image, error) {
	if !strings.HasPrefix(payload, dataImageMarker) {
		return nil, fmt.Errorf("%w: expected base64-encoded image: missing or malformed image marker", ErrInvalidInput)
	}

	header, content, framed := strings.Cut(payload, base64Framing)
	mimeType := strings.TrimPrefix(header, "data:")
	if i := strings.IndexAny(mimeType, ";,"); i >= 0 {
		mimeType = mimeType[:i]
	}

	subtype, ok := strings.CutPrefix(strings.ToLower(mimeType), "image/")
	if !ok || !lo.Contains(SupportedSubtypes, subtype) {
		return nil, fmt.Errorf("%w %q: expected %s", ErrUnsupportedMedia, mimeType, supportedList())
	}

	if !framed || strings.Contains(header, ",") {
		return nil, fmt.Errorf("%w: malformed base64 payload", ErrInvalidInput)
	}

	raw, err := d.decodeBase64(content)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed base64 payload: %v", ErrInvalidInput, err)
	}

	c := d.codecs[subtype]
	hdr, err := c.config(bytes.NewReader(raw))
	if err != nil {
		d.logger.Debug("image header unreadable", "format", subtype, "bytes", len(raw), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return nil, fmt.Errorf("%w: degenerate image dimensions", ErrInvalidInput)
	}
	if pixels := int64(hdr.Width) * int64(hdr.Height); pixels > d.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d image exceeds the %d pixel limit",
			ErrInvalidInput, hdr.Width, hdr.Height, d.maxPixels)
	}

	src, err := c.decode(bytes.NewReader(raw))
	if err != nil {
		d.logger.Debug("image decode failed", "format", subtype, "bytes", len(raw), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	bounds := src.Bounds()
	img := &Image{
		Image:    src,
		Format:   subtype,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: channelDepth(subtype, src),
	}
	if img.Empty() {
		return nil, fmt.Errorf("%w: degenerate image dimensions", ErrInvalidInput)
	}

	d.logger.Debug("image decoded",
		"format", img.Format,
		"width", img.Width,
		"height", img.Height,
		"channels", img.Channels,
	)

	return img, nil
}

// decodeBase64 accepts padded and unpadded standard base64.
func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty content")
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	if !strings.HasSuffix(s, "=") {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(s); rawErr == nil {
			return raw, nil
		}
	}
	return nil, err
}

func supportedList() string {
	names := lo.Map(SupportedSubtypes, func(s string, _ int) string {
		return strings.ToUpper(s)
	})
	return strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
}
