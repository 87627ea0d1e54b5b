// Package imaging validates base64 data-URI image payloads and decodes them
// into in-memory images with a known channel depth.
package imaging

import "errors"

// Domain errors for payload validation and decoding. All of them are caller faults.
var (
	ErrInvalidInput     = errors.New("invalid image data")
	ErrUnsupportedMedia = errors.New("unsupported image type")
	ErrDecode           = errors.New("corrupt image data")
)
