package model

import (
	"fmt"
	"image/color"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/predict-api/internal/imaging"
)

// Normalize resizes img to opts.ImageSize square with bilinear interpolation
// and packs it into a batch-of-one tensor in opts.Layout. The channel count
// is taken from img unchanged.
func Normalize(img *imaging.Image, opts Options) (*Tensor, error) {
	if img.Empty() {
		return nil, fmt.Errorf("%w: degenerate image dimensions", imaging.ErrInvalidInput)
	}
	if opts.ImageSize <= 0 {
		return nil, fmt.Errorf("%w: image size %d", ErrInternal, opts.ImageSize)
	}

	size := opts.ImageSize
	channels := img.Channels
	resized := resize.Resize(uint(size), uint(size), img.Image, resize.Bilinear)
	bounds := resized.Bounds()

	div := float32(257)
	if opts.Scale == ScaleUnit {
		div = 65535
	}

	data := make([]float32, size*size*channels)
	plane := size * size

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px := pixel(resized.At(bounds.Min.X+x, bounds.Min.Y+y), channels)
			for c := 0; c < channels; c++ {
				var idx int
				if opts.Layout == LayoutNCHW {
					idx = c*plane + y*size + x
				} else {
					idx = (y*size+x)*channels + c
				}
				data[idx] = float32(px[c]) / div
			}
		}
	}

	n, s, ch := int64(1), int64(size), int64(channels)
	shape := []int64{n, s, s, ch}
	if opts.Layout == LayoutNCHW {
		shape = []int64{n, ch, s, s}
	}

	return &Tensor{Shape: shape, Data: data}, nil
}

// pixel returns up to four straight (non-premultiplied) 16-bit channel values.
func pixel(c color.Color, channels int) [4]uint16 {
	if channels == 1 {
		g := color.Gray16Model.Convert(c).(color.Gray16)
		return [4]uint16{g.Y}
	}
	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return [4]uint16{n.R, n.G, n.B, n.A}
}
