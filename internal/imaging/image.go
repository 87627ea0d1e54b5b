package imaging

import (
	"image"
	"image/color"
)

// Image is a decoded request image. It is owned by a single request.
type Image struct {
	image.Image

	// Format is the declared MIME subtype ("png", "jpeg", ...).
	Format   string
	Width    int
	Height   int
	Channels int
}

// Empty reports whether the image has zero area.
func (i *Image) Empty() bool {
	return i == nil || i.Image == nil || i.Width <= 0 || i.Height <= 0
}

// channelDepth derives the number of channels a decoder produced from its
// color model: 1 for gray, 3 for color without alpha and 4 with alpha.
// GIF frames are always reported as RGB.
func channelDepth(format string, img image.Image) int {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr, *image.CMYK:
		return 3
	case *image.NRGBA, *image.NRGBA64:
		return 4
	case *image.Paletted:
		if format == "gif" {
			return 3
		}
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return 4
			}
		}
		return 3
	}

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return 4
	default:
		return 3
	}
}
