package tiled

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Image is a decoded tileset image. Its pixels can be released with Free
// while the size stays available.
type Image struct {
	Source string
	width  int
	height int
	pix    *image.NRGBA
}

// LoadImage decodes a PNG, JPEG, GIF, BMP or TIFF file into 8-bit RGBA.
func LoadImage(path string) (*Image, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "tiled: failed to load image %q", path)
	}
	return NewImage(path, src), nil
}

// NewImage copies src into a tightly packed NRGBA buffer.
func NewImage(source string, src image.Image) *Image {
	pix := imaging.Clone(src)
	b := pix.Bounds()
	return &Image{
		Source: source,
		width:  b.Dx(),
		height: b.Dy(),
		pix:    pix,
	}
}

func (img *Image) Width() int  { return img.width }
func (img *Image) Height() int { return img.height }

func (img *Image) Size() image.Point {
	return image.Pt(img.width, img.height)
}

func (img *Image) Loaded() bool { return img.pix != nil }

// Pix returns width*height*4 bytes in R, G, B, A order, or nil once freed.
func (img *Image) Pix() []byte {
	if img.pix == nil {
		return nil
	}
	return img.pix.Pix
}

// NRGBA returns the pixel buffer as an image, or nil once freed.
func (img *Image) NRGBA() *image.NRGBA {
	return img.pix
}

func (img *Image) Pixel(x, y int) (color.NRGBA, bool) {
	if img.pix == nil || x < 0 || y < 0 || x >= img.width || y >= img.height {
		return color.NRGBA{}, false
	}
	return img.pix.NRGBAAt(x, y), true
}

// Free drops the pixel buffer.
func (img *Image) Free() {
	img.pix = nil
}
