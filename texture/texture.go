package texture

import (
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/cockroachdb/errors"
)

// Image is tightly packed 8-bit RGBA pixel data, row 0 first
type Image struct {
	Pixels []byte
	Width  int
	Height int
}

// FromImage converts any decoded image to packed RGBA8
func FromImage(img image.Image) (*Image, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Newf("image has zero size %dx%d", bounds.Dx(), bounds.Dy())
	}

	rgba := clone.AsRGBA(img)
	width := rgba.Bounds().Dx()
	height := rgba.Bounds().Dy()

	pixels := rgba.Pix
	if rgba.Stride != width*4 {
		pixels = make([]byte, 0, width*height*4)
		for y := 0; y < height; y++ {
			row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
			pixels = append(pixels, row...)
		}
	}

	return &Image{
		Pixels: pixels,
		Width:  width,
		Height: height,
	}, nil
}

// Load decodes an image file in any format registered with image.Decode
func Load(path string) (*Image, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open texture %s", path)
	}

	decoded, err := FromImage(img)
	if err != nil {
		return nil, errors.Wrapf(err, "texture %s", path)
	}

	return decoded, nil
}
