package recognize

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg"

	"golang.org/x/image/draw"

	"github.com/wildanal2/ocr-ecosteps/internal/common"
)

const upscaleFactor = 2

// Preprocess decodes an image, converts it to grayscale, and upscales it
// 2x with Catmull-Rom interpolation. Screenshots arrive at phone display
// resolution; the upscale measurably improves recognition of small UI text.
func Preprocess(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", common.ErrAcquisition, err)
	}

	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)

	scaled := image.NewGray(image.Rect(0, 0, b.Dx()*upscaleFactor, b.Dy()*upscaleFactor))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), gray, gray.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, scaled); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", common.ErrAcquisition, err)
	}
	return out.Bytes(), nil
}
