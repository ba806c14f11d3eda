package inference

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// ErrInvalidImage marks uploads that cannot be decoded into a color image.
var ErrInvalidImage = errors.New("invalid image")

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// pixels resizes img to a size x size square, scales each channel into
// [0, 1], and lays the values out NHWC with a leading batch dimension of one.
func pixels(img image.Image, size int) [][][][]float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	rows := make([][][]float32, size)
	for y := 0; y < size; y++ {
		row := make([][]float32, size)
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			row[x] = []float32{
				float32(r) / 0xffff,
				float32(g) / 0xffff,
				float32(b) / 0xffff,
			}
		}
		rows[y] = row
	}

	return [][][][]float32{rows}
}
