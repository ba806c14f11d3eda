package inference

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"reflect"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 7) % 256),
				G: uint8((y * 13) % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func uniformImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPixelsNormalizesDimensions(t *testing.T) {
	const size = 224

	dims := []struct {
		w, h int
	}{
		{10, 10},
		{640, 480},
		{3, 7},
		{224, 224},
		{1000, 50},
	}

	for _, d := range dims {
		batch := pixels(testImage(d.w, d.h), size)

		if len(batch) != 1 {
			t.Fatalf("%dx%d: expected batch dimension 1, got %d", d.w, d.h, len(batch))
		}
		if len(batch[0]) != size {
			t.Fatalf("%dx%d: expected %d rows, got %d", d.w, d.h, size, len(batch[0]))
		}
		for _, row := range batch[0] {
			if len(row) != size {
				t.Fatalf("%dx%d: expected %d columns, got %d", d.w, d.h, size, len(row))
			}
			for _, px := range row {
				if len(px) != 3 {
					t.Fatalf("%dx%d: expected 3 channels, got %d", d.w, d.h, len(px))
				}
			}
		}
	}
}

func TestPixelsValuesInUnitInterval(t *testing.T) {
	batch := pixels(testImage(300, 200), 64)

	for _, row := range batch[0] {
		for _, px := range row {
			for _, v := range px {
				if v < 0 || v > 1 {
					t.Fatalf("channel value %f out of [0, 1]", v)
				}
			}
		}
	}
}

func TestPixelsScalesExtremes(t *testing.T) {
	white := pixels(uniformImage(32, 32, color.RGBA{255, 255, 255, 255}), 16)
	for _, row := range white[0] {
		for _, px := range row {
			for _, v := range px {
				if v != 1.0 {
					t.Fatalf("white pixel scaled to %f, want 1.0", v)
				}
			}
		}
	}

	black := pixels(uniformImage(32, 32, color.RGBA{0, 0, 0, 255}), 16)
	for _, row := range black[0] {
		for _, px := range row {
			for _, v := range px {
				if v != 0.0 {
					t.Fatalf("black pixel scaled to %f, want 0.0", v)
				}
			}
		}
	}
}

func TestPixelsDeterministic(t *testing.T) {
	img := testImage(123, 77)

	first := pixels(img, 32)
	second := pixels(img, 32)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated preprocessing of the same image produced different tensors")
	}
}

func TestDecodeImageAcceptsCommonFormats(t *testing.T) {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, testImage(20, 30)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	if _, err := decodeImage(pngBuf.Bytes()); err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, testImage(20, 30), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	if _, err := decodeImage(jpegBuf.Bytes()); err != nil {
		t.Fatalf("failed to decode jpeg: %v", err)
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	inputs := [][]byte{
		[]byte("definitely not an image"),
		nil,
		{0x89, 0x50},
	}

	for _, input := range inputs {
		_, err := decodeImage(input)
		if err == nil {
			t.Fatalf("expected decode error for %q", input)
		}
		if !errors.Is(err, ErrInvalidImage) {
			t.Fatalf("expected ErrInvalidImage, got %v", err)
		}
	}
}

func TestDecodeImageRejectsTruncatedFile(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(50, 50)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	_, err := decodeImage(buf.Bytes()[:16])
	if err == nil {
		t.Fatal("expected decode error for truncated file")
	}
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}
