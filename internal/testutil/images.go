package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
)

// PNG returns an encoded w x h test image.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// StubUpscaler returns Err when set and the source image unchanged otherwise.
type StubUpscaler struct {
	Err   error
	Calls int
}

func (s *StubUpscaler) Upscale(ctx context.Context, src image.Image) (image.Image, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return src, nil
}
