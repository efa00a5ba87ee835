package upscale

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	return img
}

func TestNewResampler(t *testing.T) {
	tests := []struct {
		name    string
		factor  int
		kernel  string
		wantErr error
	}{
		{name: "default kernel", factor: 4},
		{name: "bilinear", factor: 2, kernel: "bilinear"},
		{name: "case insensitive", factor: 2, kernel: "Nearest"},
		{name: "unknown kernel", factor: 2, kernel: "lanczos9", wantErr: ErrUnknownKernel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResampler(tt.factor, tt.kernel, 0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.factor, r.Factor)
		})
	}

	_, err := NewResampler(0, "", 0)
	assert.Error(t, err)
}

func TestResampler_Upscale(t *testing.T) {
	r, err := NewResampler(4, "", 0)
	require.NoError(t, err)

	out, err := r.Upscale(context.Background(), testImage(5, 3))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 12), out.Bounds())
}

func TestResampler_NearestKeepsCorners(t *testing.T) {
	r, err := NewResampler(2, "nearest", 0)
	require.NoError(t, err)

	src := testImage(2, 2)
	out, err := r.Upscale(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, src.At(0, 0), out.At(0, 0))
	assert.Equal(t, src.At(1, 1), out.At(3, 3))
}

func TestResampler_PixelLimit(t *testing.T) {
	r, err := NewResampler(4, "", 100)
	require.NoError(t, err)

	_, err = r.Upscale(context.Background(), testImage(10, 10))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestResampler_CancelledContext(t *testing.T) {
	r, _ := NewResampler(2, "", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Upscale(ctx, testImage(2, 2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpscaleFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "source.jpg")

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(4, 4), nil))
	require.NoError(t, os.WriteFile(input, buf.Bytes(), 0644))

	r, _ := NewResampler(3, "bilinear", 0)
	output := filepath.Join(dir, "nested", "output.png")
	require.NoError(t, UpscaleFile(context.Background(), r, input, output))

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 12), img.Bounds())
}

func TestUpscaleFile_Errors(t *testing.T) {
	dir := t.TempDir()
	r, _ := NewResampler(2, "", 0)

	err := UpscaleFile(context.Background(), r, filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png"))
	assert.Error(t, err)

	notImage := filepath.Join(dir, "text.png")
	require.NoError(t, os.WriteFile(notImage, []byte("not an image"), 0644))
	err = UpscaleFile(context.Background(), r, notImage, filepath.Join(dir, "out.png"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	_, statErr := os.Stat(filepath.Join(dir, "out.png"))
	assert.True(t, os.IsNotExist(statErr))
}
