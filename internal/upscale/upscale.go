// Package upscale enlarges raster images by an integer factor.
package upscale

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrTooLarge is returned when the upscaled image would exceed the pixel budget.
var ErrTooLarge = errors.New("upscaled image exceeds pixel limit")

// ErrUnsupportedImage is returned when the input cannot be decoded.
var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// ErrUnknownKernel is returned for an unsupported interpolation kernel name.
var ErrUnknownKernel = errors.New("unknown interpolation kernel")

// Upscaler produces an enlarged copy of an image.
type Upscaler interface {
	Upscale(ctx context.Context, src image.Image) (image.Image, error)
}

// DefaultKernel is used when no kernel is named.
const DefaultKernel = "catmull-rom"

var kernels = map[string]draw.Interpolator{
	"nearest":         draw.NearestNeighbor,
	"approx-bilinear": draw.ApproxBiLinear,
	"bilinear":        draw.BiLinear,
	DefaultKernel:     draw.CatmullRom,
}

// Resampler scales images by Factor using a convolution kernel.
type Resampler struct {
	Factor    int
	MaxPixels int64
	kernel    draw.Interpolator
}

// NewResampler returns a Resampler for the named kernel. An empty name selects catmull-rom.
// maxPixels <= 0 disables the output size check.
func NewResampler(factor int, kernel string, maxPixels int64) (*Resampler, error) {
	if factor < 1 {
		return nil, fmt.Errorf("scale factor must be at least 1, got %d", factor)
	}
	if kernel == "" {
		kernel = DefaultKernel
	}
	k, ok := kernels[strings.ToLower(kernel)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKernel, kernel)
	}
	return &Resampler{Factor: factor, MaxPixels: maxPixels, kernel: k}, nil
}

// Upscale returns an RGBA image Factor times the size of src.
func (r *Resampler) Upscale(ctx context.Context, src image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx()*r.Factor, b.Dy()*r.Factor
	if w == 0 || h == 0 {
		return nil, errors.New("source image is empty")
	}
	if r.MaxPixels > 0 && int64(w)*int64(h) > r.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	r.kernel.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, nil
}

// Decode reads an image in any registered format (png, jpeg, gif, bmp, webp)
// and returns it together with the format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// UpscaleFile reads inputPath, upscales it and writes a PNG to outputPath,
// creating the parent directory when needed.
func UpscaleFile(ctx context.Context, u Upscaler, inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	src, _, err := Decode(in)
	if err != nil {
		return err
	}

	dst, err := u.Upscale(ctx, src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}

	if err := Encode(out, dst); err != nil {
		out.Close()
		os.Remove(outputPath)
		return err
	}

	return out.Close()
}
