// handlers_process.go - Image upscale handler
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/image-upscaler/backend/internal/storage"
	"github.com/image-upscaler/backend/internal/upscale"
	"github.com/labstack/echo/v4"
)

// ImageField is the multipart field carrying the uploaded image.
const ImageField = "image"

// ProcessHandlerImpl implements the ProcessHandler interface
type ProcessHandlerImpl struct {
	store    storage.Store
	jobs     JobRunner
	upscaler upscale.Upscaler
	allowed  map[string]bool
	log      *slog.Logger
}

// NewProcessHandler creates a new process handler. allowedExts are lower-case
// extensions without the dot.
func NewProcessHandler(log *slog.Logger, store storage.Store, jobs JobRunner, upscaler upscale.Upscaler, allowedExts []string) ProcessHandler {
	allowed := make(map[string]bool, len(allowedExts))
	for _, ext := range allowedExts {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &ProcessHandlerImpl{
		store:    store,
		jobs:     jobs,
		upscaler: upscaler,
		allowed:  allowed,
		log:      log,
	}
}

// HandleProcess accepts a multipart image upload, upscales it and streams back a PNG.
// The workspace holding input and output is removed once the response is written.
func (h *ProcessHandlerImpl) HandleProcess(c echo.Context) error {
	ctx := c.Request().Context()
	h.log.InfoContext(ctx, "image processing request received")

	file, err := c.FormFile(ImageField)
	if err != nil {
		return h.formFileError(c, err)
	}

	if file.Filename == "" {
		return NewBadRequestError("Empty filename", nil)
	}

	if !allowedFile(file.Filename, h.allowed) {
		h.log.InfoContext(ctx, "unsupported file type", slog.String("file", file.Filename))
		return NewUnsupportedMediaTypeError("Unsupported file type")
	}

	name := secureFilename(file.Filename)
	if name == "" || !strings.Contains(name, ".") {
		name = "image" + filepath.Ext(file.Filename)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(name, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}
	defer func() {
		if err := h.store.Delete(info.ID); err != nil {
			h.log.WarnContext(ctx, "failed to clean up workspace", slog.String("id", info.ID), slog.String("error", err.Error()))
		} else {
			h.log.DebugContext(ctx, "cleaned up workspace", slog.String("id", info.ID))
		}
	}()

	inputPath, err := h.store.GetFilePath(info.ID)
	if err != nil {
		return NewInternalError("failed to resolve input path", err)
	}
	outputPath, err := h.store.OutputPath(info.ID)
	if err != nil {
		return NewInternalError("failed to resolve output path", err)
	}

	h.log.InfoContext(ctx, "processing file", slog.String("file", name), slog.Int64("size", info.Size))

	_, err = h.jobs.Run(ctx, name, info.Size, func(ctx context.Context) (int64, error) {
		if err := upscale.UpscaleFile(ctx, h.upscaler, inputPath, outputPath); err != nil {
			return 0, err
		}
		st, err := os.Stat(outputPath)
		if err != nil {
			return 0, fmt.Errorf("stat output: %w", err)
		}
		return st.Size(), nil
	})
	if err != nil {
		return upscaleError(err)
	}

	h.log.InfoContext(ctx, "sending processed image back to client", slog.String("file", filepath.Base(outputPath)))
	return c.Inline(outputPath, filepath.Base(outputPath))
}

// formFileError maps a failed form lookup to the right client error.
func (h *ProcessHandlerImpl) formFileError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge {
		return NewPayloadTooLargeError("File too large")
	}

	// A part named "image" without a filename is parsed as a plain form value.
	if form := c.Request().MultipartForm; form != nil && len(form.Value[ImageField]) > 0 {
		return NewBadRequestError("Empty filename", nil)
	}

	h.log.InfoContext(c.Request().Context(), "no file uploaded", slog.String("error", err.Error()))
	return NewBadRequestError("No file uploaded", nil)
}

// upscaleError maps upscale failures to API errors.
func upscaleError(err error) error {
	switch {
	case errors.Is(err, upscale.ErrUnsupportedImage):
		return NewBadRequestError("Invalid image file", err)
	case errors.Is(err, upscale.ErrTooLarge):
		return NewPayloadTooLargeError("Image too large to upscale")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewServiceUnavailableError("Server busy, try again later")
	default:
		return err
	}
}
