package api

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/image-upscaler/backend/internal/client"
	"github.com/image-upscaler/backend/internal/jobs"
	"github.com/image-upscaler/backend/internal/storage"
	"github.com/image-upscaler/backend/internal/testutil"
	"github.com/image-upscaler/backend/internal/upscale"
	"github.com/image-upscaler/backend/internal/widget"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, bodyLimit string) *httptest.Server {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	resampler, err := upscale.NewResampler(2, "", 0)
	require.NoError(t, err)

	e := echo.New()
	SetupMiddleware(e, discardLogger(), MiddlewareConfig{BodyLimit: bodyLimit, RequestLogging: true})
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Log:               discardLogger(),
		Store:             store,
		Jobs:              jobs.NewManager(discardLogger(), 2, nil),
		Upscaler:          resampler,
		AllowedExtensions: defaultExts,
		Version:           "test",
	}))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes_Health(t *testing.T) {
	srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_WidgetRoundTrip(t *testing.T) {
	srv := newTestServer(t, "1M")

	w := widget.New(client.New(srv.URL))
	require.NoError(t, w.SelectFile(&widget.SelectedFile{
		Name:     "cat.png",
		Size:     2048,
		MIMEType: "image/png",
		Data:     testutil.PNG(4, 4),
	}))
	assert.Equal(t, "2.0 KB", w.View().FileSize)

	require.NoError(t, w.Process(context.Background()))

	v := w.View()
	assert.Equal(t, widget.StatusSuccess, v.Status.Kind)
	assert.True(t, v.ResultVisible)
	assert.True(t, v.TriggerEnabled)

	art, ok := w.Download()
	require.True(t, ok)
	assert.Equal(t, "upscaled_cat.png", art.Name)
	img, err := png.Decode(bytes.NewReader(art.Data))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestRoutes_WidgetServerRejection(t *testing.T) {
	srv := newTestServer(t, "1M")

	w := widget.New(client.New(srv.URL))
	// The browser believes this is an image, the server does not accept the extension.
	require.NoError(t, w.SelectFile(&widget.SelectedFile{Name: "scan.tiff", Size: 4, MIMEType: "image/tiff", Data: []byte("tiff")}))

	assert.Error(t, w.Process(context.Background()))

	v := w.View()
	assert.Equal(t, widget.Status{Kind: widget.StatusError, Message: "Unsupported file type"}, v.Status)
	assert.Equal(t, "scan.tiff", v.FileName)
	assert.True(t, v.TriggerEnabled)
}

func TestRoutes_BodyLimit(t *testing.T) {
	srv := newTestServer(t, "1K")

	w := widget.New(client.New(srv.URL))
	require.NoError(t, w.SelectFile(&widget.SelectedFile{Name: "big.png", Size: 4096, MIMEType: "image/png", Data: make([]byte, 4096)}))

	assert.Error(t, w.Process(context.Background()))
	assert.Equal(t, widget.StatusError, w.Status().Kind)
	assert.Equal(t, "Request Entity Too Large", w.Status().Message)
}
