package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/image-upscaler/backend/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catFile() widget.SelectedFile {
	return widget.SelectedFile{Name: "cat.png", Size: 4, MIMEType: "image/png", Data: []byte("meow")}
}

func TestClient_Process_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/process", r.URL.Path)

		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, "meow", string(data))

		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("upscaled"))
	}))
	defer srv.Close()

	res, err := New(srv.URL+"/").Process(context.Background(), catFile())
	require.NoError(t, err)
	assert.Equal(t, []byte("upscaled"), res.Data)
	assert.Equal(t, "image/png", res.ContentType)
}

func TestClient_Process_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "json error field", status: 500, body: `{"error":"model unavailable"}`, wantMessage: "model unavailable"},
		{name: "unsupported type", status: 415, body: `{"error":"Unsupported file type","code":"UNSUPPORTED_MEDIA_TYPE"}`, wantMessage: "Unsupported file type"},
		{name: "missing field", status: 500, body: `{"detail":"nope"}`, wantMessage: widget.MessageFailed},
		{name: "non-string field", status: 500, body: `{"error":{"nested":true}}`, wantMessage: widget.MessageFailed},
		{name: "not json", status: 502, body: `<html>Bad Gateway</html>`, wantMessage: widget.MessageFailed},
		{name: "empty body", status: 404, body: ``, wantMessage: widget.MessageFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL).Process(context.Background(), catFile())
			var perr *widget.ProcessingError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.wantMessage, perr.Error())
		})
	}
}

func TestClient_Process_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Process(context.Background(), catFile())
	var perr *widget.ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, widget.MessageFailed, perr.Error())
	assert.Zero(t, perr.StatusCode)
}

func TestClient_Process_SniffsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	}))
	defer srv.Close()

	res, err := New(srv.URL).Process(context.Background(), catFile())
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.ContentType)
}

func TestClient_DrivesWidget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("result"))
	}))
	defer srv.Close()

	w := widget.New(New(srv.URL))
	f := catFile()
	require.NoError(t, w.SelectFile(&f))
	require.NoError(t, w.Process(context.Background()))

	art, ok := w.Download()
	require.True(t, ok)
	assert.Equal(t, "upscaled_cat.png", art.Name)
	assert.Equal(t, widget.StatusSuccess, w.Status().Kind)
}
