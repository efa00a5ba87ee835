// Package client talks to the upscaler's /process endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/image-upscaler/backend/internal/widget"
)

// FieldName is the multipart field carrying the image.
const FieldName = "image"

// ProcessPath is the endpoint path relative to the base URL.
const ProcessPath = "/process"

// Client implements widget.Processor over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

// New creates a client for the server at baseURL (e.g. "http://localhost:5000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ widget.Processor = (*Client)(nil)

// Process uploads file and returns the upscaled image. Every failure is a
// *widget.ProcessingError; its Message is the server's "error" field when present.
func (c *Client) Process(ctx context.Context, file widget.SelectedFile) (widget.Result, error) {
	body, contentType, err := encodeForm(file)
	if err != nil {
		return widget.Result{}, &widget.ProcessingError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ProcessPath, body)
	if err != nil {
		return widget.Result{}, &widget.ProcessingError{Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)

	c.log.DebugContext(ctx, "uploading image", slog.String("file", file.Name), slog.Int64("size", file.Size))

	resp, err := c.http.Do(req)
	if err != nil {
		return widget.Result{}, &widget.ProcessingError{Err: fmt.Errorf("sending request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return widget.Result{}, &widget.ProcessingError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &widget.ProcessingError{
			Message:    errorMessage(data),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server responded %s", resp.Status),
		}
		c.log.WarnContext(ctx, "processing failed", slog.Int("status", resp.StatusCode), slog.String("error", perr.Error()))
		return widget.Result{}, perr
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	return widget.Result{Data: data, ContentType: ct}, nil
}

// encodeForm builds the multipart body with a single file part.
func encodeForm(file widget.SelectedFile) (io.Reader, string, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, file.Name))
	mimeType := file.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("writing form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

// errorMessage extracts {"error": "..."} from a failure body. An empty string
// means the caller should fall back to the generic message.
func errorMessage(body []byte) string {
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	msg, ok := payload.Error.(string)
	if !ok {
		return ""
	}
	return msg
}
