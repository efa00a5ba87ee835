// Package widget implements the upload, preview and result flow of the upscaler
// front end as a headless state holder. Rendering surfaces read View and call the
// operations in response to user input.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Processor uploads a file to the processing endpoint and returns the result.
type Processor interface {
	Process(ctx context.Context, file SelectedFile) (Result, error)
}

// Artifact is a downloadable result.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Save writes the artifact into dir and returns the full path.
func (a Artifact) Save(dir string) (string, error) {
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", a.Name, err)
	}
	return path, nil
}

// View is the derived UI state.
type View struct {
	State          string
	FileName       string
	FileSize       string
	Preview        PreviewHandle
	PreviewVisible bool
	ResultPreview  PreviewHandle
	ResultVisible  bool
	TriggerEnabled bool
	Loading        bool
	Status         Status
}

// Widget owns the selected file, the latest result and the status message.
type Widget struct {
	mu        sync.Mutex
	state     State
	status    Status
	busy      bool
	serial    uint64
	processor Processor
	previewer Previewer
	log       *slog.Logger
}

// Option configures a Widget.
type Option func(*Widget)

// WithPreviewer replaces the default data URL previewer.
func WithPreviewer(p Previewer) Option {
	return func(w *Widget) { w.previewer = p }
}

// WithLogger sets the logger used for failed round trips.
func WithLogger(log *slog.Logger) Option {
	return func(w *Widget) { w.log = log }
}

// New creates an empty widget that sends files to processor.
func New(processor Processor, opts ...Option) *Widget {
	w := &Widget{
		state:     Empty{},
		status:    Status{Kind: StatusNone},
		processor: processor,
		previewer: NewDataURLPreviewer(),
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SelectFile makes candidate the active selection. A nil candidate or one whose
// MIME type is not image/* clears the selection and reports ErrInvalidFileType.
func (w *Widget) SelectFile(candidate *SelectedFile) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.clearLocked()

	if candidate == nil || !strings.HasPrefix(candidate.MIMEType, "image/") {
		w.status = Status{Kind: StatusError, Message: MessageInvalidFileType}
		return ErrInvalidFileType
	}

	file := *candidate
	preview, err := w.previewer.DerivePreview(file.Data, file.MIMEType)
	if err != nil {
		// The file stays selectable without a preview.
		w.log.Warn("failed to derive preview", slog.String("file", file.Name), slog.String("error", err.Error()))
		preview = ""
	}

	w.serial++
	w.state = FileSelected{File: file, Preview: preview, serial: w.serial}
	w.status = Status{Kind: StatusNone}
	return nil
}

// RemoveFile clears the selection and any result.
func (w *Widget) RemoveFile() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.clearLocked()
	w.status = Status{Kind: StatusNone}
}

// clearLocked releases preview handles and returns to Empty.
func (w *Widget) clearLocked() {
	switch st := w.state.(type) {
	case FileSelected:
		w.previewer.Revoke(st.Preview)
	case Processing:
		w.previewer.Revoke(st.Preview)
	case ResultReady:
		w.previewer.Revoke(st.ResultPreview)
		w.previewer.Revoke(st.Preview)
	}
	w.state = Empty{}
}

// Process uploads the selected file. It is a no-op without a selection and
// returns ErrBusy while a previous call is still waiting for the server.
// A failed round trip keeps the file selected so the user can retry.
func (w *Widget) Process(ctx context.Context) error {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return ErrBusy
	}
	file, preview, serial, ok := selection(w.state)
	if !ok {
		w.mu.Unlock()
		return nil
	}
	if rr, isReady := w.state.(ResultReady); isReady {
		w.previewer.Revoke(rr.ResultPreview)
	}
	w.state = Processing{File: file, Preview: preview, serial: serial}
	w.status = Status{Kind: StatusProcessing, Message: MessageProcessing}
	w.busy = true
	w.mu.Unlock()

	result, err := w.processor.Process(ctx, file)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false

	current, stillCurrent := w.state.(Processing)
	if !stillCurrent || current.serial != serial {
		// The file was removed or replaced while the request was in flight.
		w.log.Debug("discarding result for a superseded selection", slog.String("file", file.Name))
		return err
	}

	if err != nil {
		msg := MessageFailed
		var perr *ProcessingError
		if errors.As(err, &perr) {
			msg = perr.Error()
		}
		w.log.Error("failed to process image", slog.String("file", file.Name), slog.String("error", err.Error()))
		w.state = FileSelected{File: file, Preview: preview, serial: serial}
		w.status = Status{Kind: StatusError, Message: msg}
		return err
	}

	resultPreview, perr := w.previewer.DerivePreview(result.Data, result.ContentType)
	if perr != nil {
		w.log.Warn("failed to derive result preview", slog.String("file", file.Name), slog.String("error", perr.Error()))
		resultPreview = ""
	}
	w.state = ResultReady{File: file, Preview: preview, Result: result, ResultPreview: resultPreview, serial: serial}
	w.status = Status{Kind: StatusSuccess, Message: MessageSuccess}
	return nil
}

// Download returns the result as an artifact named after the selected file.
// The second value is false when there is nothing to download.
func (w *Widget) Download() (Artifact, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rr, ok := w.state.(ResultReady)
	if !ok {
		return Artifact{}, false
	}

	contentType := rr.Result.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	data := make([]byte, len(rr.Result.Data))
	copy(data, rr.Result.Data)

	return Artifact{
		Name:        DownloadName(rr.File.Name),
		ContentType: contentType,
		Data:        data,
	}, true
}

// State returns the current state variant.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Status returns the current status message.
func (w *Widget) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// View derives what a rendering surface should show.
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{State: w.state.Name(), Status: w.status, Loading: w.busy}
	file, preview, _, ok := selection(w.state)
	if !ok {
		return v
	}

	v.FileName = file.Name
	v.FileSize = FormatSize(file.Size)
	v.Preview = preview
	v.PreviewVisible = preview != ""
	v.TriggerEnabled = !w.busy
	if rr, isReady := w.state.(ResultReady); isReady {
		v.ResultPreview = rr.ResultPreview
		v.ResultVisible = true
	}
	return v
}
