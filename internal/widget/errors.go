package widget

import "errors"

// ErrInvalidFileType is returned by SelectFile for a missing or non-image candidate.
var ErrInvalidFileType = errors.New("not an image")

// ErrBusy is returned by Process while an earlier request is still in flight.
var ErrBusy = errors.New("processing already in progress")

// ProcessingError reports a failed round trip to the processing endpoint.
// Message carries the server-supplied detail when one was available.
type ProcessingError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ProcessingError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return MessageFailed
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
