package widget

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// LoadFile reads path into a SelectedFile. The MIME type comes from the file
// extension, as a browser file picker reports it, and falls back to content sniffing.
func LoadFile(path string) (*SelectedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType != "" {
		if mt, _, perr := mime.ParseMediaType(mimeType); perr == nil {
			mimeType = mt
		}
	} else {
		mimeType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}

	return &SelectedFile{
		Name:     filepath.Base(path),
		Size:     int64(len(data)),
		MIMEType: mimeType,
		Data:     data,
	}, nil
}
