package widget

import (
	"encoding/base64"
	"sync"
)

// PreviewHandle references a rendered preview (a data: or object URL in a browser).
type PreviewHandle string

// Previewer creates and releases preview handles for binary content.
type Previewer interface {
	DerivePreview(data []byte, mimeType string) (PreviewHandle, error)
	Revoke(h PreviewHandle)
}

// DataURLPreviewer renders previews as base64 data URLs and keeps count of the
// handles that have not been revoked yet.
type DataURLPreviewer struct {
	mu   sync.Mutex
	live map[PreviewHandle]int
}

// NewDataURLPreviewer creates an empty DataURLPreviewer.
func NewDataURLPreviewer() *DataURLPreviewer {
	return &DataURLPreviewer{live: make(map[PreviewHandle]int)}
}

func (p *DataURLPreviewer) DerivePreview(data []byte, mimeType string) (PreviewHandle, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := PreviewHandle("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))

	p.mu.Lock()
	p.live[h]++
	p.mu.Unlock()
	return h, nil
}

func (p *DataURLPreviewer) Revoke(h PreviewHandle) {
	if h == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live[h] <= 1 {
		delete(p.live, h)
		return
	}
	p.live[h]--
}

// Live returns the number of handles not yet revoked.
func (p *DataURLPreviewer) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.live {
		n += c
	}
	return n
}
