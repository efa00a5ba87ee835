package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{500, "500 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{2048, "2.0 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
		{1 << 40, "1.0 TB"},
		{1 << 50, "1024.0 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.in), "FormatSize(%d)", tt.in)
	}
}

func TestDownloadName(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":      "upscaled_photo.png",
		"archive.tar.gz": "upscaled_archive.tar.png",
		"noext":          "upscaled_noext.png",
		"cat.png":        "upscaled_cat.png",
		"trailing.":      "upscaled_trailing..png",
	}
	for in, want := range tests {
		assert.Equal(t, want, DownloadName(in), "DownloadName(%q)", in)
	}
}
