// Package web embeds the browser upload page served alongside the API.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed dist/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the dist folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// RegisterStaticRoutes registers the page routes with Echo.
// The API routes should be registered before calling this function.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}

	e.GET("/*", func(c echo.Context) error {
		requestPath := path.Clean("/" + c.Param("*"))
		if requestPath == "/" {
			requestPath = "/index.html"
		}

		name := strings.TrimPrefix(requestPath, "/")
		content, err := fs.ReadFile(staticFS, name)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}

		return c.Blob(http.StatusOK, contentType(name), content)
	})

	return nil
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".html":
		return echo.MIMETextHTMLCharsetUTF8
	case ".js":
		return echo.MIMEApplicationJavaScriptCharsetUTF8
	case ".css":
		return "text/css; charset=utf-8"
	default:
		return echo.MIMEOctetStream
	}
}

// HasEmbeddedFiles returns true if the page has been embedded.
func HasEmbeddedFiles() bool {
	_, err := fs.Stat(staticFiles, "dist/index.html")
	return err == nil
}
