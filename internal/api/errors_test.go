package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		debug       bool
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails string
	}{
		{
			name:        "api error",
			err:         NewUnsupportedMediaTypeError("Unsupported file type"),
			wantStatus:  http.StatusUnsupportedMediaType,
			wantCode:    "UNSUPPORTED_MEDIA_TYPE",
			wantMessage: "Unsupported file type",
		},
		{
			name:        "wrapped api error",
			err:         fmt.Errorf("handler: %w", NewNotFoundError("job", "x")),
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "job not found: x",
		},
		{
			name:        "echo http error",
			err:         echo.ErrStatusRequestEntityTooLarge,
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantCode:    "HTTP_ERROR",
			wantMessage: "Request Entity Too Large",
		},
		{
			name:        "unknown error hides details",
			err:         errors.New("secret path /var/data"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "UNKNOWN_ERROR",
			wantMessage: "Unexpected server error",
		},
		{
			name:        "unknown error in debug mode",
			err:         errors.New("secret path /var/data"),
			debug:       true,
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "UNKNOWN_ERROR",
			wantMessage: "Unexpected server error",
			wantDetails: "secret path /var/data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/process", nil), rec)

			NewErrorHandler(discardLogger(), tt.debug)(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, tt.wantDetails, body.Details)
		})
	}
}
