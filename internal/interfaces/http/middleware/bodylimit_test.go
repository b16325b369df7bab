package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/comedor/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/api/v1/days/:date/order-counts", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusCreated)
	})
	router.GET("/api/v1/dashboard", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		path          string
		body          string
		contentLength int64
		want          int
	}{
		{"empty write body", http.MethodPost, "/api/v1/days/2024-05-03/order-counts", "", 0, http.StatusCreated},
		{"small body", http.MethodPost, "/api/v1/days/2024-05-03/order-counts", `{"force":true}`, 14, http.StatusCreated},
		{"declared length over limit", http.MethodPost, "/api/v1/days/2024-05-03/order-counts", strings.Repeat("x", 80), 80, http.StatusRequestEntityTooLarge},
		{"chunked body over limit", http.MethodPost, "/api/v1/days/2024-05-03/order-counts", strings.Repeat("x", 80), -1, http.StatusRequestEntityTooLarge},
		{"read without body", http.MethodGet, "/api/v1/dashboard", "", 0, http.StatusOK},
	}

	router := newBodyLimitRouter(32)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestBodyLimit_RejectionEnvelope(t *testing.T) {
	router := newBodyLimitRouter(8)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/days/2024-05-03/order-counts", strings.NewReader(strings.Repeat("x", 20)))
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	assert.Equal(t, "req-42", resp.Error.RequestID)
}
