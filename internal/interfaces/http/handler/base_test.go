package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/comedor/backend/internal/domain/shared"
	"github.com/comedor/backend/internal/infrastructure/scheduler"
	"github.com/comedor/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context",
			setup: func(c *gin.Context) {
				c.Set(RequestIDKey, "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(RequestIDHeader, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set(RequestIDKey, "ctx-id")
				c.Request.Header.Set(RequestIDHeader, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext()
			tt.setup(c)
			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestBaseHandlerSuccessResponses(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext()
	h.Success(c, map[string]string{"date": "2024-05-04"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)

	c, w = newTestContext()
	h.Created(c, map[string]int{"delivery_count": 3})
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newTestContext()
	h.NoContent(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	tests := []struct {
		name         string
		method       func(*BaseHandler, *gin.Context)
		expectedCode int
		expectedErr  string
	}{
		{"BadRequest", func(h *BaseHandler, c *gin.Context) { h.BadRequest(c, "bad") }, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"NotFound", func(h *BaseHandler, c *gin.Context) { h.NotFound(c, "missing") }, http.StatusNotFound, dto.ErrCodeNotFound},
		{"Conflict", func(h *BaseHandler, c *gin.Context) { h.Conflict(c, "conflict") }, http.StatusConflict, dto.ErrCodeConflict},
		{"Unavailable", func(h *BaseHandler, c *gin.Context) { h.Unavailable(c, "loading") }, http.StatusServiceUnavailable, dto.ErrCodeUnavailable},
		{"InternalError", func(h *BaseHandler, c *gin.Context) { h.InternalError(c, "boom") }, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			c.Set(RequestIDKey, "req-1")

			tt.method(&BaseHandler{}, c)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"invalid input", shared.ErrInvalidInput.WithMessage("date must be YYYY-MM-DD"), http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"unavailable", shared.ErrUnavailable, http.StatusServiceUnavailable, dto.ErrCodeUnavailable},
		{"wrapped domain error", fmt.Errorf("load counts: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"run in progress", fmt.Errorf("close: %w", scheduler.ErrRunInProgress), http.StatusConflict, dto.ErrCodeRunInProgress},
		{"unknown error", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()

			(&BaseHandler{}).HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}

func TestBaseHandlerHandleError_UnknownErrorHidesMessage(t *testing.T) {
	c, w := newTestContext()

	(&BaseHandler{}).HandleError(c, errors.New("pq: password authentication failed"))

	resp := decode(t, w)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	assert.Len(t, c.Errors, 1)
}

func TestBaseHandlerHandleError_Nil(t *testing.T) {
	c, w := newTestContext()

	(&BaseHandler{}).HandleError(c, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
