package handler

import (
	"errors"
	"net/http"

	"github.com/comedor/backend/internal/domain/shared"
	"github.com/comedor/backend/internal/infrastructure/scheduler"
	"github.com/comedor/backend/internal/interfaces/http/dto"
	"github.com/comedor/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	// RequestIDKey is the gin context key the logging middleware stores the request ID under
	RequestIDKey = "request_id"
	// RequestIDHeader carries the request ID when the logging middleware is absent
	RequestIDHeader = "X-Request-ID"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	code = dto.NormalizeErrorCode(code)
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// Unavailable sends a 503 response while data is still loading
func (h *BaseHandler) Unavailable(c *gin.Context, message string) {
	h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain, binding and scheduler errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &domainErr):
		h.ErrorWithCode(c, domainErr.Code, domainErr.Message)
	case errors.As(err, &validationErrs):
		middleware.HandleValidationError(c, err)
	case errors.Is(err, scheduler.ErrRunInProgress):
		h.Error(c, http.StatusConflict, dto.ErrCodeRunInProgress, err.Error())
	default:
		_ = c.Error(err)
		h.InternalError(c, "An unexpected error occurred")
	}
}
