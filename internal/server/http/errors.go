package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/signator/internal/errs"
)

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes {"error": msg}. Internal errors are logged and answered
// without detail.
func (s *Server) fail(c *gin.Context, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", RequestIDFromCtx(c.Request.Context())),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
