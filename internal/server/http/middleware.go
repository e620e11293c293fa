package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// Authenticator verifies bearer tokens.
type Authenticator interface {
	Authenticate(token string) (model.CurrentUser, error)
}

// RequestID reuses a sane inbound X-Request-ID or generates a UUIDv4, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 || strings.ContainsAny(id, " \t\r\n") {
			id = uuid.Must(uuid.NewV4()).String()
		}
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Logging writes one line per request. Bodies are never logged.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("request_id", RequestIDFromCtx(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if u, ok := UserFromCtx(c.Request.Context()); ok {
			fields = append(fields, zap.String("user_id", u.ID.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("http", fields...)
			return
		}
		log.Info("http", fields...)
	}
}

// Recover answers 500 on handler panics.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.Stack("stack"),
					zap.String("request_id", RequestIDFromCtx(c.Request.Context())),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

// RequireUser authenticates "Authorization: Bearer <token>" and stores the
// caller in the request context.
func RequireUser(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			abort(c, errs.ErrUnauthorized)
			return
		}
		u, err := auth.Authenticate(strings.TrimSpace(tok))
		if err != nil {
			abort(c, errs.ErrUnauthorized)
			return
		}
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := UserFromCtx(c.Request.Context())
		if !ok {
			abort(c, errs.ErrUnauthorized)
			return
		}
		if !u.IsAdmin() {
			abort(c, errs.ErrAccessDenied)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusFor(err), gin.H{"error": err.Error()})
}
