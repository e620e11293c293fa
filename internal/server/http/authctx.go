package httpserver

import (
	"context"

	"github.com/and161185/signator/internal/model"
)

type ctxKey string

const (
	userKey      ctxKey = "signator.user"
	requestIDKey ctxKey = "signator.requestID"
)

// WithUser stores the authenticated caller in context.
func WithUser(ctx context.Context, u model.CurrentUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromCtx fetches the authenticated caller from context.
func UserFromCtx(ctx context.Context) (model.CurrentUser, bool) {
	u, ok := ctx.Value(userKey).(model.CurrentUser)
	return u, ok
}

// WithRequestID stores the request id in context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx returns the request id, or "".
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
