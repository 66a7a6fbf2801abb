package obs

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	requestIDCtxKey ctxKey = "req_id"
	ownerIDCtxKey   ctxKey = "owner_id"
)

// Standard attribute keys used in logs.
const (
	RequestIDKey = "req_id"
	OwnerIDKey   = "owner_id"
)

// WithRequestID stores id in ctx, generating one when id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDCtxKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDCtxKey, ownerID)
}

func OwnerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ownerIDCtxKey).(string)
	return id
}
