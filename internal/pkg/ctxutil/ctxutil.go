package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const requestDataKey ctxKey = "request_data"

// RequestData carries the already-resolved caller identity through a request.
// EnabledModels is the caller's model allowlist from the token; empty means
// every catalogue model is selectable.
type RequestData struct {
	UserID        uuid.UUID
	EnabledModels []string
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey).(*RequestData)
	return rd
}
