package utils

import "context"

type contextKey string

const correlationIdKey contextKey = "correlationId"

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, correlationIdKey, correlationId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	cid, ok := ctx.Value(correlationIdKey).(string)
	return cid, ok
}
