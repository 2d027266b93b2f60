package common

import "context"

type ctxKey string

const (
	userIDKey ctxKey = "auth/user-id"
	bearerKey ctxKey = "auth/bearer"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithBearer stores the raw bearer credential on the provided context. The
// credential is forwarded verbatim to the ledger, which remains the authority
// on whether it is valid.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey, token)
}

// Bearer extracts the raw bearer credential from the context if present.
func Bearer(ctx context.Context) (string, bool) {
	v := ctx.Value(bearerKey)
	if v == nil {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}
