package auth

import (
	"context"

	"github.com/honeynil/auth-service/internal/models"
)

type contextKey int

const (
	principalKey contextKey = iota
	accountIDKey
)

func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*models.Principal)
	return p, ok
}

func WithAccountID(ctx context.Context, id int32) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

func AccountIDFromContext(ctx context.Context) (int32, bool) {
	id, ok := ctx.Value(accountIDKey).(int32)
	return id, ok
}
