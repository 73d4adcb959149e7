package auth

import "context"

// Principal is the authenticated caller resolved from a verified token.
type Principal struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// RequireAdmin does not re-verify anything; it only inspects the principal.
func RequireAdmin(p Principal) (Principal, error) {
	if !p.IsAdmin {
		return p, ErrForbidden
	}
	return p, nil
}
