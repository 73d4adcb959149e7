package auth

import (
	"context"
	"net/http"

	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/metrics"
	"coffeeshop-be/internal/tracing"

	"go.uber.org/zap"
)

// PrincipalLookup resolves a token subject to a principal. Implementations
// return ErrSubjectNotFound or ErrSubjectInactive for unusable accounts.
type PrincipalLookup interface {
	LookupPrincipal(ctx context.Context, username string) (Principal, error)
}

type Gate struct {
	tokens *TokenService
	users  PrincipalLookup
}

func NewGate(tokens *TokenService, users PrincipalLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

func (g *Gate) Authenticate(r *http.Request) (Principal, error) {
	ctx, span := tracing.StartSpan(r.Context(), "auth.Authenticate")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "auth"),
		zap.String("method", "Authenticate"),
	)

	p, err := g.authenticate(ctx, r)
	if err != nil {
		reason := FailureReason(err)
		metrics.AuthFailures.WithLabelValues(reason).Inc()
		if IsUnauthorized(err) {
			log.Info("authentication rejected", zap.String("reason", reason), zap.Error(err))
		} else {
			log.Error("authentication failed", zap.Error(err))
		}
		span.RecordError(err)
		return Principal{}, err
	}

	return p, nil
}

func (g *Gate) authenticate(ctx context.Context, r *http.Request) (Principal, error) {
	raw := ExtractBearerToken(r)
	if raw == "" {
		return Principal{}, ErrMissingToken
	}

	claims, err := g.tokens.Verify(raw, KindAccess)
	if err != nil {
		return Principal{}, err
	}

	return g.users.LookupPrincipal(ctx, claims.Subject)
}

// RequireAdmin composes strictly after Authenticate.
func (g *Gate) RequireAdmin(ctx context.Context, p Principal) (Principal, error) {
	p, err := RequireAdmin(p)
	if err != nil {
		metrics.AuthFailures.WithLabelValues(FailureReason(err)).Inc()
		logger.FromCtx(ctx).Warn("admin privilege required",
			zap.Int64("user_id", p.UserID),
			zap.String("username", p.Username),
		)
	}
	return p, err
}
