package handler

import (
	"errors"
	"net/http"

	"coffeeshop-be/internal/auth"
	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/order"
	"coffeeshop-be/internal/pricing"
	"coffeeshop-be/internal/ratelimit"
	"coffeeshop-be/internal/user"
	"coffeeshop-be/internal/utils"

	"go.uber.org/zap"
)

const (
	msgBadCredentials = "Incorrect username or password"
	msgUnauthorized   = "Could not validate credentials"
	msgForbidden      = "Not enough permissions"
	msgRateLimited    = "Rate limit exceeded"
	msgInternal       = "internal server error"
)

// ErrBadRequest marks malformed request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

// WriteError maps a domain error to its HTTP status and a client-safe message.
// Unclassified errors are logged and answered with 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		utils.WriteJSONError(w, msgBadCredentials, http.StatusUnauthorized)
	case auth.IsUnauthorized(err):
		w.Header().Set("WWW-Authenticate", "Bearer")
		utils.WriteJSONError(w, msgUnauthorized, http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		utils.WriteJSONError(w, msgForbidden, http.StatusForbidden)
	case errors.Is(err, ratelimit.ErrRateLimited):
		utils.WriteJSONError(w, msgRateLimited, http.StatusTooManyRequests)
	case errors.Is(err, pricing.ErrProductNotFound):
		utils.WriteJSONError(w, "Product not found", http.StatusNotFound)
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, user.ErrUserNotFound):
		utils.WriteJSONError(w, "User not found", http.StatusNotFound)
	case errors.Is(err, order.ErrInvalidStatus):
		utils.WriteJSONError(w, "Invalid status", http.StatusBadRequest)
	case errors.Is(err, order.ErrInvalidTransition):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, user.ErrUserExists):
		utils.WriteJSONError(w, "Username or email already registered", http.StatusConflict)
	case errors.Is(err, order.ErrInvalidInput),
		errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, utils.ErrInvalidID),
		errors.Is(err, ErrBadRequest):
		utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.FromCtx(r.Context()).Error("unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteJSONError(w, msgInternal, http.StatusInternalServerError)
	}
}

func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return auth.Principal{}, auth.ErrUnauthenticated
	}
	return p, nil
}
