package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"coffeeshop-be/internal/handler"
	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/metrics"
	"coffeeshop-be/internal/ratelimit"

	"go.uber.org/zap"
)

// ClientAddress is the rate-limit key: the peer IP of the connection.
// Forwarding headers are ignored because clients can forge them.
func ClientAddress(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Throttle applies the general per-address token bucket to every request.
func Throttle(b *ratelimit.Buckets) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := b.Allow(ClientAddress(r))
			if err != nil {
				reject(w, r, ratelimit.ClassGeneral, d, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit counts requests against the class budget before any
// authentication or database work happens.
func RateLimit(l *ratelimit.Limiter, class ratelimit.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(class, ClientAddress(r))
			if err != nil {
				reject(w, r, class, d, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, class ratelimit.Class, d ratelimit.Decision, err error) {
	metrics.RateLimitedTotal.WithLabelValues(string(class)).Inc()

	retry := int(math.Ceil(d.RetryAfter.Seconds()))
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))

	logger.FromCtx(r.Context()).Info("rate limit exceeded",
		zap.String("class", string(class)),
		zap.String("ip", ClientAddress(r)),
		zap.String("path", r.URL.Path),
		zap.Int("retry_after", retry),
	)
	handler.WriteError(w, r, err)
}
