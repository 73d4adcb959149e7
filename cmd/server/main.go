package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffeeshop-be/internal/auth"
	"coffeeshop-be/internal/config"
	"coffeeshop-be/internal/db"
	"coffeeshop-be/internal/handler"
	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/middleware"
	"coffeeshop-be/internal/order"
	"coffeeshop-be/internal/product"
	"coffeeshop-be/internal/ratelimit"
	"coffeeshop-be/internal/tracing"
	"coffeeshop-be/internal/user"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "coffeeshop-be"

var (
	initDBFunc      = db.NewDatabase
	startServerFunc = startServer
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	database, err := initDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(ctx, cfg, database),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.L().Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
	return startServerFunc(ctx, srv)
}

// startServer serves until ctx is cancelled, then drains in-flight requests.
func startServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type deps struct {
	gate     *auth.Gate
	limiter  *ratelimit.Limiter
	buckets  *ratelimit.Buckets
	auth     *handler.AuthHandler
	orders   *handler.OrderHandler
	products *handler.ProductHandler
	admin    *handler.AdminHandler
	health   *handler.HealthHandler
}

func newServer(ctx context.Context, cfg *config.Config, database *sqlx.DB) http.Handler {
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	userSvc := user.NewService(user.NewRepository(database), auth.NewHasher(0), tokens)
	orderSvc := order.NewService(order.NewRepository(database))
	productSvc := product.NewService(product.NewRepository(database))

	limiter := ratelimit.New(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassOrders: {Limit: cfg.OrderRateLimit, Window: cfg.OrderRateWindow},
		ratelimit.ClassSearch: {Limit: cfg.SearchRateLimit, Window: cfg.SearchRateWindow},
	})
	buckets := ratelimit.NewBuckets(cfg.RateLimitRequests, cfg.RateLimitWindow)
	go limiter.Run(ctx, time.Minute)
	go buckets.Run(ctx, time.Minute)

	return setupRouter(deps{
		gate:     auth.NewGate(tokens, userSvc),
		limiter:  limiter,
		buckets:  buckets,
		auth:     handler.NewAuthHandler(userSvc),
		orders:   handler.NewOrderHandler(orderSvc),
		products: handler.NewProductHandler(productSvc),
		admin:    handler.NewAdminHandler(userSvc),
		health:   handler.NewHealthHandler(database),
	})
}

// setupRouter wires routes. Route-class limits run before authentication so
// throttled callers never cost a token check or a user lookup.
func setupRouter(d deps) http.Handler {
	authenticated := middleware.Authenticate(d.gate)
	adminOnly := middleware.RequireAdmin(d.gate)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/token", d.auth.Token)
	mux.HandleFunc("POST /auth/register", d.auth.Register)
	mux.HandleFunc("POST /auth/refresh", d.auth.Refresh)

	mux.Handle("POST /orders", middleware.Chain(http.HandlerFunc(d.orders.Create),
		middleware.RateLimit(d.limiter, ratelimit.ClassOrders), authenticated))
	mux.Handle("GET /orders", middleware.Chain(http.HandlerFunc(d.orders.List), authenticated))
	mux.Handle("GET /orders/{id}", middleware.Chain(http.HandlerFunc(d.orders.Get), authenticated))
	mux.Handle("PATCH /orders/{id}/status", middleware.Chain(http.HandlerFunc(d.orders.UpdateStatus),
		authenticated, adminOnly))

	mux.Handle("GET /products/search", middleware.Chain(http.HandlerFunc(d.products.Search),
		middleware.RateLimit(d.limiter, ratelimit.ClassSearch)))

	mux.Handle("PATCH /admin/users/{id}/admin", middleware.Chain(http.HandlerFunc(d.admin.ToggleAdmin),
		authenticated, adminOnly))
	mux.Handle("PATCH /admin/users/{id}/active", middleware.Chain(http.HandlerFunc(d.admin.ToggleActive),
		authenticated, adminOnly))

	mux.HandleFunc("GET /health", d.health.Health)
	mux.HandleFunc("GET /health/db", d.health.Database)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Chain(mux,
		logger.RequestIDMiddleware,
		logger.LoggingMiddleware,
		middleware.Metrics,
		middleware.Throttle(d.buckets),
	)
}
