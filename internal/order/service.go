package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeeshop-be/internal/auth"
	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/metrics"
	"coffeeshop-be/internal/pricing"
	"coffeeshop-be/internal/product"
	"coffeeshop-be/internal/tracing"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Service interface {
	CreateOrder(ctx context.Context, p auth.Principal, items []Item) (*Order, error)
	GetOrder(ctx context.Context, p auth.Principal, id int64) (*Order, error)
	ListOrders(ctx context.Context, p auth.Principal) ([]Order, error)
	UpdateStatus(ctx context.Context, p auth.Principal, id int64, status string) (*Order, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// NewServiceWithClock is NewService with an injected clock for timestamps.
func NewServiceWithClock(repo Repository, now func() time.Time) Service {
	return &service{repo: repo, now: now}
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	for i, it := range items {
		if it.ProductID <= 0 {
			return fmt.Errorf("%w: item %d has no product_id", ErrInvalidInput, i)
		}
		if it.Quantity < 1 || it.Quantity > MaxItemQuantity {
			return fmt.Errorf("%w: item %d quantity must be between 1 and %d", ErrInvalidInput, i, MaxItemQuantity)
		}
	}
	return nil
}

func toPricingItems(items []Item) []pricing.Item {
	out := make([]pricing.Item, len(items))
	for i, it := range items {
		out[i] = pricing.Item{ProductID: it.ProductID, Size: it.Size, Quantity: it.Quantity}
	}
	return out
}

// CreateOrder prices items and persists a pending order for p. Rate limiting
// and authentication happen before this is called.
func (s *service) CreateOrder(ctx context.Context, p auth.Principal, items []Item) (*Order, error) {
	ctx, span := tracing.StartSpan(ctx, "order.CreateOrder")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int64("user_id", p.UserID),
	)

	if err := validateItems(items); err != nil {
		log.Info("order rejected", zap.Error(err))
		return nil, err
	}

	now := s.now().UTC()
	o := &Order{
		UserID:    p.UserID,
		Items:     append(Items(nil), items...),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	lines := toPricingItems(items)
	err := s.repo.CreateOrderTx(ctx, o, func(ctx context.Context, catalog product.Repository) (decimal.Decimal, error) {
		quote, err := pricing.PriceOrder(ctx, catalog, lines)
		if err != nil {
			return decimal.Zero, err
		}
		return quote.Total, nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, pricing.ErrProductNotFound) {
			metrics.PricingFailuresTotal.Inc()
			log.Info("order pricing failed", zap.Error(err))
			return nil, err
		}
		log.Error("create order failed", zap.Error(err))
		return nil, err
	}

	metrics.OrdersCreatedTotal.Inc()
	span.SetAttributes(attribute.Int64("order.id", o.ID))
	log.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.TotalPrice.String()),
	)
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, p auth.Principal, id int64) (*Order, error) {
	return s.repo.FindByIDForUser(ctx, id, p.UserID)
}

func (s *service) ListOrders(ctx context.Context, p auth.Principal) ([]Order, error) {
	return s.repo.ListByUser(ctx, p.UserID)
}

// UpdateStatus is admin only. The order must exist, status must be one of the
// five known values, and the move must follow the transition table.
func (s *service) UpdateStatus(ctx context.Context, p auth.Principal, id int64, status string) (*Order, error) {
	ctx, span := tracing.StartSpan(ctx, "order.UpdateStatus")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.Int64("order_id", id),
	)

	if _, err := auth.RequireAdmin(p); err != nil {
		log.Warn("non-admin status update", zap.Int64("user_id", p.UserID))
		return nil, err
	}

	o, err := s.repo.UpdateStatusTx(ctx, id, func(o *Order) error {
		next, err := ParseStatus(status)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, next)
		}
		o.Status = next
		o.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		log.Info("status update rejected", zap.String("status", status), zap.Error(err))
		return nil, err
	}

	metrics.OrderStatusUpdatesTotal.WithLabelValues(string(o.Status)).Inc()
	log.Info("order status updated", zap.String("status", string(o.Status)))
	return o, nil
}
