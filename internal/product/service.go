package product

import (
	"context"
	"strings"
	"time"

	"coffeeshop-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Search(ctx context.Context, query string, limit int) ([]Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Search"),
	)

	start := time.Now()

	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = DefaultSearchLimit
	} else if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	products, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		log.Error("product search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	log.Debug("product search completed",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.Int("count", len(products)),
		zap.Duration("duration", time.Since(start)),
	)
	return products, nil
}
