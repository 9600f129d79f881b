package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/repository"
	"github.com/staturevogue/storefront/pkg/errors"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

// CatalogService serves products, reviews and the site pricing configuration
type CatalogService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repos *repository.Repositories, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		repos:  repos,
		logger: logger,
	}
}

// GetProduct looks a product up by id or slug
func (s *CatalogService) GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	if idOrSlug == "" {
		return nil, &errors.ValidationError{Field: "id", Message: "product id is required"}
	}
	return s.repos.Product.GetByID(ctx, idOrSlug)
}

// ListProducts pages through the catalog, optionally within one category
func (s *CatalogService) ListProducts(ctx context.Context, category string, limit, offset int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Product.List(ctx, strings.ToLower(strings.TrimSpace(category)), limit, offset)
}

// ReviewSummary returns the review aggregate of an existing product
func (s *CatalogService) ReviewSummary(ctx context.Context, idOrSlug string) (*domain.ReviewSummary, error) {
	product, err := s.GetProduct(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	return s.repos.Product.ReviewSummary(ctx, product.ID)
}

// ShippingPolicy returns the site pricing configuration. A missing
// configuration is reported as ErrConfigNotLoaded so checkout stays blocked.
func (s *CatalogService) ShippingPolicy(ctx context.Context) (*domain.ShippingPolicy, error) {
	policy, err := s.repos.SiteConfig.GetShippingPolicy(ctx)
	if errors.IsNotFound(err) {
		return nil, errors.ErrConfigNotLoaded
	}
	if err != nil {
		return nil, err
	}
	return policy, nil
}
