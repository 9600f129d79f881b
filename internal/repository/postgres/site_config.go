package postgres

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

type siteConfigRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSiteConfigRepository creates a new site config repository
func NewSiteConfigRepository(db *sql.DB, logger *zap.Logger) *siteConfigRepository {
	return &siteConfigRepository{
		db:     db,
		logger: logger,
	}
}

// GetShippingPolicy returns the configured policy. A missing row is reported
// as not found rather than replaced by defaults.
func (r *siteConfigRepository) GetShippingPolicy(ctx context.Context) (*domain.ShippingPolicy, error) {
	query := `
		SELECT shipping_flat_rate, shipping_free_above, tax_rate_percentage, cod_fee
		FROM site_config
		WHERE id = 1
	`

	var p domain.ShippingPolicy
	err := r.db.QueryRowContext(ctx, query).Scan(
		&p.FlatRate,
		&p.FreeShippingThreshold,
		&p.TaxRatePercentage,
		&p.CODFee,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "site config", ID: "1"}
	}
	if err != nil {
		r.logger.Error("Failed to get site config", zap.Error(err))
		return nil, err
	}

	p.Loaded = true
	return &p, nil
}
