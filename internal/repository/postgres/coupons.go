package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

type couponRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db *sql.DB, logger *zap.Logger) *couponRepository {
	return &couponRepository{
		db:     db,
		logger: logger,
	}
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT id, code, discount_type, value, minimum_order, expires_at, usage_limit,
		       used_count, is_active, issued_for_item_id, created_at, updated_at
		FROM coupons
		WHERE code = $1
	`

	var c domain.Coupon
	var expiresAt sql.NullTime
	var usageLimit sql.NullInt64
	var issuedFor uuid.NullUUID

	err := r.db.QueryRowContext(ctx, query, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&c.ID,
		&c.Code,
		&c.DiscountType,
		&c.Value,
		&c.MinimumOrder,
		&expiresAt,
		&usageLimit,
		&c.UsedCount,
		&c.IsActive,
		&issuedFor,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "coupon", ID: code}
	}
	if err != nil {
		r.logger.Error("Failed to get coupon", zap.Error(err))
		return nil, err
	}

	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		c.UsageLimit = &limit
	}
	if issuedFor.Valid {
		c.IssuedForItemID = &issuedFor.UUID
	}
	return &c, nil
}

func (r *couponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	if err := insertCoupon(ctx, r.db, coupon); err != nil {
		r.logger.Error("Failed to create coupon", zap.Error(err))
		return err
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCoupon(ctx context.Context, db execer, coupon *domain.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, discount_type, value, minimum_order, expires_at, usage_limit,
		                     used_count, is_active, issued_for_item_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	now := time.Now()
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = now
	}
	coupon.UpdatedAt = now
	coupon.Code = strings.ToUpper(coupon.Code)

	_, err := db.ExecContext(ctx, query,
		coupon.ID,
		coupon.Code,
		coupon.DiscountType,
		coupon.Value,
		coupon.MinimumOrder,
		coupon.ExpiresAt,
		coupon.UsageLimit,
		coupon.UsedCount,
		coupon.IsActive,
		coupon.IssuedForItemID,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	)
	return err
}
