package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

type adminRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *sql.DB, logger *zap.Logger) *adminRepository {
	return &adminRepository{
		db:     db,
		logger: logger,
	}
}

// GetByAPIKeyHash checks apiKey against every active admin. bcrypt hashes are
// salted, so there is no indexed lookup.
func (r *adminRepository) GetByAPIKeyHash(ctx context.Context, apiKey string) (*domain.Admin, error) {
	query := `
		SELECT id, name, api_key_hash, is_active, created_at, updated_at
		FROM admins
		WHERE is_active = true
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query admins", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var admin domain.Admin
		if err := rows.Scan(
			&admin.ID,
			&admin.Name,
			&admin.APIKeyHash,
			&admin.IsActive,
			&admin.CreatedAt,
			&admin.UpdatedAt,
		); err != nil {
			continue
		}

		if bcrypt.CompareHashAndPassword([]byte(admin.APIKeyHash), []byte(apiKey)) == nil {
			return &admin, nil
		}
	}

	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	query := `
		INSERT INTO admins (id, name, api_key_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now()
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	if admin.UpdatedAt.IsZero() {
		admin.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		admin.ID,
		admin.Name,
		admin.APIKeyHash,
		admin.IsActive,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create admin", zap.Error(err))
		return err
	}
	return nil
}
