package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/pkg/errors"
)

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

const productColumns = `id, slug, name, category, base_price, original_price, images, description, features, attributes`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	var images, features, attributes []byte

	if err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Name,
		&p.Category,
		&p.BasePrice,
		&p.OriginalPrice,
		&images,
		&p.Description,
		&features,
		&attributes,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(images, &p.Images); err != nil {
		return nil, fmt.Errorf("failed to decode product images: %w", err)
	}
	if err := json.Unmarshal(features, &p.Features); err != nil {
		return nil, fmt.Errorf("failed to decode product features: %w", err)
	}
	if err := json.Unmarshal(attributes, &p.Attributes); err != nil {
		return nil, fmt.Errorf("failed to decode product attributes: %w", err)
	}
	return &p, nil
}

func (r *productRepository) GetByID(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 OR slug = $1 LIMIT 1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, idOrSlug))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: idOrSlug}
	}
	if err != nil {
		r.logger.Error("Failed to get product", zap.String("product", idOrSlug), zap.Error(err))
		return nil, err
	}

	if err := r.loadVariants(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context, category string, limit, offset int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR lower(category) = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, category, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("Failed to scan product", zap.Error(err))
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, product := range products {
		if err := r.loadVariants(ctx, product); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// loadVariants fills the product's colors and, per color, its sizes
func (r *productRepository) loadVariants(ctx context.Context, product *domain.Product) error {
	query := `
		SELECT c.id, c.name, c.hex, c.images, s.label, s.stock, s.price
		FROM product_colors c
		LEFT JOIN product_sizes s ON s.color_id = c.id
		WHERE c.product_id = $1
		ORDER BY c.position, c.id, s.position, s.id
	`

	rows, err := r.db.QueryContext(ctx, query, product.ID)
	if err != nil {
		r.logger.Error("Failed to query product variants", zap.String("product_id", product.ID), zap.Error(err))
		return err
	}
	defer rows.Close()

	product.Colors = []domain.ColorVariant{}
	index := map[int64]int{}
	for rows.Next() {
		var colorID int64
		var color domain.ColorVariant
		var images []byte
		var label sql.NullString
		var stock sql.NullInt64
		var price decimal.NullDecimal

		if err := rows.Scan(&colorID, &color.Name, &color.Hex, &images, &label, &stock, &price); err != nil {
			r.logger.Error("Failed to scan product variant", zap.Error(err))
			return err
		}

		pos, seen := index[colorID]
		if !seen {
			if err := json.Unmarshal(images, &color.Images); err != nil {
				return fmt.Errorf("failed to decode color images: %w", err)
			}
			color.Sizes = []domain.SizeVariant{}
			product.Colors = append(product.Colors, color)
			pos = len(product.Colors) - 1
			index[colorID] = pos
		}

		if !label.Valid {
			continue
		}
		size := domain.SizeVariant{Label: label.String, Stock: int(stock.Int64)}
		if price.Valid {
			p := price.Decimal
			size.Price = &p
		}
		product.Colors[pos].Sizes = append(product.Colors[pos].Sizes, size)
	}
	return rows.Err()
}

func (r *productRepository) ReviewSummary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	query := `
		SELECT rating, COUNT(*)
		FROM product_reviews
		WHERE product_id = $1
		GROUP BY rating
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		r.logger.Error("Failed to query reviews", zap.String("product_id", productID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	summary := &domain.ReviewSummary{ProductID: productID, Distribution: map[int]int{}}
	sum := 0
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, err
		}
		summary.Distribution[rating] = count
		summary.Count += count
		sum += rating * count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if summary.Count > 0 {
		summary.Average = float64(sum) / float64(summary.Count)
	}
	return summary, nil
}
