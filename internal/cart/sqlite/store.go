package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/staturevogue/storefront/internal/domain"
)

// Store persists cart lines in a local SQLite file so the cart survives a
// restart of the client.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates the cart database at path
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cart storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.sqlDB.Exec(`
		CREATE TABLE IF NOT EXISTS cart_lines (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			product_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			size TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 1),
			price TEXT NOT NULL,
			original_price TEXT NOT NULL DEFAULT '0',
			image TEXT NOT NULL DEFAULT '',
			UNIQUE (product_id, color, size)
		);
	`)
	return err
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load returns the persisted lines in insertion order
func (s *Store) Load(ctx context.Context) ([]domain.CartLine, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, product_id, name, color, size, quantity, price, original_price, image
		FROM cart_lines
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		var price, originalPrice string
		if err := rows.Scan(
			&line.ID,
			&line.ProductID,
			&line.Name,
			&line.Color,
			&line.Size,
			&line.Quantity,
			&price,
			&originalPrice,
			&line.Image,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if line.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price of line %s: %w", line.ID, err)
		}
		if line.OriginalPrice, err = decimal.NewFromString(originalPrice); err != nil {
			return nil, fmt.Errorf("parse original price of line %s: %w", line.ID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

// Save replaces the stored lines with lines in one transaction
func (s *Store) Save(ctx context.Context, lines []domain.CartLine) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cart tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines`); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cart_lines (id, position, product_id, name, color, size, quantity, price, original_price, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare cart insert: %w", err)
	}
	defer stmt.Close()

	for i, line := range lines {
		if _, err := stmt.ExecContext(ctx,
			line.ID,
			i,
			line.ProductID,
			line.Name,
			line.Color,
			line.Size,
			line.Quantity,
			line.Price.String(),
			line.OriginalPrice.String(),
			line.Image,
		); err != nil {
			return fmt.Errorf("insert cart line %s: %w", line.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cart tx: %w", err)
	}
	return nil
}
