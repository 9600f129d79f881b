package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/internal/repository"
)

// NewConnection opens and pings a PostgreSQL connection
func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewRepositories wires every PostgreSQL repository on db
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Product:    NewProductRepository(db, logger),
		Coupon:     NewCouponRepository(db, logger),
		SiteConfig: NewSiteConfigRepository(db, logger),
		Order:      NewOrderRepository(db, logger),
		OrderItem:  NewOrderItemRepository(db, logger),
		OrderEvent: NewOrderEventRepository(db, logger),
		Admin:      NewAdminRepository(db, logger),
	}
}

// Migrate creates the schema if it does not exist yet
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	base_price NUMERIC(12,2) NOT NULL CHECK (base_price >= 0),
	original_price NUMERIC(12,2) NOT NULL DEFAULT 0,
	images JSONB NOT NULL DEFAULT '[]',
	description TEXT NOT NULL DEFAULT '',
	features JSONB NOT NULL DEFAULT '[]',
	attributes JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS product_colors (
	id SERIAL PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	hex TEXT NOT NULL DEFAULT '',
	images JSONB NOT NULL DEFAULT '[]',
	position INT NOT NULL DEFAULT 0,
	UNIQUE (product_id, name)
);

CREATE TABLE IF NOT EXISTS product_sizes (
	id SERIAL PRIMARY KEY,
	color_id INT NOT NULL REFERENCES product_colors(id) ON DELETE CASCADE,
	label TEXT NOT NULL,
	stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
	price NUMERIC(12,2),
	position INT NOT NULL DEFAULT 0,
	UNIQUE (color_id, label)
);

CREATE TABLE IF NOT EXISTS product_reviews (
	id UUID PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	user_name TEXT NOT NULL,
	rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS site_config (
	id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	shipping_flat_rate NUMERIC(12,2) NOT NULL,
	shipping_free_above NUMERIC(12,2) NOT NULL,
	tax_rate_percentage NUMERIC(5,2) NOT NULL,
	cod_fee NUMERIC(12,2) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS coupons (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	discount_type TEXT NOT NULL,
	value NUMERIC(12,2) NOT NULL,
	minimum_order NUMERIC(12,2) NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ,
	usage_limit INT,
	used_count INT NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	issued_for_item_id UUID,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	buyer_email TEXT NOT NULL,
	buyer JSONB NOT NULL,
	payment_method TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	order_status TEXT NOT NULL,
	subtotal NUMERIC(12,2) NOT NULL,
	discount NUMERIC(12,2) NOT NULL,
	tax NUMERIC(12,4) NOT NULL,
	shipping NUMERIC(12,2) NOT NULL,
	cod_fee NUMERIC(12,2) NOT NULL,
	total_amount NUMERIC(12,4) NOT NULL,
	coupon_code TEXT,
	gateway_order_id TEXT UNIQUE,
	payment_id TEXT,
	delivered_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_buyer_email_idx ON orders (buyer_email, created_at DESC);

CREATE TABLE IF NOT EXISTS order_items (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	product_name TEXT NOT NULL,
	color TEXT NOT NULL,
	size TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	price NUMERIC(12,2) NOT NULL,
	quantity INT NOT NULL CHECK (quantity >= 1),
	item_status TEXT NOT NULL,
	action_type TEXT,
	reason TEXT,
	evidence_path TEXT,
	admin_comment TEXT,
	exchange_coupon_code TEXT,
	refund_reference TEXT,
	refund_date TIMESTAMPTZ,
	requested_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_events (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	order_item_id UUID,
	event_type TEXT NOT NULL,
	event_data JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS admins (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	api_key_hash TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
