package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"unitprice/pipeline/internal/domain"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		url        TEXT PRIMARY KEY,
		brand_name TEXT NOT NULL DEFAULT '',
		data       TEXT NOT NULL,
		scraped_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS agg_products (
		run_id       TEXT NOT NULL,
		position     INTEGER NOT NULL,
		product_id   TEXT NOT NULL,
		swatch_group TEXT NOT NULL,
		unit_price   REAL,
		data         TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS agg_products_product_id ON agg_products (product_id)`,
	`CREATE TABLE IF NOT EXISTS comparison_pairs (
		run_id     TEXT NOT NULL,
		prod_rank  INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		ratio      REAL NOT NULL,
		data       TEXT NOT NULL,
		PRIMARY KEY (run_id, prod_rank)
	)`,
}

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a sqlite database file.
func OpenSQLite(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	return &sqliteStore{db: db}, nil
}

func (r *sqliteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}
	return nil
}

func (r *sqliteStore) SaveListing(ctx context.Context, listing *domain.ProductListing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}

	query := `
	INSERT INTO listings (url, brand_name, data)
	VALUES (?, ?, ?)
	ON CONFLICT (url)
	DO UPDATE SET brand_name = excluded.brand_name, data = excluded.data, scraped_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, listing.URL, listing.BrandName, string(data)); err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

func (r *sqliteStore) ListListings(ctx context.Context) ([]domain.ProductListing, error) {
	return queryJSON[domain.ProductListing](ctx, r.db, `SELECT data FROM listings ORDER BY brand_name, url`)
}

func (r *sqliteStore) ReplaceAggregates(ctx context.Context, runID string, products []domain.AggregatedProduct, pairs []domain.ComparisonPair) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM agg_products`, `DELETE FROM comparison_pairs`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear previous run: %w", err)
		}
	}

	insertProduct, err := tx.PrepareContext(ctx, `
	INSERT INTO agg_products (run_id, position, product_id, swatch_group, unit_price, data)
	VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare aggregate insert: %w", err)
	}
	defer insertProduct.Close()

	for i, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode aggregate %s: %w", p.ProductID, err)
		}
		if _, err := insertProduct.ExecContext(ctx, runID, i, p.ProductID, p.SwatchGroup, p.UnitPrice, string(data)); err != nil {
			return fmt.Errorf("failed to insert aggregate %s: %w", p.ProductID, err)
		}
	}

	insertPair, err := tx.PrepareContext(ctx, `
	INSERT INTO comparison_pairs (run_id, prod_rank, product_id, ratio, data)
	VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare comparison insert: %w", err)
	}
	defer insertPair.Close()

	for _, pair := range pairs {
		data, err := json.Marshal(pair)
		if err != nil {
			return fmt.Errorf("failed to encode comparison %s: %w", pair.ProductID, err)
		}
		if _, err := insertPair.ExecContext(ctx, runID, pair.ProdRank, pair.ProductID, pair.MiniToStandardRatio, string(data)); err != nil {
			return fmt.Errorf("failed to insert comparison %s: %w", pair.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit aggregates: %w", err)
	}
	return nil
}

func (r *sqliteStore) ListAggregates(ctx context.Context) ([]domain.AggregatedProduct, error) {
	return queryJSON[domain.AggregatedProduct](ctx, r.db, `SELECT data FROM agg_products ORDER BY position`)
}

func (r *sqliteStore) ListComparisons(ctx context.Context) ([]domain.ComparisonPair, error) {
	return queryJSON[domain.ComparisonPair](ctx, r.db, `SELECT data FROM comparison_pairs ORDER BY prod_rank`)
}

func (r *sqliteStore) Close() error {
	return r.db.Close()
}

func queryJSON[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var item T
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
