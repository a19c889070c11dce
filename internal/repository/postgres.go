package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"unitprice/pipeline/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS listings (
	url        TEXT PRIMARY KEY,
	brand_name TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS agg_products (
	run_id       TEXT NOT NULL,
	position     INTEGER NOT NULL,
	product_id   TEXT NOT NULL,
	swatch_group TEXT NOT NULL,
	unit_price   DOUBLE PRECISION,
	data         JSONB NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS agg_products_product_id ON agg_products (product_id);
CREATE TABLE IF NOT EXISTS comparison_pairs (
	run_id     TEXT NOT NULL,
	prod_rank  INTEGER NOT NULL,
	product_id TEXT NOT NULL,
	ratio      DOUBLE PRECISION NOT NULL,
	data       JSONB NOT NULL,
	PRIMARY KEY (run_id, prod_rank)
);`

type postgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) Store {
	return &postgresStore{
		db: db,
	}
}

func (r *postgresStore) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	return nil
}

func (r *postgresStore) SaveListing(ctx context.Context, listing *domain.ProductListing) error {
	query := `
	INSERT INTO listings (url, brand_name, data)
	VALUES ($1, $2, $3)
	ON CONFLICT (url)
	DO UPDATE SET brand_name = $2, data = $3, scraped_at = now()`
	_, err := r.db.Exec(ctx, query, listing.URL, listing.BrandName, listing)
	if err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}

	return nil
}

func (r *postgresStore) ListListings(ctx context.Context) ([]domain.ProductListing, error) {
	rows, err := r.db.Query(ctx, `SELECT data FROM listings ORDER BY brand_name, url`)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	listings, err := pgx.CollectRows(rows, pgx.RowTo[domain.ProductListing])
	if err != nil {
		return nil, fmt.Errorf("failed to scan listings: %w", err)
	}
	return listings, nil
}

func (r *postgresStore) ReplaceAggregates(ctx context.Context, runID string, products []domain.AggregatedProduct, pairs []domain.ComparisonPair) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM agg_products`); err != nil {
		return fmt.Errorf("failed to clear aggregates: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM comparison_pairs`); err != nil {
		return fmt.Errorf("failed to clear comparisons: %w", err)
	}

	batch := &pgx.Batch{}
	for i, p := range products {
		batch.Queue(`
		INSERT INTO agg_products (run_id, position, product_id, swatch_group, unit_price, data)
		VALUES ($1, $2, $3, $4, $5, $6)`, runID, i, p.ProductID, p.SwatchGroup, p.UnitPrice, p)
	}
	for _, pair := range pairs {
		batch.Queue(`
		INSERT INTO comparison_pairs (run_id, prod_rank, product_id, ratio, data)
		VALUES ($1, $2, $3, $4, $5)`, runID, pair.ProdRank, pair.ProductID, pair.MiniToStandardRatio, pair)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit aggregates: %w", err)
	}
	return nil
}

func (r *postgresStore) ListAggregates(ctx context.Context) ([]domain.AggregatedProduct, error) {
	rows, err := r.db.Query(ctx, `SELECT data FROM agg_products ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}

	products, err := pgx.CollectRows(rows, pgx.RowTo[domain.AggregatedProduct])
	if err != nil {
		return nil, fmt.Errorf("failed to scan aggregates: %w", err)
	}
	return products, nil
}

func (r *postgresStore) ListComparisons(ctx context.Context) ([]domain.ComparisonPair, error) {
	rows, err := r.db.Query(ctx, `SELECT data FROM comparison_pairs ORDER BY prod_rank`)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons: %w", err)
	}

	pairs, err := pgx.CollectRows(rows, pgx.RowTo[domain.ComparisonPair])
	if err != nil {
		return nil, fmt.Errorf("failed to scan comparisons: %w", err)
	}
	return pairs, nil
}

func (r *postgresStore) Close() error {
	r.db.Close()
	return nil
}
