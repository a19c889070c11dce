package repository

import (
	"context"

	"unitprice/pipeline/internal/domain"
)

type ListingRepository interface {
	SaveListing(ctx context.Context, listing *domain.ProductListing) error
	ListListings(ctx context.Context) ([]domain.ProductListing, error)
}

// AggregateRepository stores the output tables of the latest pipeline run.
type AggregateRepository interface {
	ReplaceAggregates(ctx context.Context, runID string, products []domain.AggregatedProduct, pairs []domain.ComparisonPair) error
	ListAggregates(ctx context.Context) ([]domain.AggregatedProduct, error)
	ListComparisons(ctx context.Context) ([]domain.ComparisonPair, error)
}

// Store is a database holding both listings and aggregates.
type Store interface {
	ListingRepository
	AggregateRepository
	Migrate(ctx context.Context) error
	Close() error
}

// Supported values of database.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)
