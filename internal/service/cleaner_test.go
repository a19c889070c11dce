package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"unitprice/pipeline/internal/config"
	"unitprice/pipeline/internal/domain"
	"unitprice/pipeline/internal/ioformats"
	"unitprice/pipeline/internal/repository"
)

func serumListing() domain.ProductListing {
	return domain.ProductListing{
		URL:         "https://www.sephora.com/product/serum-P100",
		ProductName: "Serum",
		BrandName:   "Brand A",
		Categories:  []string{"Skincare", "Treatments", "Face Serums"},
		Rating:      "width:90.00%",
		Options: []domain.ProductOption{
			{SwatchGroup: "Mini Size", Size: domain.TextOrList{"1 oz/ 30 mL"}, Price: []string{"$50.00"}, SKU: "Item 1"},
			{SwatchGroup: "Standard Size", Size: domain.TextOrList{"3 oz/ 90 mL"}, Price: []string{"$60.00"}, SKU: "Item 2"},
		},
	}
}

func openStore(t *testing.T) repository.Store {
	t.Helper()
	store, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "products.db"))
	if err != nil {
		t.Fatalf("OpenSQLite error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return store
}

func TestCleaner_FilesToStoreAndCSV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := ioformats.WriteListings(filepath.Join(dir, "in", "products.json"), []domain.ProductListing{serumListing()}); err != nil {
		t.Fatalf("WriteListings error: %v", err)
	}
	store := openStore(t)

	cleaner := NewCleaner(
		config.PipelineConfig{Source: config.SourceFiles, InputGlob: filepath.Join(dir, "in", "*.json"), Workers: 1},
		config.OutputConfig{Dir: filepath.Join(dir, "out"), CSV: true, XLSX: true},
		nil,
		store,
	)

	result, err := cleaner.Run(ctx)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(result.Products) != 2 || len(result.Comparisons) != 1 {
		t.Fatalf("want 2 products and 1 comparison, got %d and %d", len(result.Products), len(result.Comparisons))
	}

	stored, err := store.ListAggregates(ctx)
	if err != nil {
		t.Fatalf("ListAggregates error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("want 2 stored aggregates, got %d", len(stored))
	}

	for _, name := range []string{ioformats.AggregatesFile, ioformats.ComparisonsFile, ioformats.WorkbookFile} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Fatalf("want %s written: %v", name, err)
		}
	}
}

func TestCleaner_DatabaseSource(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	listing := serumListing()
	if err := store.SaveListing(ctx, &listing); err != nil {
		t.Fatalf("SaveListing error: %v", err)
	}

	cleaner := NewCleaner(
		config.PipelineConfig{Source: config.SourceDatabase},
		config.OutputConfig{Dir: t.TempDir()},
		store,
		store,
	)

	result, err := cleaner.Run(ctx)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Stats.Listings != 1 {
		t.Fatalf("want 1 listing, got %d", result.Stats.Listings)
	}

	pairs, err := store.ListComparisons(ctx)
	if err != nil {
		t.Fatalf("ListComparisons error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("want 1 stored comparison, got %d", len(pairs))
	}
}

func TestCleaner_NoInput(t *testing.T) {
	cleaner := NewCleaner(
		config.PipelineConfig{Source: config.SourceFiles, InputGlob: filepath.Join(t.TempDir(), "*.json")},
		config.OutputConfig{},
		nil,
		nil,
	)
	if _, err := cleaner.Run(context.Background()); !errors.Is(err, ioformats.ErrNoFiles) {
		t.Fatalf("want ErrNoFiles, got %v", err)
	}
}
