package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"unitprice/pipeline/internal/config"
	"unitprice/pipeline/internal/domain"
	"unitprice/pipeline/internal/ioformats"
	"unitprice/pipeline/internal/observability"
	"unitprice/pipeline/internal/pipeline"
	"unitprice/pipeline/internal/repository"
)

// Cleaner runs the size pipeline over the scraped listings and publishes its tables.
type Cleaner struct {
	pipelineCfg config.PipelineConfig
	outputCfg   config.OutputConfig
	listings    repository.ListingRepository
	aggregates  repository.AggregateRepository
}

// NewCleaner creates a Cleaner. aggregates may be nil to only export files.
func NewCleaner(
	pipelineCfg config.PipelineConfig,
	outputCfg config.OutputConfig,
	listings repository.ListingRepository,
	aggregates repository.AggregateRepository,
) *Cleaner {
	return &Cleaner{
		pipelineCfg: pipelineCfg,
		outputCfg:   outputCfg,
		listings:    listings,
		aggregates:  aggregates,
	}
}

// Run executes one cleaning run.
func (c *Cleaner) Run(ctx context.Context) (*pipeline.Result, error) {
	timer := prometheus.NewTimer(observability.PipelineDuration)
	defer timer.ObserveDuration()

	listings, err := c.loadListings(ctx)
	if err != nil {
		return nil, err
	}

	result, err := pipeline.Run(ctx, listings, pipeline.Options{
		ExcludedCategories: c.pipelineCfg.ExcludedCategories,
		Workers:            c.pipelineCfg.Workers,
		ChunkSize:          c.pipelineCfg.ChunkSize,
	})
	if err != nil {
		return nil, err
	}
	recordStats(result.Stats)

	if c.aggregates != nil {
		if err := c.aggregates.ReplaceAggregates(ctx, result.RunID, result.Products, result.Comparisons); err != nil {
			return nil, fmt.Errorf("failed to store run %s: %w", result.RunID, err)
		}
	}

	if err := c.export(result); err != nil {
		return nil, err
	}

	return result, nil
}

// RunEvery repeats Run until ctx is cancelled. Runs without input are skipped.
func (c *Cleaner) RunEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Run(ctx); err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, pipeline.ErrNoInput), errors.Is(err, ioformats.ErrNoFiles):
				log.Infof("⏳ Nothing to clean yet, next run in %v", interval)
			default:
				log.Errorf("❌ Cleaning run failed: %v", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Cleaner) loadListings(ctx context.Context) ([]domain.ProductListing, error) {
	switch c.pipelineCfg.Source {
	case config.SourceDatabase:
		if c.listings == nil {
			return nil, errors.New("no listing repository configured")
		}
		listings, err := c.listings.ListListings(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load listings: %w", err)
		}
		log.Infof("📥 Loaded %d listings from the database", len(listings))
		return listings, nil
	default:
		listings, err := ioformats.ReadListings(c.pipelineCfg.InputGlob)
		if err != nil {
			return nil, fmt.Errorf("failed to load listings: %w", err)
		}
		log.Infof("📥 Loaded %d listings from %s", len(listings), c.pipelineCfg.InputGlob)
		return listings, nil
	}
}

func (c *Cleaner) export(result *pipeline.Result) error {
	dir := c.outputCfg.Dir

	if c.outputCfg.CSV {
		if err := ioformats.WriteAggregatesCSV(filepath.Join(dir, ioformats.AggregatesFile), result.Products); err != nil {
			return fmt.Errorf("failed to write aggregates: %w", err)
		}
		if err := ioformats.WriteComparisonsCSV(filepath.Join(dir, ioformats.ComparisonsFile), result.Comparisons); err != nil {
			return fmt.Errorf("failed to write comparisons: %w", err)
		}
		log.Infof("💾 Wrote CSV tables to %s", dir)
	}

	if c.outputCfg.XLSX {
		if err := ioformats.WriteXLSX(filepath.Join(dir, ioformats.WorkbookFile), result.Products, result.Comparisons); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		log.Infof("💾 Wrote workbook to %s", dir)
	}

	return nil
}

func recordStats(stats *pipeline.Stats) {
	observability.RowsParsed.Add(float64(stats.Parsed))
	for reason, n := range stats.Dropped {
		observability.RowsDropped.WithLabelValues(reason).Add(float64(n))
	}
	observability.AggregatesWritten.Add(float64(stats.Aggregates))
	observability.ComparisonsWritten.Add(float64(stats.Comparisons))
}
