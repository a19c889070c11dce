package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"unitprice/pipeline/internal/aggregate"
	"unitprice/pipeline/internal/domain"
	"unitprice/pipeline/internal/normalize"
)

var ErrNoInput = errors.New("no listings to process")

const defaultChunkSize = 512

// Options configures a pipeline run.
type Options struct {
	ExcludedCategories []string
	Workers            int // parse concurrency, defaults to GOMAXPROCS
	ChunkSize          int // records per parse task
}

// Stats counts what happened to the input of a run.
type Stats struct {
	mu sync.Mutex

	Listings    int
	Records     int
	Parsed      int
	Dropped     map[string]int
	Strategies  map[domain.ParseStrategy]int
	Aggregates  int
	Comparisons int
}

func newStats() *Stats {
	return &Stats{
		Dropped:    make(map[string]int),
		Strategies: make(map[domain.ParseStrategy]int),
	}
}

func (s *Stats) drop(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Dropped[reason]++
}

// DropReasons returns the recorded reasons in a stable order.
func (s *Stats) DropReasons() []string {
	reasons := make([]string, 0, len(s.Dropped))
	for r := range s.Dropped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	return reasons
}

// Result is the output table set of one run.
type Result struct {
	RunID       string
	Rows        []domain.ProductRow
	Products    []domain.AggregatedProduct
	Comparisons []domain.ComparisonPair
	Stats       *Stats
}

// Run prepares, parses and aggregates a batch of scraped listings. Parsing is
// spread over workers; grouping and ranking run once all rows are parsed.
func Run(ctx context.Context, listings []domain.ProductListing, opts Options) (*Result, error) {
	if len(listings) == 0 {
		return nil, ErrNoInput
	}

	start := time.Now()
	stats := newStats()
	stats.Listings = len(listings)

	excluded := opts.ExcludedCategories
	if excluded == nil {
		excluded = DefaultExcludedCategories
	}

	records := Prepare(listings, excluded, stats)
	stats.Records = len(records)
	log.Infof("🧹 Prepared %d records from %d listings", len(records), len(listings))

	rows, err := parseAll(ctx, records, opts, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sizes: %w", err)
	}
	stats.Parsed = len(rows)

	products := aggregate.Aggregate(rows)
	pairs := aggregate.ComparisonPairs(products)
	products = aggregate.AttachRatios(products, pairs)
	stats.Aggregates = len(products)
	stats.Comparisons = len(pairs)

	result := &Result{
		RunID:       uuid.NewString(),
		Rows:        rows,
		Products:    products,
		Comparisons: pairs,
		Stats:       stats,
	}

	log.Infof("✅ Run %s: %d rows parsed, %d products, %d comparisons in %v",
		result.RunID, len(rows), len(products), len(pairs), time.Since(start).Round(time.Millisecond))
	for _, reason := range stats.DropReasons() {
		log.Debugf("🗑️ Dropped %d for %s", stats.Dropped[reason], reason)
	}

	return result, nil
}

func parseAll(ctx context.Context, records []domain.RawProductRecord, opts Options, stats *Stats) ([]domain.ProductRow, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	parsed := make([]domain.ProductRow, len(records))
	reasons := make([]normalize.DropReason, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for lo := 0; lo < len(records); lo += chunkSize {
		hi := min(lo+chunkSize, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				parsed[i], reasons[i] = ParseRecord(records[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]domain.ProductRow, 0, len(records))
	for i, row := range parsed {
		if reasons[i] != normalize.DropNone {
			stats.drop(string(reasons[i]))
			continue
		}
		stats.Strategies[row.Parsed.Strategy]++
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseRecord runs one record through the size cleaner, parser and unit filter.
func ParseRecord(record domain.RawProductRecord) (domain.ProductRow, normalize.DropReason) {
	canonical, _ := normalize.CanonicalSize(record.Size)
	size, reason := normalize.FilterUnits(normalize.ParseSize(canonical))
	if reason != normalize.DropNone {
		return domain.ProductRow{}, reason
	}
	return domain.ProductRow{RawProductRecord: record, Parsed: size}, normalize.DropNone
}
