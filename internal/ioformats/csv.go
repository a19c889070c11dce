package ioformats

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"unitprice/pipeline/internal/domain"
)

// Default export file names.
const (
	AggregatesFile  = "agg_prod_data.csv"
	ComparisonsFile = "compare_prod_data.csv"
	WorkbookFile    = "prod_data.xlsx"
)

// WriteAggregatesCSV writes the aggregated product table.
func WriteAggregatesCSV(path string, products []domain.AggregatedProduct) error {
	return writeCSVFile(path, func(w io.Writer) error {
		return writeTable(w, aggregateColumns, products)
	})
}

// WriteComparisonsCSV writes one row per mini/standard pair.
func WriteComparisonsCSV(path string, pairs []domain.ComparisonPair) error {
	return writeCSVFile(path, func(w io.Writer) error {
		return writeTable(w, comparisonColumns, pairs)
	})
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTable[T any](w io.Writer, cols []column[T], rows []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(cols)); err != nil {
		return err
	}
	rec := make([]string, len(cols))
	for _, row := range rows {
		for i, v := range values(cols, row) {
			rec[i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
