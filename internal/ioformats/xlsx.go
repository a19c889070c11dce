package ioformats

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"unitprice/pipeline/internal/domain"
)

const (
	productsSheet    = "products"
	comparisonsSheet = "comparisons"
)

// WriteXLSX writes both tables into one workbook, one sheet each.
func WriteXLSX(path string, products []domain.AggregatedProduct, pairs []domain.ComparisonPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", productsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(comparisonsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	if err := writeSheet(f, productsSheet, aggregateColumns, products); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", productsSheet, err)
	}
	if err := writeSheet(f, comparisonsSheet, comparisonColumns, pairs); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", comparisonsSheet, err)
	}

	return f.SaveAs(path)
}

func writeSheet[T any](f *excelize.File, sheet string, cols []column[T], rows []T) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	names := header(cols)
	head := make([]interface{}, len(names))
	for i, n := range names {
		head[i] = n
	}
	if err := sw.SetRow("A1", head); err != nil {
		return err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, values(cols, row)); err != nil {
			return err
		}
	}
	return sw.Flush()
}
