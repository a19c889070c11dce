package ioformats

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"unitprice/pipeline/internal/domain"
)

var ErrNoFiles = errors.New("no listing files matched")

// ReadListings loads every file matching pattern. A file holds either a JSON
// array of listings or one listing per line (NDJSON).
func ReadListings(pattern string) ([]domain.ProductListing, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to match %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, pattern)
	}
	sort.Strings(paths)

	var listings []domain.ProductListing
	for _, path := range paths {
		items, err := readListingFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		listings = append(listings, items...)
	}
	return listings, nil
}

func readListingFile(path string) ([]domain.ProductListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeListings(f)
}

// DecodeListings reads a JSON array or NDJSON stream of listings.
func DecodeListings(r io.Reader) ([]domain.ProductListing, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var listings []domain.ProductListing
		if err := json.NewDecoder(br).Decode(&listings); err != nil {
			return nil, err
		}
		return listings, nil
	}

	var listings []domain.ProductListing
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var listing domain.ProductListing
		if err := json.Unmarshal(raw, &listing); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		listings = append(listings, listing)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

// WriteListings writes listings as NDJSON, one file per scrape batch.
func WriteListings(path string, listings []domain.ProductListing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, l := range listings {
		if err := enc.Encode(l); err != nil {
			return err
		}
	}
	return w.Flush()
}
