package pipeline

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"unitprice/pipeline/internal/domain"
	"unitprice/pipeline/internal/normalize"
)

// Reasons a listing or option never reaches the size parser.
const (
	DropUnavailable       = "unavailable"
	DropMissingBrand      = "missing_brand"
	DropMissingPrice      = "missing_price"
	DropBadPrice          = "bad_price"
	DropExcludedCategory  = "excluded_category"
	DropMissingProductID  = "missing_product_id"
	DropMissingSizeOrName = "missing_size_and_name"
	DropDuplicate         = "duplicate"
)

// DefaultExcludedCategories are lvl_1 categories with nothing to measure.
var DefaultExcludedCategories = []string{
	"Accessories",
	"Value & Gift Sets",
	"Beauty Tools",
	"High Tech Tools",
	"Wellness",
	"Hair Tools",
	"Tools",
	"Brushes & Applicators",
	"Other Needs",
}

const (
	productIDMarker = "-P"
	swatchSeparator = " - "
	categoryLevels  = 3
)

// Prepare expands scraped listings into one record per option and cleans
// the fields the size parser and aggregator rely on.
func Prepare(listings []domain.ProductListing, excludedCategories []string, stats *Stats) []domain.RawProductRecord {
	excluded := make(map[string]struct{}, len(excludedCategories))
	for _, c := range excludedCategories {
		excluded[c] = struct{}{}
	}

	var records []domain.RawProductRecord
	internalID := 0
	for _, listing := range listings {
		if !available(listing) {
			stats.drop(DropUnavailable)
			continue
		}
		if listing.BrandName == "" {
			stats.drop(DropMissingBrand)
			continue
		}
		listingID := internalID
		internalID++

		if len(listing.Options) == 0 {
			stats.drop(DropMissingPrice)
			continue
		}

		for _, option := range listing.Options {
			record, reason := prepareOption(listing, listingID, option, excluded)
			if reason != "" {
				stats.drop(reason)
				continue
			}
			records = append(records, record)
		}
	}

	records = dedupeRecords(records, stats)

	for i := range records {
		fillSizeFromName(&records[i])
		splitSwatchGroup(&records[i])
	}
	return records
}

func available(listing domain.ProductListing) bool {
	return listing.ProductName != "" &&
		len(listing.Categories) > 0 &&
		listing.Error != domain.ErrorProductNotAvailable
}

func prepareOption(listing domain.ProductListing, listingID int, option domain.ProductOption, excluded map[string]struct{}) (domain.RawProductRecord, string) {
	if len(option.Price) == 0 {
		return domain.RawProductRecord{}, DropMissingPrice
	}

	sale, full := normalize.SplitSaleAndFullPrice(option.Price)
	price, ok := normalize.ParsePrice(sale)
	if !ok {
		return domain.RawProductRecord{}, DropBadPrice
	}
	fullPrice, ok := normalize.ParsePrice(full)
	if !ok {
		return domain.RawProductRecord{}, DropBadPrice
	}

	categories := categoryLevelsOf(listing.Categories)
	if _, skip := excluded[categories[1]]; skip {
		return domain.RawProductRecord{}, DropExcludedCategory
	}

	productID, ok := ProductIDFromURL(listing.URL)
	if !ok {
		return domain.RawProductRecord{}, DropMissingProductID
	}

	size, _ := normalize.CleanDetail(option.Size)
	name, _ := normalize.CleanDetail(option.Name)
	if size == "" && name == "" {
		return domain.RawProductRecord{}, DropMissingSizeOrName
	}

	sku, _ := normalize.StripNonNumeric(option.SKU)

	return domain.RawProductRecord{
		InternalProductID: listingID,
		ProductID:         productID,
		URL:               listing.URL,
		BrandName:         listing.BrandName,
		ProductName:       listing.ProductName,
		SwatchGroup:       strings.ToLower(option.SwatchGroup),
		Name:              name,
		Size:              size,
		Price:             price,
		FullPrice:         fullPrice,
		Rating:            rating(listing),
		Reviews:           count(listing.ProductReviews),
		Loves:             count(listing.Loves),
		Categories:        categories,
		SKU:               sku,
	}, ""
}

func rating(listing domain.ProductListing) *float64 {
	r, ok := normalize.ParseRatingFromStyleWidth(listing.Rating)
	if !ok {
		return nil
	}
	if normalize.RatingOutOfRange(r) {
		log.Debugf("⚠️ Rating %.2f out of range for %s (bar %q)", r, listing.URL, listing.Rating)
	}
	return &r
}

func count(text string) *float64 {
	v, ok := normalize.ParseShorthandCount(text)
	if !ok {
		return nil
	}
	return &v
}

// categoryLevelsOf takes the first three breadcrumb levels. A missing level
// repeats the one above it.
func categoryLevelsOf(breadcrumbs []string) [categoryLevels]string {
	var levels [categoryLevels]string
	for i := 0; i < categoryLevels && i < len(breadcrumbs); i++ {
		levels[i] = strings.TrimSpace(breadcrumbs[i])
	}
	for i := 1; i < categoryLevels; i++ {
		if levels[i] == "" {
			levels[i] = levels[i-1]
		}
	}
	return levels
}

// ProductIDFromURL returns the id after the last "-P" of a product URL,
// without any query string: ".../foundation-P12345?skuId=1" -> "12345".
func ProductIDFromURL(url string) (string, bool) {
	i := strings.LastIndex(url, productIDMarker)
	if i < 0 {
		return "", false
	}
	id := url[i+len(productIDMarker):]
	if q := strings.IndexAny(id, "?#"); q >= 0 {
		id = id[:q]
	}
	id = strings.Trim(id, "/ ")
	if id == "" {
		return "", false
	}
	return id, true
}

type recordKey struct {
	text  [7]string
	price float64
}

// dedupeRecords drops repeated options keeping the last observation.
func dedupeRecords(records []domain.RawProductRecord, stats *Stats) []domain.RawProductRecord {
	keyOf := func(r domain.RawProductRecord) recordKey {
		return recordKey{
			text:  [7]string{r.BrandName, r.ProductName, r.URL, r.SwatchGroup, r.Size, r.Name, r.SKU},
			price: r.Price,
		}
	}

	last := make(map[recordKey]int, len(records))
	for i, r := range records {
		last[keyOf(r)] = i
	}

	out := make([]domain.RawProductRecord, 0, len(last))
	for i, r := range records {
		if last[keyOf(r)] != i {
			stats.drop(DropDuplicate)
			continue
		}
		out = append(out, r)
	}
	return out
}

// fillSizeFromName uses the variant name when no size was shown. The name is
// cleared once it is the size.
func fillSizeFromName(r *domain.RawProductRecord) {
	if r.Size == "" {
		r.Size = r.Name
	}
	if r.Size == r.Name {
		r.Name = ""
	}
}

// splitSwatchGroup turns "travel size - mini size" into details "travel size"
// and group "mini size".
func splitSwatchGroup(r *domain.RawProductRecord) {
	parts := strings.Split(r.SwatchGroup, swatchSeparator)
	if len(parts) < 2 {
		return
	}
	r.SwatchDetails = parts[0]
	r.SwatchGroup = parts[len(parts)-1]
}
