package domain

import (
	"encoding/json"
	"fmt"
)

// TextOrList holds a scraped field that is sometimes a string and sometimes
// a list of strings. Only the first element carries sizing data.
type TextOrList []string

func (t *TextOrList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TextOrList{s}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*t = list
	return nil
}

// First returns the first element or "" when empty.
func (t TextOrList) First() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// ProductOption is one clickable size/colour variant on a product page.
type ProductOption struct {
	SwatchGroup string     `json:"swatch_group"`
	FlagLabel   string     `json:"flag_label,omitempty"`
	Size        TextOrList `json:"size"`
	Name        TextOrList `json:"name"`
	Price       []string   `json:"price"` // sale price first when two are shown
	SKU         string     `json:"sku"`
}

// ProductListing is a scraped product page with all of its options.
type ProductListing struct {
	URL             string          `json:"url"`
	Error           string          `json:"error"`
	ScrapeTimestamp string          `json:"scrape_timestamp,omitempty"`
	ProductName     string          `json:"product_name"`
	BrandName       string          `json:"brand_name"`
	Options         []ProductOption `json:"options"`
	Rating          string          `json:"rating"`          // e.g. "width:80.00%"
	ProductReviews  string          `json:"product_reviews"` // e.g. "1.2K"
	Ingredients     string          `json:"ingredients,omitempty"`
	Loves           string          `json:"n_loves"` // e.g. "3.2M"
	Categories      []string        `json:"categories"`
}

// ErrorProductNotAvailable marks listings whose page no longer shows a product.
const ErrorProductNotAvailable = "Product not available"

// Brand is an entry of the store's brand list.
type Brand struct {
	Name string `json:"brand_name"`
	URL  string `json:"brand_url"`
}
