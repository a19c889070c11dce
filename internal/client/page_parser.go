package client

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"unitprice/pipeline/internal/domain"
)

// Headlines the store shows instead of a product.
var unavailableHeadlines = []string{
	"Sorry, this product is not available.",
	"Sorry! The page you’re looking for cannot be found.",
	"Search Results",
}

type pageParser struct {
	baseURL *url.URL
}

func newPageParser(baseURL string) (*pageParser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	return &pageParser{
		baseURL: u,
	}, nil
}

// resolve turns a site-relative link into an absolute URL.
func (p *pageParser) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return p.baseURL.ResolveReference(u).String()
}

func (p *pageParser) ParseBrandList(html string) ([]domain.Brand, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var brands []domain.Brand
	doc.Find(`a[data-at="brand_link"]`).Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		name := strings.TrimSpace(s.Find("span").First().Text())
		if name == "" {
			name = strings.TrimSpace(s.Text())
		}
		brands = append(brands, domain.Brand{
			Name: name,
			URL:  href,
		})
	})

	return brands, nil
}

// ParseBrandProducts returns the distinct product links of a brand grid, without query strings.
func (p *pageParser) ParseBrandProducts(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]struct{})
	var urls []string
	doc.Find(`a[href*="/product/"]`).Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			log.Debugf("Skipping malformed product link %q: %v", href, err)
			return
		}
		u.RawQuery = ""
		u.Fragment = ""
		link := u.String()
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		urls = append(urls, link)
	})

	return urls, nil
}

func (p *pageParser) ParseProduct(html, productURL string) (*domain.ProductListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	listing := &domain.ProductListing{
		URL: productURL,
	}

	h1 := strings.TrimSpace(doc.Find("h1").First().Text())
	if slices.Contains(unavailableHeadlines, h1) {
		listing.Error = domain.ErrorProductNotAvailable
		return listing, nil
	}

	listing.ProductName = text(doc.Find(`span[data-at="product_name"]`))
	listing.BrandName = text(doc.Find(`a[data-at="brand_name"]`))
	listing.Ingredients = text(doc.Find("#ingredients"))
	listing.Loves = text(doc.Find(`div[data-comp~="LovesCount"] span`))
	listing.Rating, listing.ProductReviews = p.extractRating(doc)
	listing.Categories = p.extractCategories(doc)
	listing.Options = p.extractOptions(doc)

	if listing.ProductName == "" {
		log.Debugf("No product name found on %s", productURL)
	}

	return listing, nil
}

func (p *pageParser) extractRating(doc *goquery.Document) (rating, reviews string) {
	container := doc.Find(`a[href="#ratings-reviews-container"]`).First()
	if container.Length() == 0 {
		return "", ""
	}

	rating, _ = container.Find(`span[data-at="star_rating_style"]`).Attr("style")
	if fields := strings.Fields(container.Text()); len(fields) > 0 {
		reviews = fields[0]
	}
	return strings.TrimSpace(rating), reviews
}

func (p *pageParser) extractCategories(doc *goquery.Document) []string {
	var categories []string
	doc.Find(`nav[data-comp~="ProductBreadCrumbs"] li`).Each(func(i int, s *goquery.Selection) {
		if c := strings.TrimSpace(s.Text()); c != "" {
			categories = append(categories, c)
		}
	})
	return categories
}

// extractOptions reads one option per swatch button. Pages without swatches
// have a single option described by the page-level labels.
func (p *pageParser) extractOptions(doc *goquery.Document) []domain.ProductOption {
	flag := text(doc.Find(`span[data-at="product_flag_label"]`))
	page := doc.Selection

	var options []domain.ProductOption
	doc.Find(`div[data-comp~="SwatchGroup"]`).Each(func(i int, group *goquery.Selection) {
		label := text(group.Find("p"))
		group.Find("button").Each(func(j int, button *goquery.Selection) {
			option := optionFrom(button, page)
			option.SwatchGroup = label
			option.FlagLabel = flag
			options = append(options, option)
		})
	})

	if len(options) == 0 {
		option := optionFrom(page, page)
		if len(option.Price) > 0 || len(option.Size) > 0 {
			option.FlagLabel = flag
			options = append(options, option)
		}
	}
	return options
}

// optionFrom reads the variant labels inside scope, falling back to the page.
func optionFrom(scope, page *goquery.Selection) domain.ProductOption {
	find := func(selector string) *goquery.Selection {
		if s := scope.Find(selector); s.Length() > 0 {
			return s
		}
		return page.Find(selector)
	}

	var option domain.ProductOption
	if size := text(find(`span[data-at="sku_size_label"]`)); size != "" {
		option.Size = domain.TextOrList{size}
	}
	find(`div[data-at="sku_name_label"] span`).Each(func(i int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			option.Name = append(option.Name, name)
		}
	})
	find(`p[data-comp~="Price"] b`).Each(func(i int, s *goquery.Selection) {
		if price := strings.TrimSpace(s.Text()); price != "" {
			option.Price = append(option.Price, price)
		}
	})
	option.SKU = text(find(`p[data-at="item_sku"]`))
	return option
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.First().Text())
}
