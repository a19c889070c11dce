package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"unitprice/pipeline/internal/aggregate"
	"unitprice/pipeline/internal/domain"
)

const defaultCheaperLimit = 10

var errInvalidMaxPrice = errors.New("max_price must be a non-negative number")

// Source supplies the tables of the latest pipeline run.
type Source interface {
	ListAggregates(ctx context.Context) ([]domain.AggregatedProduct, error)
	ListComparisons(ctx context.Context) ([]domain.ComparisonPair, error)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ProductView is an aggregated product with display conversions.
type ProductView struct {
	domain.AggregatedProduct
	AmountBBase *float64             `json:"amount_b_base"`
	UnitBBase   domain.SecondaryUnit `json:"unit_b_base"`
	AmountMl    *float64             `json:"amount_ml"`
}

func newProductView(p domain.AggregatedProduct) ProductView {
	base, unit := p.AmountBBase()
	return ProductView{
		AggregatedProduct: p,
		AmountBBase:       base,
		UnitBBase:         unit,
		AmountMl:          p.Milliliters(),
	}
}

func newProductViews(products []domain.AggregatedProduct) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	return views
}

// Handler exposes the dashboard queries over HTTP.
type Handler struct {
	source Source
}

func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// RegisterRoutes wires the dashboard routes onto mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /products", h.handleListProducts)
	mux.HandleFunc("GET /products/{id}", h.handleGetProduct)
	mux.HandleFunc("GET /products/{id}/comparison", h.handleGetComparison)
	mux.HandleFunc("GET /products/{id}/cheaper", h.handleCheaper)
	mux.HandleFunc("GET /comparisons", h.handleListComparisons)
	mux.HandleFunc("GET /brands", h.handleBrands)
	mux.HandleFunc("GET /categories", h.handleCategories)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleListProducts implements GET /products?category=&brand=&max_price=&sort=
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	products, ok := h.products(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, newProductViews(aggregate.Filter(products, q)))
}

// handleGetProduct returns every variant of one product.
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	products, ok := h.products(w, r)
	if !ok {
		return
	}

	variants := aggregate.Variants(products, r.PathValue("id"))
	if len(variants) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}

	writeJSON(w, http.StatusOK, newProductViews(variants))
}

func (h *Handler) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.source.ListComparisons(r.Context())
	if err != nil {
		h.internalError(w, "comparisons", err)
		return
	}

	pair, ok := aggregate.ComparisonFor(pairs, r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no comparison available")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// handleCheaper implements GET /products/{id}/cheaper?swatch_group=&limit=
// The reference variant is the requested swatch group, else the standard size,
// else the smallest variant.
func (h *Handler) handleCheaper(w http.ResponseWriter, r *http.Request) {
	limit := defaultCheaperLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	products, ok := h.products(w, r)
	if !ok {
		return
	}

	variants := aggregate.Variants(products, r.PathValue("id"))
	if len(variants) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}

	target, ok := pickVariant(variants, strings.ToLower(r.URL.Query().Get("swatch_group")))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "swatch group not found")
		return
	}

	cheaper := aggregate.CheaperInCategory(products, target)
	if len(cheaper) > limit {
		cheaper = cheaper[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"product":  newProductView(target),
		"category": target.Lvl2Cat,
		"cheaper":  newProductViews(cheaper),
	})
}

func (h *Handler) handleListComparisons(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.source.ListComparisons(r.Context())
	if err != nil {
		h.internalError(w, "comparisons", err)
		return
	}
	if pairs == nil {
		pairs = []domain.ComparisonPair{}
	}
	writeJSON(w, http.StatusOK, pairs)
}

// handleBrands implements GET /brands?category=
func (h *Handler) handleBrands(w http.ResponseWriter, r *http.Request) {
	products, ok := h.products(w, r)
	if !ok {
		return
	}

	brands := aggregate.BrandsInCategory(products, r.URL.Query().Get("category"))
	if brands == nil {
		brands = []string{}
	}
	writeJSON(w, http.StatusOK, brands)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	products, ok := h.products(w, r)
	if !ok {
		return
	}

	categories := aggregate.Categories(products)
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) products(w http.ResponseWriter, r *http.Request) ([]domain.AggregatedProduct, bool) {
	products, err := h.source.ListAggregates(r.Context())
	if err != nil {
		h.internalError(w, "products", err)
		return nil, false
	}
	return products, true
}

func (h *Handler) internalError(w http.ResponseWriter, what string, err error) {
	log.Errorf("❌ Failed to load %s: %v", what, err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to load "+what)
}

func parseQuery(r *http.Request) (aggregate.Query, error) {
	values := r.URL.Query()

	mode, err := domain.ParseSortMode(values.Get("sort"))
	if err != nil {
		return aggregate.Query{}, err
	}

	q := aggregate.Query{
		Category: values.Get("category"),
		Brand:    values.Get("brand"),
		Sort:     mode,
	}

	if raw := values.Get("max_price"); raw != "" {
		maxPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil || maxPrice < 0 {
			return aggregate.Query{}, errInvalidMaxPrice
		}
		q.MaxPrice = &maxPrice
	}

	return q, nil
}

func pickVariant(variants []domain.AggregatedProduct, swatchGroup string) (domain.AggregatedProduct, bool) {
	if swatchGroup != "" {
		for _, v := range variants {
			if v.SwatchGroup == swatchGroup {
				return v, true
			}
		}
		return domain.AggregatedProduct{}, false
	}

	for _, v := range variants {
		if v.SwatchGroup == domain.SwatchGroupStandard {
			return v, true
		}
	}
	return variants[0], true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
