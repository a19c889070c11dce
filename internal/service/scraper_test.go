package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"unitprice/pipeline/internal/client"
	"unitprice/pipeline/internal/domain"
	"unitprice/pipeline/internal/domain/task"
)

type fakeQueue struct {
	mu    sync.Mutex
	added []task.Task
	acked []string
}

func (q *fakeQueue) AddTask(ctx context.Context, t task.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.added = append(q.added, t)
	return "1-0", nil
}

func (q *fakeQueue) GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error) {
	return nil, nil
}

func (q *fakeQueue) AckTask(ctx context.Context, stream, group, msgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, stream+"/"+msgID)
	return nil
}

func (q *fakeQueue) CreateGroup(ctx context.Context, stream, group string) error { return nil }

func (q *fakeQueue) AutoClaim(ctx context.Context, group, consumer, stream string, minIdleTime time.Duration) ([]redis.XMessage, error) {
	return nil, nil
}

func (q *fakeQueue) EnsureStreamsExist(ctx context.Context) error { return nil }

func (q *fakeQueue) StreamName(taskType string) string { return "test:" + taskType }

func (q *fakeQueue) Pending(ctx context.Context) (int64, error) { return 0, nil }

type fakeClient struct {
	brands     []domain.Brand
	products   map[string][]string
	listings   map[string]*domain.ProductListing
	productErr error
}

func (c *fakeClient) GetBrands(ctx context.Context) ([]domain.Brand, error) {
	return c.brands, nil
}

func (c *fakeClient) GetBrandProductURLs(ctx context.Context, brandURL string) ([]string, error) {
	urls, ok := c.products[brandURL]
	if !ok {
		return nil, errors.New("brand page failed")
	}
	return urls, nil
}

func (c *fakeClient) GetProduct(ctx context.Context, productURL string) (*domain.ProductListing, error) {
	if c.productErr != nil {
		return nil, c.productErr
	}
	listing, ok := c.listings[productURL]
	if !ok {
		return nil, errors.New("product page failed")
	}
	return listing, nil
}

type fakeState struct {
	lastBrand int
	seen      map[string]bool
}

func newFakeState() *fakeState {
	return &fakeState{lastBrand: -1, seen: make(map[string]bool)}
}

func (s *fakeState) GetLastBrandIndex(ctx context.Context) (int, error) { return s.lastBrand, nil }

func (s *fakeState) SetLastBrandIndex(ctx context.Context, index int) error {
	s.lastBrand = index
	return nil
}

func (s *fakeState) MarkProductSeen(ctx context.Context, productURL string) (bool, error) {
	if s.seen[productURL] {
		return false, nil
	}
	s.seen[productURL] = true
	return true, nil
}

func (s *fakeState) Reset(ctx context.Context) error {
	s.lastBrand = -1
	s.seen = make(map[string]bool)
	return nil
}

type fakeListings struct {
	saved []*domain.ProductListing
}

func (r *fakeListings) SaveListing(ctx context.Context, listing *domain.ProductListing) error {
	r.saved = append(r.saved, listing)
	return nil
}

func (r *fakeListings) ListListings(ctx context.Context) ([]domain.ProductListing, error) {
	out := make([]domain.ProductListing, 0, len(r.saved))
	for _, l := range r.saved {
		out = append(out, *l)
	}
	return out, nil
}

func message(t *testing.T, tk task.Task) redis.XMessage {
	t.Helper()
	data, err := tk.TaskValue()
	if err != nil {
		t.Fatalf("TaskValue error: %v", err)
	}
	return redis.XMessage{
		ID: "7-0",
		Values: map[string]any{
			"task_type": tk.TaskType(),
			"task_data": string(data),
		},
	}
}

func TestScrapeAll_ResumesAfterLastBrand(t *testing.T) {
	q := &fakeQueue{}
	st := newFakeState()
	st.lastBrand = 0
	c := &fakeClient{brands: []domain.Brand{
		{Name: "A", URL: "/brand/a"},
		{Name: "B", URL: "/brand/b"},
		{Name: "C", URL: "/brand/c"},
	}}
	s := NewScraper(&fakeListings{}, c, q, st, 1, 2, "group", 1)

	if err := s.ScrapeAll(context.Background()); err != nil {
		t.Fatalf("ScrapeAll error: %v", err)
	}
	if len(q.added) != 2 {
		t.Fatalf("want 2 queued brands, got %d", len(q.added))
	}
	first := q.added[0].(*task.BrandPageTask)
	if first.BrandName != "B" || first.Index != 1 {
		t.Fatalf("want brand B at index 1, got %+v", first)
	}
	if st.lastBrand != 2 {
		t.Fatalf("want progress at 2, got %d", st.lastBrand)
	}
}

func TestProcessMessage_BrandPageQueuesNewProducts(t *testing.T) {
	q := &fakeQueue{}
	st := newFakeState()
	st.seen["/product/old-P1"] = true
	c := &fakeClient{products: map[string][]string{
		"/brand/a": {"/product/old-P1", "/product/new-P2"},
	}}
	s := NewScraper(&fakeListings{}, c, q, st, 1, 2, "group", 1)

	err := s.processMessage(context.Background(), message(t, &task.BrandPageTask{BrandName: "A", BrandURL: "/brand/a"}))
	if err != nil {
		t.Fatalf("processMessage error: %v", err)
	}
	if len(q.added) != 1 {
		t.Fatalf("want 1 queued product, got %d", len(q.added))
	}
	if got := q.added[0].(*task.ProductPageTask); got.ProductURL != "/product/new-P2" || got.BrandName != "A" {
		t.Fatalf("unexpected product task %+v", got)
	}
	if len(q.acked) != 1 || q.acked[0] != "test:BrandPageTask/7-0" {
		t.Fatalf("want brand message acked, got %v", q.acked)
	}
}

func TestProcessMessage_BrandPageRetriesThenGivesUp(t *testing.T) {
	q := &fakeQueue{}
	s := NewScraper(&fakeListings{}, &fakeClient{}, q, newFakeState(), 1, 1, "group", 1)

	err := s.processMessage(context.Background(), message(t, &task.BrandPageTask{BrandName: "A", BrandURL: "/brand/a"}))
	if err != nil {
		t.Fatalf("processMessage error: %v", err)
	}
	if len(q.added) != 1 || q.added[0].(*task.BrandPageTask).RetryCount != 1 {
		t.Fatalf("want one requeued brand task, got %v", q.added)
	}

	err = s.processMessage(context.Background(), message(t, &task.BrandPageTask{BrandName: "A", BrandURL: "/brand/a", RetryCount: 1}))
	if err != nil {
		t.Fatalf("processMessage error: %v", err)
	}
	if len(q.added) != 1 {
		t.Fatalf("want no further retries, got %d tasks", len(q.added))
	}
	if len(q.acked) != 2 {
		t.Fatalf("want both messages acked, got %v", q.acked)
	}
}

func TestProcessMessage_ProductSaved(t *testing.T) {
	q := &fakeQueue{}
	repo := &fakeListings{}
	c := &fakeClient{listings: map[string]*domain.ProductListing{
		"/product/a-P1": {URL: "https://store.test/product/a-P1", ProductName: "Serum"},
	}}
	s := NewScraper(repo, c, q, newFakeState(), 1, 2, "group", 1)

	err := s.processMessage(context.Background(), message(t, &task.ProductPageTask{BrandName: "Brand A", ProductURL: "/product/a-P1"}))
	if err != nil {
		t.Fatalf("processMessage error: %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("want 1 saved listing, got %d", len(repo.saved))
	}
	if repo.saved[0].BrandName != "Brand A" {
		t.Fatalf("want brand filled from task, got %q", repo.saved[0].BrandName)
	}
	if len(q.added) != 0 {
		t.Fatalf("want no retry tasks, got %d", len(q.added))
	}
}

func TestProcessMessage_ProductFailureGoesToRetry(t *testing.T) {
	q := &fakeQueue{}
	s := NewScraper(&fakeListings{}, &fakeClient{}, q, newFakeState(), 1, 2, "group", 1)

	err := s.processMessage(context.Background(), message(t, &task.ProductPageTask{BrandName: "A", ProductURL: "/product/x-P9"}))
	if err != nil {
		t.Fatalf("processMessage error: %v", err)
	}
	if len(q.added) != 1 {
		t.Fatalf("want 1 retry task, got %d", len(q.added))
	}
	retry := q.added[0].(*task.ProductRetryTask)
	if retry.FailureStage != stageFetch || retry.RetryCount != 0 || retry.Error == "" {
		t.Fatalf("unexpected retry task %+v", retry)
	}
}

func TestProcessMessage_RetryLimit(t *testing.T) {
	q := &fakeQueue{}
	s := NewScraper(&fakeListings{}, &fakeClient{}, q, newFakeState(), 1, 2, "group", 1)

	err := s.processMessage(context.Background(), message(t, &task.ProductRetryTask{ProductURL: "/product/x-P9", RetryCount: 1}))
	if err != nil {
		t.Fatalf("processMessage error: %v", err)
	}
	if len(q.added) != 1 || q.added[0].(*task.ProductRetryTask).RetryCount != 2 {
		t.Fatalf("want retry with count 2, got %v", q.added)
	}

	err = s.processMessage(context.Background(), message(t, &task.ProductRetryTask{ProductURL: "/product/x-P9", RetryCount: 2}))
	if err != nil {
		t.Fatalf("processMessage error: %v", err)
	}
	if len(q.added) != 1 {
		t.Fatalf("want retries to stop at the limit, got %d tasks", len(q.added))
	}
}

func TestProcessMessage_CircuitOpenLeavesPending(t *testing.T) {
	q := &fakeQueue{}
	c := &fakeClient{productErr: client.ErrCircuitOpen}
	s := NewScraper(&fakeListings{}, c, q, newFakeState(), 1, 2, "group", 1)

	err := s.processMessage(context.Background(), message(t, &task.ProductPageTask{ProductURL: "/product/x-P9"}))
	if !errors.Is(err, client.ErrCircuitOpen) {
		t.Fatalf("want ErrCircuitOpen, got %v", err)
	}
	if len(q.acked) != 0 || len(q.added) != 0 {
		t.Fatalf("want message left pending, got acked %v added %v", q.acked, q.added)
	}
}

func TestProcessMessage_UnknownTask(t *testing.T) {
	s := NewScraper(&fakeListings{}, &fakeClient{}, &fakeQueue{}, newFakeState(), 1, 2, "group", 1)
	msg := redis.XMessage{ID: "1-0", Values: map[string]any{"task_type": "Other", "task_data": "{}"}}
	if err := s.processMessage(context.Background(), msg); err == nil {
		t.Fatal("want error for unknown task type")
	}
}
