package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"unitprice/pipeline/internal/client"
	"unitprice/pipeline/internal/domain/task"
	"unitprice/pipeline/internal/observability"
	"unitprice/pipeline/internal/queue"
	"unitprice/pipeline/internal/repository"
	"unitprice/pipeline/internal/state"
)

const (
	stageFetch = "fetch"
	stageSave  = "save"
)

// Scraper walks the brand list and turns product pages into stored listings
// through the task streams.
type Scraper struct {
	repository   repository.ListingRepository
	client       client.StoreClient
	queue        queue.Queue
	stateManager state.StateManager
	saveInterval int
	maxRetries   int
	groupName    string
	minIdleTime  time.Duration
}

func NewScraper(
	repository repository.ListingRepository,
	client client.StoreClient,
	queue queue.Queue,
	stateManager state.StateManager,
	saveInterval int,
	maxRetries int,
	groupName string,
	minIdleTime int,
) *Scraper {
	return &Scraper{
		repository:   repository,
		client:       client,
		queue:        queue,
		stateManager: stateManager,
		saveInterval: max(1, saveInterval),
		maxRetries:   maxRetries,
		groupName:    groupName,
		minIdleTime:  time.Duration(max(1, minIdleTime)) * time.Second,
	}
}

// ScrapeAll queues one task per brand, continuing after the last brand queued
// by a previous run.
func (s *Scraper) ScrapeAll(ctx context.Context) error {
	brands, err := s.client.GetBrands(ctx)
	if err != nil {
		return fmt.Errorf("failed to get brands: %w", err)
	}

	last, err := s.stateManager.GetLastBrandIndex(ctx)
	if err != nil {
		return err
	}
	if last >= 0 {
		log.Infof("🔄 Continue after brand %d of %d", last+1, len(brands))
	}

	queued := 0
	for i, brand := range brands {
		if i <= last {
			continue
		}

		_, err := s.queue.AddTask(ctx, &task.BrandPageTask{
			BrandName: brand.Name,
			BrandURL:  brand.URL,
			Index:     i,
		})
		if err != nil {
			return fmt.Errorf("failed to queue brand %s: %w", brand.Name, err)
		}
		queued++

		if queued%s.saveInterval == 0 {
			if err := s.stateManager.SetLastBrandIndex(ctx, i); err != nil {
				log.Warnf("⚠️ Failed to save progress: %v", err)
			}
		}
	}

	if len(brands) > 0 {
		if err := s.stateManager.SetLastBrandIndex(ctx, len(brands)-1); err != nil {
			log.Warnf("⚠️ Failed to save progress: %v", err)
		}
	}

	log.Infof("✅ Queued %d of %d brands", queued, len(brands))
	return nil
}

// RunWorkers consumes every task stream until ctx is cancelled.
func (s *Scraper) RunWorkers(ctx context.Context, numWorkers int) error {
	numWorkers = max(1, numWorkers)

	var wg sync.WaitGroup
	s.runWorkersForStream(ctx, &wg, max(1, numWorkers/2), task.BrandPageTaskType, "brand")
	s.runWorkersForStream(ctx, &wg, numWorkers, task.ProductPageTaskType, "product")
	s.runWorkersForStream(ctx, &wg, max(1, numWorkers/2), task.ProductRetryTaskType, "retry")

	wg.Wait()
	return nil
}

func (s *Scraper) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, taskType, workerType string) {
	streamName := s.queue.StreamName(taskType)

	// Picks up messages left pending by consumers that died
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.minIdleTime)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s-%d", workerType, time.Now().UnixNano())
				claimedMessages, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				if len(claimedMessages) > 0 {
					log.Infof("🔄 Auto-claimed %d messages from %s stream", len(claimedMessages), workerType)
					for _, msg := range claimedMessages {
						if err := s.processMessage(ctx, msg); err != nil {
							log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}
	}()

	for i := range numWorkers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
				}

				msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
				if err != nil {
					if ctx.Err() == nil {
						log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
					}
					continue
				}

				if msg != nil {
					if err := s.processMessage(ctx, *msg); err != nil {
						log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
					}
				}
			}
		}(i + 1)
	}
}

// processMessage runs one task and acknowledges it. Failures are turned into
// retry tasks; an error leaves the message pending.
func (s *Scraper) processMessage(ctx context.Context, msg redis.XMessage) error {
	taskType, data, err := queue.TaskData(msg)
	if err != nil {
		return err
	}

	switch taskType {
	case task.BrandPageTaskType:
		brandTask, err := task.UnmarshalTask[*task.BrandPageTask](data)
		if err != nil {
			return fmt.Errorf("failed to unmarshal brand page task data: %w", err)
		}
		if err := s.handleBrandPage(ctx, brandTask); err != nil {
			return err
		}

	case task.ProductPageTaskType:
		productTask, err := task.UnmarshalTask[*task.ProductPageTask](data)
		if err != nil {
			return fmt.Errorf("failed to unmarshal product page task data: %w", err)
		}
		if err := s.handleProductPage(ctx, productTask.ProductURL, productTask.BrandName, 0); err != nil {
			return err
		}

	case task.ProductRetryTaskType:
		retryTask, err := task.UnmarshalTask[*task.ProductRetryTask](data)
		if err != nil {
			return fmt.Errorf("failed to unmarshal retry task data: %w", err)
		}
		if err := s.retryProduct(ctx, retryTask); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	streamName := s.queue.StreamName(taskType)
	if err := s.queue.AckTask(ctx, streamName, s.groupName, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

func (s *Scraper) handleBrandPage(ctx context.Context, brandTask *task.BrandPageTask) error {
	urls, err := s.client.GetBrandProductURLs(ctx, brandTask.BrandURL)
	if err != nil {
		observability.ScrapeFailures.WithLabelValues(task.BrandPageTaskType).Inc()
		if leavePending(err) {
			return err
		}

		if brandTask.RetryCount >= s.maxRetries {
			log.Errorf("❌ Giving up on brand %s after %d attempts: %v", brandTask.BrandName, brandTask.RetryCount+1, err)
			return nil
		}

		retry := *brandTask
		retry.RetryCount++
		retry.Error = err.Error()
		if _, addErr := s.queue.AddTask(ctx, &retry); addErr != nil {
			return fmt.Errorf("failed to requeue brand %s: %w", brandTask.BrandName, addErr)
		}
		log.Warnf("🔄 Brand %s requeued (attempt %d): %v", brandTask.BrandName, retry.RetryCount, err)
		return nil
	}

	queued := 0
	for _, productURL := range urls {
		isNew, err := s.stateManager.MarkProductSeen(ctx, productURL)
		if err != nil {
			return err
		}
		if !isNew {
			continue
		}

		if _, err := s.queue.AddTask(ctx, &task.ProductPageTask{
			BrandName:  brandTask.BrandName,
			ProductURL: productURL,
		}); err != nil {
			return fmt.Errorf("failed to queue product %s: %w", productURL, err)
		}
		queued++
	}

	log.Infof("✅ Brand %s: queued %d of %d products", brandTask.BrandName, queued, len(urls))
	return nil
}

// leavePending reports errors that must not consume a retry. The message stays
// unacknowledged and the auto-claimer hands it out again after minIdleTime.
func leavePending(err error) bool {
	return errors.Is(err, client.ErrCircuitOpen) || errors.Is(err, context.Canceled)
}

// handleProductPage fetches and stores one product. Failures go to the retry stream.
func (s *Scraper) handleProductPage(ctx context.Context, productURL, brandName string, retryCount int) error {
	stage := stageFetch
	listing, err := s.client.GetProduct(ctx, productURL)
	if err == nil {
		if listing.BrandName == "" {
			listing.BrandName = brandName
		}
		stage = stageSave
		err = s.repository.SaveListing(ctx, listing)
	}

	if err == nil {
		observability.ListingsScraped.Inc()
		if listing.Error != "" {
			log.Debugf("Stored %s marked as %q", productURL, listing.Error)
		}
		return nil
	}

	observability.ScrapeFailures.WithLabelValues(task.ProductPageTaskType).Inc()
	if leavePending(err) {
		return err
	}

	retryTask := &task.ProductRetryTask{
		ProductURL:   productURL,
		BrandName:    brandName,
		RetryCount:   retryCount,
		Error:        err.Error(),
		FailureStage: stage,
	}
	if _, addErr := s.queue.AddTask(ctx, retryTask); addErr != nil {
		return fmt.Errorf("failed to add retry task for %s: %w", productURL, addErr)
	}

	log.Warnf("🔄 Added %s to retry queue after %s failure: %v", productURL, stage, err)
	return nil
}

func (s *Scraper) retryProduct(ctx context.Context, retryTask *task.ProductRetryTask) error {
	retryTask.RetryCount++
	if retryTask.RetryCount > s.maxRetries {
		log.Errorf("❌ Giving up on %s after %d retries, last %s error: %s",
			retryTask.ProductURL, retryTask.RetryCount-1, retryTask.FailureStage, retryTask.Error)
		return nil
	}

	log.Infof("🔄 Retrying %s (attempt %d)", retryTask.ProductURL, retryTask.RetryCount)
	return s.handleProductPage(ctx, retryTask.ProductURL, retryTask.BrandName, retryTask.RetryCount)
}
