package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "unitprice:progress:"

// StateManager keeps scrape progress so an interrupted run can resume.
type StateManager interface {
	GetLastBrandIndex(ctx context.Context) (int, error)
	SetLastBrandIndex(ctx context.Context, index int) error
	// MarkProductSeen reports whether the product URL was new.
	MarkProductSeen(ctx context.Context, productURL string) (bool, error)
	Reset(ctx context.Context) error
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisStateManager(redisClient *redis.Client) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
	}
}

func (s *redisStateManager) brandKey() string   { return s.keyPrefix + "brand" }
func (s *redisStateManager) productsKey() string { return s.keyPrefix + "products" }

func (s *redisStateManager) GetLastBrandIndex(ctx context.Context) (int, error) {
	val, err := s.redisClient.Get(ctx, s.brandKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil // No progress saved yet
		}
		return 0, fmt.Errorf("failed to get last brand index: %w", err)
	}

	index, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse brand index %q: %w", val, err)
	}

	return index, nil
}

func (s *redisStateManager) SetLastBrandIndex(ctx context.Context, index int) error {
	if err := s.redisClient.Set(ctx, s.brandKey(), index, 0).Err(); err != nil {
		return fmt.Errorf("failed to set last brand index: %w", err)
	}
	return nil
}

func (s *redisStateManager) MarkProductSeen(ctx context.Context, productURL string) (bool, error) {
	added, err := s.redisClient.SAdd(ctx, s.productsKey(), productURL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark product %s as seen: %w", productURL, err)
	}
	return added == 1, nil
}

func (s *redisStateManager) Reset(ctx context.Context) error {
	if err := s.redisClient.Del(ctx, s.brandKey(), s.productsKey()).Err(); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	return nil
}
