package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"unitprice/pipeline/internal/api"
	"unitprice/pipeline/internal/client"
	"unitprice/pipeline/internal/config"
	"unitprice/pipeline/internal/observability"
	"unitprice/pipeline/internal/proxy"
	"unitprice/pipeline/internal/queue"
	"unitprice/pipeline/internal/repository"
	"unitprice/pipeline/internal/service"
	"unitprice/pipeline/internal/state"
)

// Container holds all initialized components
type Container struct {
	Config *config.Config
	Store  repository.Store

	// Set in scrape and all modes
	Client       client.StoreClient
	Queue        queue.Queue
	StateManager state.StateManager
	Scraper      *service.Scraper

	// Set in clean and all modes
	Cleaner *service.Cleaner

	// Set in serve and all modes
	Server *api.Server

	redis *redis.Client
}

// New creates a new container with the components app.mode needs
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	SetupLogging(cfg.Log)
	if cfg.Metrics.Enabled {
		observability.Register()
	}

	container := &Container{
		Config: cfg,
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	container.Store = store

	mode := cfg.App.Mode

	if mode == config.ModeScrape || mode == config.ModeAll {
		if err := container.initScraper(ctx); err != nil {
			container.Close()
			return nil, err
		}
	}

	if mode == config.ModeClean || mode == config.ModeAll {
		container.Cleaner = service.NewCleaner(cfg.Pipeline, cfg.Output, store, store)
	}

	if mode == config.ModeServe || mode == config.ModeAll {
		container.Server = api.NewServer(cfg.Server, cfg.Metrics, api.NewHandler(store))
	}

	return container, nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var store repository.Store

	switch cfg.Database.Driver {
	case repository.DriverPostgres:
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Info("✅ Connected to Postgres successfully")
		store = repository.NewPostgresStore(db)

	default:
		sqliteStore, err := repository.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		log.Infof("✅ Opened SQLite database %s", cfg.SQLite.Path)
		store = sqliteStore
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (c *Container) initScraper(ctx context.Context) error {
	cfg := c.Config

	proxySupplier, err := proxy.NewProxySupplier(ctx, cfg.Scraper.Proxies, cfg.Scraper.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	c.redis = rdb

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis)
	if err != nil {
		return err
	}
	c.Queue = redisQueue
	c.StateManager = state.NewRedisStateManager(rdb)

	storeClient, err := client.NewStoreClient(cfg.Scraper, proxySupplier)
	if err != nil {
		return fmt.Errorf("failed to initialize store client: %w", err)
	}
	c.Client = storeClient

	c.Scraper = service.NewScraper(
		c.Store,
		storeClient,
		redisQueue,
		c.StateManager,
		cfg.Scraper.SaveInterval,
		cfg.Scraper.MaxRetries,
		cfg.Redis.ConsumerGroup,
		cfg.Redis.MinIdleTime,
	)
	return nil
}

// Run executes the stages selected by app.mode
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	mode := c.Config.App.Mode

	if c.Scraper != nil {
		// Queue brands, workers process tasks until shutdown
		g.Go(func() error {
			return c.Scraper.ScrapeAll(ctx)
		})
		g.Go(func() error {
			return c.Scraper.RunWorkers(ctx, c.Config.Scraper.MaxWorkers)
		})
	}

	if c.Cleaner != nil {
		g.Go(func() error {
			if mode == config.ModeAll {
				interval := time.Duration(max(1, c.Config.Pipeline.Interval)) * time.Second
				return c.Cleaner.RunEvery(ctx, interval)
			}
			result, err := c.Cleaner.Run(ctx)
			if err != nil {
				return err
			}
			log.Infof("🎉 Cleaning run %s finished: %d products, %d comparisons",
				result.RunID, len(result.Products), len(result.Comparisons))
			return nil
		})
	}

	if c.Server != nil {
		g.Go(func() error {
			return c.Server.Run(ctx)
		})
	}

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			log.Warnf("⚠️ Failed to close database: %v", err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("⚠️ Failed to close Redis: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
