package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"

	"unitprice/pipeline/internal/config"
	"unitprice/pipeline/internal/domain"
	"unitprice/pipeline/internal/proxy"
)

// ErrCircuitOpen is returned while requests are suspended after the store blocked us.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const blockedMarker = "Access Denied"

type StoreClient interface {
	GetBrands(ctx context.Context) ([]domain.Brand, error)
	GetBrandProductURLs(ctx context.Context, brandURL string) ([]string, error)
	GetProduct(ctx context.Context, productURL string) (*domain.ProductListing, error)
}

type storeClient struct {
	rl            ratelimit.Limiter
	config        config.ScraperConfig
	httpClient    *resty.Client
	parser        *pageParser
	proxySupplier proxy.ProxySupplier
	currentProxy  string
	proxyMutex    sync.Mutex

	circuitBreakerMutex sync.RWMutex
	blockedUntil        time.Time
	circuitBreakerDelay time.Duration
}

func NewStoreClient(cfg config.ScraperConfig, proxySupplier proxy.ProxySupplier) (StoreClient, error) {
	parser, err := newPageParser(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New().
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})

	c := &storeClient{
		rl:                  ratelimit.New(max(1, cfg.MaxRequestsPerSecond)),
		config:              cfg,
		httpClient:          client,
		parser:              parser,
		proxySupplier:       proxySupplier,
		circuitBreakerDelay: 30 * time.Minute,
	}

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			c.useProxy(proxyURL)
			log.Infof("🔗 Using initial proxy: %s", proxyURL)
		}
	}

	return c, nil
}

func (c *storeClient) GetBrands(ctx context.Context) ([]domain.Brand, error) {
	html, err := c.fetchHTML(ctx, c.parser.resolve(c.config.BrandsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch brand list: %w", err)
	}

	brands, err := c.parser.ParseBrandList(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse brand list: %w", err)
	}

	log.Debugf("Fetched %d brands", len(brands))
	return brands, nil
}

func (c *storeClient) GetBrandProductURLs(ctx context.Context, brandURL string) ([]string, error) {
	html, err := c.fetchHTML(ctx, c.parser.resolve(brandURL))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch brand page %s: %w", brandURL, err)
	}

	urls, err := c.parser.ParseBrandProducts(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse brand page %s: %w", brandURL, err)
	}
	return urls, nil
}

func (c *storeClient) GetProduct(ctx context.Context, productURL string) (*domain.ProductListing, error) {
	url := c.parser.resolve(productURL)

	html, err := c.fetchHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", productURL, err)
	}

	listing, err := c.parser.ParseProduct(html, url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product %s: %w", productURL, err)
	}
	listing.ScrapeTimestamp = time.Now().UTC().Format(time.RFC3339)

	log.Debugf("Parsed product %s with %d options", url, len(listing.Options))
	return listing, nil
}

func (c *storeClient) useProxy(proxyURL string) {
	c.proxyMutex.Lock()
	defer c.proxyMutex.Unlock()
	c.currentProxy = proxyURL
	c.httpClient.SetProxy(proxyURL)
}

func (c *storeClient) isCircuitBreakerOpen() bool {
	c.circuitBreakerMutex.RLock()
	now := time.Now()
	open := now.Before(c.blockedUntil)
	triggered := !c.blockedUntil.IsZero()
	c.circuitBreakerMutex.RUnlock()

	if !open && triggered {
		c.circuitBreakerMutex.Lock()
		if !c.blockedUntil.IsZero() && now.After(c.blockedUntil) {
			c.blockedUntil = time.Time{}
			log.Infof("✅ Circuit breaker closed - requests are allowed again")
		}
		c.circuitBreakerMutex.Unlock()
	}

	return open
}

func (c *storeClient) triggerCircuitBreaker() {
	c.circuitBreakerMutex.Lock()
	defer c.circuitBreakerMutex.Unlock()

	c.blockedUntil = time.Now().Add(c.circuitBreakerDelay)
	log.Warnf("🚫 Circuit breaker activated! Requests disabled until %v",
		c.blockedUntil.Format("15:04:05"))
}

func (c *storeClient) remainingBlockedTime() time.Duration {
	c.circuitBreakerMutex.RLock()
	defer c.circuitBreakerMutex.RUnlock()

	return max(0, time.Until(c.blockedUntil))
}

func blocked(resp *resty.Response) bool {
	return resp.StatusCode() == http.StatusForbidden || strings.Contains(resp.String(), blockedMarker)
}

func (c *storeClient) get(ctx context.Context, url string) (*resty.Response, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	return resp, nil
}

func (c *storeClient) fetchHTML(ctx context.Context, url string) (string, error) {
	if c.isCircuitBreakerOpen() {
		remaining := c.remainingBlockedTime().Round(time.Second)
		log.Debugf("🚫 Request blocked by circuit breaker. Remaining time: %v", remaining)
		return "", fmt.Errorf("%w: requests disabled for %v more", ErrCircuitOpen, remaining)
	}

	c.rl.Take()

	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Duration(max(1, c.config.Timeout))*time.Second)
	defer cancel()

	resp, err := c.get(reqCtx, url)
	if err != nil {
		return "", err
	}

	if blocked(resp) {
		log.Warnf("🚫 Access denied for URL: %s", url)

		if c.proxySupplier != nil {
			c.proxyMutex.Lock()
			failed := c.currentProxy
			c.proxyMutex.Unlock()
			if failed != "" {
				c.proxySupplier.Remove(failed)
			}

			if newProxy := c.proxySupplier.Get(); newProxy != "" {
				log.Infof("🔄 Switching to new proxy: %s", newProxy)
				c.useProxy(newProxy)

				retryResp, retryErr := c.get(reqCtx, url)
				if retryErr == nil && !retryResp.IsError() && !blocked(retryResp) {
					log.Infof("✅ Retry successful with new proxy")
					return retryResp.String(), nil
				}
			}
		}

		c.triggerCircuitBreaker()
		return "", fmt.Errorf("access denied: %w", ErrCircuitOpen)
	}

	if resp.IsError() {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	return resp.String(), nil
}
