package proxy

import (
	"context"
	"crypto/tls"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

const maxParallelChecks = 50

// ProxySupplier manages a pool of proxies with round-robin selection
type ProxySupplier interface {
	Get() string
	// Remove drops a proxy the store has started to block.
	Remove(proxy string)
	Len() int
}

type proxySupplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// NewProxySupplier creates a new ProxySupplier with the proxies that can reach testURL.
// An empty testURL skips validation.
func NewProxySupplier(ctx context.Context, proxies []string, testURL string) (ProxySupplier, error) {
	candidates := make([]string, 0, len(proxies))
	for _, p := range proxies {
		if normalized, ok := normalizeProxy(p); ok && !slices.Contains(candidates, normalized) {
			candidates = append(candidates, normalized)
		}
	}

	if len(candidates) == 0 || testURL == "" {
		return &proxySupplier{proxies: candidates}, nil
	}

	log.Infof("🔄 Testing %d proxies in parallel...", len(candidates))

	working := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChecks)

	for i, proxyURL := range candidates {
		g.Go(func() error {
			log.Debugf("🔄 Testing proxy %d/%d: %s", i+1, len(candidates), proxyURL)
			if isProxyValid(gctx, proxyURL, testURL) {
				working[i] = true
				log.Infof("✅ Proxy %s is working", proxyURL)
			} else {
				log.Infof("❌ Proxy %s is not working, skipping", proxyURL)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	validProxies := make([]string, 0, len(candidates))
	for i, ok := range working {
		if ok {
			validProxies = append(validProxies, candidates[i])
		}
	}

	log.Infof("✅ ProxySupplier initialized with %d working proxies out of %d tested", len(validProxies), len(candidates))

	return &proxySupplier{
		proxies: validProxies,
	}, nil
}

// Get returns the next proxy URL in round-robin fashion
func (p *proxySupplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	p.current %= len(p.proxies)
	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func (p *proxySupplier) Remove(proxy string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	i := slices.Index(p.proxies, proxy)
	if i < 0 {
		return
	}
	p.proxies = slices.Delete(p.proxies, i, i+1)
	if p.current > i {
		p.current--
	}
	log.Infof("🗑️ Removed proxy %s, %d left", proxy, len(p.proxies))
}

func (p *proxySupplier) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.proxies)
}

// normalizeProxy adds the http scheme to bare host:port entries.
func normalizeProxy(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		log.Warnf("⚠️ Ignoring malformed proxy %q", raw)
		return "", false
	}
	return u.String(), true
}

// isProxyValid tests if a proxy can successfully make a request to the test URL
func isProxyValid(ctx context.Context, proxyURL, testURL string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0).
		SetProxy(proxyURL).
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})

	resp, err := client.R().
		SetContext(ctx).
		Get(testURL)

	if err != nil {
		log.Debugf("Proxy test failed for %s: %v", proxyURL, err)
		return false
	}

	if resp.IsError() {
		log.Debugf("Proxy test failed for %s with status: %s", proxyURL, resp.Status())
		return false
	}

	return true
}
