package scan

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shopaudit/backend/audit"
	"github.com/shopaudit/backend/shopify"
	"github.com/shopaudit/backend/stats"
)

// Fetcher materializes the four resource lists for one store. A fetch error
// means the whole run failed; no partial set is ever returned.
type Fetcher interface {
	FetchAll(ctx context.Context, creds shopify.Credentials) (audit.ResourceSet, error)
}

type cacheEntry struct {
	scan      *Scan
	timestamp time.Time
}

// CacheStats describes the runner's result cache.
type CacheStats struct {
	Entries int           `json:"entries"`
	Hits    int           `json:"hits"`
	Misses  int           `json:"misses"`
	TTL     time.Duration `json:"ttl"`
}

// Runner coordinates one audit run per request: serialize per shop, consult
// the result cache, fetch, analyze, persist. Concurrent runs for different
// shops are independent; runs for the same shop take the same lock, so a
// single process never writes interleaved "latest" rows for one shop.
type Runner struct {
	fetcher Fetcher
	store   *Store
	stats   *stats.Storage
	logger  *log.Logger

	cache           map[string]cacheEntry
	cacheMutex      sync.RWMutex
	cacheTTL        time.Duration
	maxCacheSize    int
	lastCleanup     time.Time
	cleanupInterval time.Duration
	done            chan struct{}
	closeOnce       sync.Once

	locks      map[string]*sync.Mutex
	locksMutex sync.Mutex
}

// NewRunner creates a Runner and starts its cache sweeper.
func NewRunner(fetcher Fetcher, store *Store, statsStorage *stats.Storage) *Runner {
	r := &Runner{
		fetcher:         fetcher,
		store:           store,
		stats:           statsStorage,
		logger:          log.WithPrefix("scan"),
		cache:           make(map[string]cacheEntry),
		cacheTTL:        30 * time.Minute,
		maxCacheSize:    1000,
		lastCleanup:     time.Now(),
		cleanupInterval: 5 * time.Minute,
		done:            make(chan struct{}),
		locks:           make(map[string]*sync.Mutex),
	}

	go r.periodicCleanup()

	return r
}

// Run executes one audit for a shop. With force unset, a fresh cached scan
// is served without refetching the store amid dashboard refreshes. A failed
// fetch persists nothing; the shop's prior scan stays current.
func (r *Runner) Run(ctx context.Context, creds shopify.Credentials, force bool) (*Scan, error) {
	if r.cleanupDue() {
		go r.cleanup()
	}

	lock := r.shopLock(creds.Shop)
	lock.Lock()
	defer lock.Unlock()

	cacheKey := cacheKeyFor(creds.Shop)
	if !force {
		r.cacheMutex.RLock()
		if entry, found := r.cache[cacheKey]; found && time.Since(entry.timestamp) < r.cacheTTL {
			r.cacheMutex.RUnlock()
			r.stats.Record(0, 1, 0, 0)
			return entry.scan, nil
		}
		r.cacheMutex.RUnlock()
	}
	r.stats.Record(0, 0, 1, 0)

	resources, err := r.fetcher.FetchAll(ctx, creds)
	if err != nil {
		r.stats.Record(0, 0, 0, 1)
		r.logger.Error("fetch failed", "shop", creds.Shop, "err", err)
		return nil, fmt.Errorf("fetch store content: %w", err)
	}

	result := audit.Analyze(resources)

	scan, err := r.store.Save(ctx, creds.Shop, result)
	if err != nil {
		return nil, fmt.Errorf("persist scan: %w", err)
	}
	r.stats.Record(1, 0, 0, 0)
	r.logger.Info("audit complete",
		"shop", creds.Shop,
		"score", result.OverallScore,
		"issues", len(result.Issues),
		"pages", result.CrawledPages)

	r.cacheMutex.Lock()
	r.cache[cacheKey] = cacheEntry{scan: scan, timestamp: time.Now()}
	r.cacheMutex.Unlock()

	return scan, nil
}

// cleanupDue reports whether the last sweep is older than the cleanup
// interval. lastCleanup is written by cleanup under cacheMutex, so the
// read takes the lock too.
func (r *Runner) cleanupDue() bool {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()
	return time.Since(r.lastCleanup) > r.cleanupInterval
}

// shopLock returns the per-shop run lock, creating it on first use.
func (r *Runner) shopLock(shop string) *sync.Mutex {
	r.locksMutex.Lock()
	defer r.locksMutex.Unlock()

	lock, exists := r.locks[shop]
	if !exists {
		lock = &sync.Mutex{}
		r.locks[shop] = lock
	}
	return lock
}

func cacheKeyFor(shop string) string {
	hash := md5.Sum([]byte(shop))
	return hex.EncodeToString(hash[:])
}

// IsCached reports whether a shop has a fresh cached scan.
func (r *Runner) IsCached(shop string) bool {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()

	entry, found := r.cache[cacheKeyFor(shop)]
	return found && time.Since(entry.timestamp) < r.cacheTTL
}

// SetCacheTTL sets the result cache TTL.
func (r *Runner) SetCacheTTL(ttl time.Duration) {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.cacheTTL = ttl
}

// SetMaxCacheSize sets the maximum number of cached scans.
func (r *Runner) SetMaxCacheSize(size int) {
	r.cacheMutex.Lock()
	r.maxCacheSize = size
	r.cacheMutex.Unlock()
	r.cleanup()
}

// ClearCache drops every cached scan.
func (r *Runner) ClearCache() {
	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.cache = make(map[string]cacheEntry)
}

// GetCacheStats returns statistics about the result cache.
func (r *Runner) GetCacheStats() CacheStats {
	current := r.stats.GetCurrentStats()

	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()

	return CacheStats{
		Entries: len(r.cache),
		Hits:    current.CacheHits,
		Misses:  current.CacheMisses,
		TTL:     r.cacheTTL,
	}
}

func (r *Runner) periodicCleanup() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.done:
			return
		}
	}
}

// cleanup removes expired entries, then evicts oldest entries while over
// the size cap.
func (r *Runner) cleanup() {
	now := time.Now()

	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()

	for key, entry := range r.cache {
		if now.Sub(entry.timestamp) > r.cacheTTL {
			delete(r.cache, key)
		}
	}

	if len(r.cache) > r.maxCacheSize {
		entries := make([]struct {
			key       string
			timestamp time.Time
		}, 0, len(r.cache))
		for key, entry := range r.cache {
			entries = append(entries, struct {
				key       string
				timestamp time.Time
			}{key, entry.timestamp})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].timestamp.Before(entries[j].timestamp)
		})

		for i := 0; i < len(entries)-r.maxCacheSize; i++ {
			delete(r.cache, entries[i].key)
		}
	}

	r.lastCleanup = now
}

// Shutdown stops the cache sweeper and drops the cache.
func (r *Runner) Shutdown() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.ClearCache()
}
