package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopaudit/backend/audit"
	"github.com/shopaudit/backend/shopify"
	"github.com/shopaudit/backend/stats"
)

// fakeFetcher serves a fixed resource set, optionally failing, and counts
// calls.
type fakeFetcher struct {
	resources audit.ResourceSet
	err       error
	calls     atomic.Int64
}

func (f *fakeFetcher) FetchAll(ctx context.Context, creds shopify.Credentials) (audit.ResourceSet, error) {
	f.calls.Add(1)
	if f.err != nil {
		return audit.ResourceSet{}, f.err
	}
	return f.resources, nil
}

func testRunner(t *testing.T, fetcher Fetcher) (*Runner, *Store) {
	t.Helper()
	dir := t.TempDir()

	store, err := Open(filepath.Join(dir, "scans.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	statsStorage, err := stats.NewStorage(dir)
	if err != nil {
		t.Fatalf("open stats: %v", err)
	}
	t.Cleanup(func() { statsStorage.Shutdown() })

	runner := NewRunner(fetcher, store, statsStorage)
	t.Cleanup(runner.Shutdown)
	return runner, store
}

func brokenStore() audit.ResourceSet {
	return audit.ResourceSet{Products: []audit.Product{{
		ID:            "gid://shopify/Product/1",
		Handle:        "mystery",
		Description:   strings.Repeat("a", 10),
		FeaturedImage: &audit.Image{URL: "x.jpg"},
	}}}
}

func TestRunnerPersistsScan(t *testing.T) {
	fetcher := &fakeFetcher{resources: brokenStore()}
	runner, store := testRunner(t, fetcher)
	creds := shopify.Credentials{Shop: "pots.myshopify.com", Token: "shpat_x"}

	scan, err := runner.Run(context.Background(), creds, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if scan.Result.OverallScore != 79 {
		t.Errorf("expected overall score 79, got %d", scan.Result.OverallScore)
	}

	latest, err := store.Latest(context.Background(), creds.Shop)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != scan.ID {
		t.Errorf("scan was not persisted as latest")
	}

	status, err := store.Status(context.Background(), creds.Shop)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CurrentScore != 79 {
		t.Errorf("expected current score 79, got %d", status.CurrentScore)
	}
}

func TestRunnerServesCachedScan(t *testing.T) {
	fetcher := &fakeFetcher{resources: brokenStore()}
	runner, _ := testRunner(t, fetcher)
	creds := shopify.Credentials{Shop: "pots.myshopify.com", Token: "shpat_x"}

	first, err := runner.Run(context.Background(), creds, false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !runner.IsCached(creds.Shop) {
		t.Error("expected shop to be cached after a run")
	}

	second, err := runner.Run(context.Background(), creds, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected cached scan, got a new one")
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}

	// force bypasses the cache and produces a new scan record.
	third, err := runner.Run(context.Background(), creds, true)
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if third.ID == first.ID {
		t.Errorf("expected forced run to create a new scan")
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("expected 2 fetches after force, got %d", got)
	}
}

func TestRunnerCacheExpiry(t *testing.T) {
	fetcher := &fakeFetcher{resources: brokenStore()}
	runner, _ := testRunner(t, fetcher)
	runner.SetCacheTTL(10 * time.Millisecond)
	creds := shopify.Credentials{Shop: "pots.myshopify.com", Token: "shpat_x"}

	if _, err := runner.Run(context.Background(), creds, false); err != nil {
		t.Fatalf("run: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if runner.IsCached(creds.Shop) {
		t.Error("expected cache entry to expire")
	}
	if _, err := runner.Run(context.Background(), creds, false); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("expected refetch after expiry, got %d fetches", got)
	}
}

func TestRunnerFailedFetchPersistsNothing(t *testing.T) {
	fetcher := &fakeFetcher{resources: brokenStore()}
	runner, store := testRunner(t, fetcher)
	creds := shopify.Credentials{Shop: "pots.myshopify.com", Token: "shpat_x"}

	first, err := runner.Run(context.Background(), creds, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	fetcher.err = errors.New("admin api unreachable")
	if _, err := runner.Run(context.Background(), creds, true); err == nil {
		t.Fatal("expected forced run to fail")
	}

	// The prior scan must remain current after a failed run.
	latest, err := store.Latest(context.Background(), creds.Shop)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != first.ID {
		t.Errorf("failed run disturbed the latest scan")
	}

	history, err := store.History(context.Background(), creds.Shop, 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 scan in history, got %d", len(history))
	}
}

func TestRunnerSerializesSameShop(t *testing.T) {
	fetcher := &fakeFetcher{resources: brokenStore()}
	runner, store := testRunner(t, fetcher)
	creds := shopify.Credentials{Shop: "pots.myshopify.com", Token: "shpat_x"}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := runner.Run(context.Background(), creds, false); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent run failed: %v", err)
	}

	// One winner fetches and persists; the rest wait on the shop lock and
	// then hit the warm cache.
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch across concurrent runs, got %d", got)
	}
	history, err := store.History(context.Background(), creds.Shop, 20, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected a single persisted scan, got %d", len(history))
	}
}

func TestRunnerCleanupConcurrentWithRuns(t *testing.T) {
	fetcher := &fakeFetcher{resources: brokenStore()}
	runner, _ := testRunner(t, fetcher)

	// Runs read the last-sweep timestamp that cleanup writes; both must hold
	// the cache lock, or the race detector trips on the unguarded read.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		shop := fmt.Sprintf("shop-%d.myshopify.com", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			creds := shopify.Credentials{Shop: shop, Token: "shpat_x"}
			for j := 0; j < 20; j++ {
				if _, err := runner.Run(context.Background(), creds, false); err != nil {
					t.Errorf("run %s: %v", shop, err)
					return
				}
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				runner.cleanup()
			}
		}()
	}
	wg.Wait()
}

func TestRunnerCacheStats(t *testing.T) {
	fetcher := &fakeFetcher{resources: brokenStore()}
	runner, _ := testRunner(t, fetcher)
	creds := shopify.Credentials{Shop: "pots.myshopify.com", Token: "shpat_x"}

	if _, err := runner.Run(context.Background(), creds, false); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := runner.Run(context.Background(), creds, false); err != nil {
		t.Fatalf("cached run: %v", err)
	}

	cs := runner.GetCacheStats()
	if cs.Entries != 1 {
		t.Errorf("expected 1 cache entry, got %d", cs.Entries)
	}
	if cs.Hits != 1 || cs.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d/%d", cs.Hits, cs.Misses)
	}

	runner.ClearCache()
	if runner.IsCached(creds.Shop) {
		t.Error("expected cache cleared")
	}
}
