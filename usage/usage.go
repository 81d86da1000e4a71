// Package usage collects in-memory statistics about the audit API: which
// shops call it, how often, how long runs take, and how often they fail.
package usage

import (
	"os"
	"sync"
	"time"
)

// Environment variable name for controlling statistics visibility.
const ENV_DEV_MODE = "DEV_MODE"

// Statistics represents the collected usage statistics.
type Statistics struct {
	shops           map[string]time.Time // shop -> last audit request
	auditCounts     map[string]int       // shop -> total audit requests
	auditRequests   int
	errorCount      int
	totalDuration   float64 // milliseconds, feeds the average
	requestCount    int
	averageDuration float64
	startedAt       time.Time
	mutex           sync.RWMutex
}

var (
	stats *Statistics
	once  sync.Once
)

// Initialize creates the process-wide statistics instance.
func Initialize() *Statistics {
	once.Do(func() {
		stats = &Statistics{
			shops:       make(map[string]time.Time),
			auditCounts: make(map[string]int),
			startedAt:   time.Now(),
		}
	})
	return stats
}

// TrackAudit records one audit request for a shop.
func (s *Statistics) TrackAudit(shop string, durationMs float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.auditRequests++
	if shop != "" {
		s.shops[shop] = time.Now()
		s.auditCounts[shop]++
	}
	if hasError {
		s.errorCount++
	}

	s.totalDuration += durationMs
	s.requestCount++
	s.averageDuration = s.totalDuration / float64(s.requestCount)
}

// ActiveShops returns the number of distinct shops audited in the last 24
// hours.
func (s *Statistics) ActiveShops() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, last := range s.shops {
		if last.After(cutoff) {
			count++
		}
	}
	return count
}

// ErrorRate returns the error rate as a percentage.
func (s *Statistics) ErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.auditRequests == 0 {
		return 0
	}
	return (float64(s.errorCount) / float64(s.auditRequests)) * 100
}

// topShops returns up to n shops by audit count. Callers hold the lock.
func (s *Statistics) topShops(n int) map[string]int {
	result := make(map[string]int, n)
	count := 0
	for shop, freq := range s.auditCounts {
		if count >= n {
			break
		}
		result[shop] = freq
		count++
	}
	return result
}

// Snapshot returns the current statistics. Per-shop detail is only included
// in development mode.
func (s *Statistics) Snapshot() map[string]interface{} {
	activeShops := s.ActiveShops()
	errorRate := s.ErrorRate()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snapshot := map[string]interface{}{
		"activeShops24h":  activeShops,
		"totalRequests":   s.auditRequests,
		"errorRate":       errorRate,
		"averageDuration": s.averageDuration,
		"uptimeSeconds":   int(time.Since(s.startedAt).Seconds()),
	}
	if os.Getenv(ENV_DEV_MODE) == "true" {
		snapshot["shops"] = s.topShops(5)
	}
	return snapshot
}
