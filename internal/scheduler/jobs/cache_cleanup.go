package jobs

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/wonny/toprank/pkg/logger"
)

// DefaultCacheCleanupSchedule is every 5 minutes
const DefaultCacheCleanupSchedule = "0 */5 * * * *"

// ExpiringCache drops entries past their TTL (implemented by marketdata.MemoryCache)
type ExpiringCache interface {
	CleanExpired() int
	Len() int
}

// CacheCleanupJob evicts expired price series from the in-process cache
type CacheCleanupJob struct {
	cache  ExpiringCache
	logger *logger.Logger

	removed   atomic.Int64
	remaining atomic.Int64
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(cache ExpiringCache, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cache:  cache,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule
func (j *CacheCleanupJob) Schedule() string {
	return DefaultCacheCleanupSchedule
}

// Run executes the cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	removed := j.cache.CleanExpired()
	remaining := j.cache.Len()
	j.removed.Store(int64(removed))
	j.remaining.Store(int64(remaining))

	j.logger.WithFields(map[string]interface{}{
		"removed":   removed,
		"remaining": remaining,
	}).Debug("Cache cleanup completed")
	return nil
}

// Summary describes the last sweep
func (j *CacheCleanupJob) Summary() string {
	return fmt.Sprintf("%d expired removed, %d cached", j.removed.Load(), j.remaining.Load())
}
