package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// StatsKey is the cache key of the admin dashboard counters
const StatsKey = "admin"

// UserKey is the cache key of a user principal
func UserKey(userID uint) string {
	return fmt.Sprintf("id:%d", userID)
}

// SafeDelete deletes cache keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeInvalidatePattern invalidates a key pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// InvalidateStats drops the cached admin counters
func InvalidateStats(ctx context.Context, cm *CacheManager) {
	SafeDelete(ctx, cm.Stats, StatsKey)
}

// InvalidateUser drops a cached principal and the counters that depend on users
func InvalidateUser(ctx context.Context, cm *CacheManager, userID uint) {
	SafeDelete(ctx, cm.User, UserKey(userID))
	InvalidateStats(ctx, cm)
}
