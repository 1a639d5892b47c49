package util

import (
	"context"
	"fmt"
	"time"

	"github.com/ariebrainware/api-sentinel/config"
	"github.com/ariebrainware/api-sentinel/model"
	"gorm.io/gorm"
)

// DBSessionDirectory resolves session liveness against Redis first and the
// sessions table second. Redis is a best-effort cache: when it is unavailable
// or has no entry, the database answer wins.
type DBSessionDirectory struct {
	DB *gorm.DB
}

func (d *DBSessionDirectory) ExistsActive(sessionKey string) bool {
	if sessionKey == "" {
		return false
	}

	if rdb := config.GetRedisClient(); rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if n, err := rdb.Exists(ctx, SessionCacheKey(sessionKey)).Result(); err == nil && n > 0 {
			return true
		}
	}

	if d.DB == nil {
		return false
	}
	var count int64
	err := d.DB.Model(&model.Session{}).
		Where("session_token = ? AND expires_at > ?", sessionKey, time.Now()).
		Count(&count).Error
	if err != nil {
		return false
	}
	return count > 0
}

// MarkSessionActive caches a validated session token in Redis until its
// expiry so subsequent lookups skip the database. The cached value is
// "<userID>:<roleID>". Best-effort.
func MarkSessionActive(sessionKey string, userID uint, roleID uint32, expiresAt time.Time) {
	rdb := config.GetRedisClient()
	if rdb == nil || sessionKey == "" {
		return
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = rdb.Set(ctx, SessionCacheKey(sessionKey), fmt.Sprintf("%d:%d", userID, roleID), ttl).Err()
}

// InvalidateSession removes a cached session token, e.g. after logout or
// administrative session revocation.
func InvalidateSession(sessionKey string) {
	rdb := config.GetRedisClient()
	if rdb == nil || sessionKey == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = rdb.Del(ctx, SessionCacheKey(sessionKey)).Err()
}

// SessionCacheKey is the Redis key under which an active session token is cached.
func SessionCacheKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}
