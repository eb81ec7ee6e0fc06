package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"maildispatch/backend/internal/domain"
)

// ErrMiss 缓存中没有对应条目。
var ErrMiss = errors.New("cache miss")

// BundleCache 签名解析结果的进程内缓存。
//
// Redis 未启用时的退路：sync.Map 无锁读取、条目带 TTL、
// 后台定期清理过期条目。
type BundleCache struct {
	data sync.Map
	ttl  time.Duration
}

type bundleEntry struct {
	bundle    *domain.SignatureBundle
	expiresAt time.Time
}

// NewBundleCache 创建进程内签名缓存，ttl 为默认过期时间。
func NewBundleCache(ttl time.Duration) *BundleCache {
	cache := &BundleCache{ttl: ttl}
	go cache.cleanupLoop()
	return cache
}

// GetSignatureBundle 读取缓存条目，过期或缺失返回 ErrMiss。
func (c *BundleCache) GetSignatureBundle(_ context.Context, key string) (*domain.SignatureBundle, error) {
	val, ok := c.data.Load(key)
	if !ok {
		return nil, ErrMiss
	}
	entry := val.(*bundleEntry)
	if time.Now().After(entry.expiresAt) {
		c.data.Delete(key)
		return nil, ErrMiss
	}
	return entry.bundle, nil
}

// SetSignatureBundle 写入缓存条目。ttl 为零时使用默认值。
func (c *BundleCache) SetSignatureBundle(_ context.Context, key string, bundle *domain.SignatureBundle, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	c.data.Store(key, &bundleEntry{
		bundle:    bundle,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// InvalidateSignatureBundle 删除缓存条目。
func (c *BundleCache) InvalidateSignatureBundle(_ context.Context, key string) error {
	c.data.Delete(key)
	return nil
}

// cleanupLoop 定期清理过期条目
func (c *BundleCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.data.Range(func(key, value interface{}) bool {
			entry := value.(*bundleEntry)
			if now.After(entry.expiresAt) {
				c.data.Delete(key)
			}
			return true
		})
	}
}
