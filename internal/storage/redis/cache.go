package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"maildispatch/backend/internal/domain"
)

// 签名解析涉及目录扫描与多次文件读取，解析结果短期缓存在 Redis。
const signatureBundlePrefix = "maildispatch:sigbundle:"

// ErrCacheMiss 缓存中没有对应条目。
var ErrCacheMiss = errors.New("cache miss")

// GetSignatureBundle 读取缓存的签名解析结果。
func (c *Client) GetSignatureBundle(ctx context.Context, key string) (*domain.SignatureBundle, error) {
	raw, err := c.rdb.Get(ctx, signatureBundlePrefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("读取签名缓存失败: %w", err)
	}
	var bundle domain.SignatureBundle
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return nil, fmt.Errorf("签名缓存内容损坏: %w", err)
	}
	return &bundle, nil
}

// SetSignatureBundle 写入签名解析结果，带过期时间。
func (c *Client) SetSignatureBundle(ctx context.Context, key string, bundle *domain.SignatureBundle, ttl time.Duration) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("序列化签名缓存失败: %w", err)
	}
	return c.rdb.Set(ctx, signatureBundlePrefix+key, raw, ttl).Err()
}

// InvalidateSignatureBundle 在签名启用关系变更后移除缓存条目。
func (c *Client) InvalidateSignatureBundle(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, signatureBundlePrefix+key).Err()
}
