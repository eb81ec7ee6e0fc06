package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/monitoring"
	"maildispatch/backend/internal/signature"
	"maildispatch/backend/internal/storage"
)

// SignatureResolver 签名片段的解析能力，由 signature.Resolver 实现。
type SignatureResolver interface {
	List() ([]string, error)
	Resolve(key string) (domain.SignatureBundle, error)
}

// BundleCache 签名解析结果的缓存，Redis 与进程内实现均满足。
type BundleCache interface {
	GetSignatureBundle(ctx context.Context, key string) (*domain.SignatureBundle, error)
	SetSignatureBundle(ctx context.Context, key string, bundle *domain.SignatureBundle, ttl time.Duration) error
}

// SignatureService 提供账户签名管理与签名内容解析。
type SignatureService struct {
	store    storage.Store
	resolver SignatureResolver
	cache    BundleCache
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewSignatureService 创建签名服务。cache 可以为 nil（不缓存）。
func NewSignatureService(
	store storage.Store,
	resolver SignatureResolver,
	cache BundleCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *SignatureService {
	return &SignatureService{
		store:    store,
		resolver: resolver,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  metrics,
	}
}

// List 列出签名目录下可用的签名键。
func (s *SignatureService) List() ([]string, error) {
	return s.resolver.List()
}

// Attach 把签名键关联到账户。签名键必须在签名目录中真实存在。
func (s *SignatureService) Attach(accountName, signatureKey string) (*domain.AccountSignature, error) {
	account, err := s.store.GetAccountByName(accountName)
	if err != nil {
		return nil, err
	}
	keys, err := s.resolver.List()
	if err != nil {
		return nil, err
	}
	if !containsKey(keys, signatureKey) {
		return nil, fmt.Errorf("%w: %s", signature.ErrSignatureNotFound, signatureKey)
	}
	return s.store.AttachSignature(account.ID, signatureKey)
}

// Enable 启用账户的某个签名，同一账户其余签名同时停用。
func (s *SignatureService) Enable(accountName, signatureKey string) error {
	account, err := s.store.GetAccountByName(accountName)
	if err != nil {
		return err
	}
	if err := s.store.EnableSignature(account.ID, signatureKey); err != nil {
		return err
	}
	s.logger.Info("已启用账户签名",
		zap.String("account", accountName),
		zap.String("signature", signatureKey),
	)
	return nil
}

// ListForAccount 列出账户的全部签名关联。
func (s *SignatureService) ListForAccount(accountName string) ([]domain.AccountSignature, error) {
	account, err := s.store.GetAccountByName(accountName)
	if err != nil {
		return nil, err
	}
	return s.store.ListSignatureRefs(account.ID)
}

// ResolveBundle 解析签名键对应的内容包，优先走缓存。
func (s *SignatureService) ResolveBundle(ctx context.Context, signatureKey string) (*domain.SignatureBundle, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetSignatureBundle(ctx, signatureKey); err == nil {
			s.metrics.RecordSignatureCacheHit()
			return cached, nil
		}
	}

	bundle, err := s.resolver.Resolve(signatureKey)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSignatureResolve()

	if s.cache != nil {
		if err := s.cache.SetSignatureBundle(ctx, signatureKey, &bundle, s.cacheTTL); err != nil {
			// 缓存只是加速，写入失败不影响解析结果
			s.logger.Warn("写入签名缓存失败",
				zap.String("signature", signatureKey),
				zap.Error(err),
			)
		}
	}
	return &bundle, nil
}

// EnabledBundle 解析账户当前启用签名的内容包。
//
// 账户没有启用任何签名时返回 (nil, nil)：请求了签名的邮件
// 照常发送，只是不带签名。
func (s *SignatureService) EnabledBundle(ctx context.Context, account *domain.RegisteredAccount) (*domain.SignatureBundle, error) {
	ref, err := s.store.GetEnabledSignature(account.ID)
	if err != nil {
		if errors.Is(err, storage.ErrSignatureRefNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.ResolveBundle(ctx, ref.SignatureKey)
}

func containsKey(keys []string, key string) bool {
	for _, candidate := range keys {
		if candidate == key {
			return true
		}
	}
	return false
}
