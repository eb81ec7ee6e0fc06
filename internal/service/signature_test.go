package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maildispatch/backend/internal/cache"
	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/signature"
	"maildispatch/backend/internal/storage/memory"
)

func TestSignatureService(t *testing.T) {
	newFixture := func(t *testing.T, withCache bool) (*SignatureService, *memory.Store, *fakeResolver) {
		t.Helper()
		store := memory.NewStore()
		resolver := &fakeResolver{bundles: map[string]domain.SignatureBundle{
			"Sig1": {HTML: "<p>签名</p>"},
		}}
		var bundleCache BundleCache
		if withCache {
			bundleCache = cache.NewBundleCache(time.Minute)
		}
		svc := NewSignatureService(store, resolver, bundleCache, time.Minute,
			loggerForTest(), metricsForTest())
		return svc, store, resolver
	}

	seedAccount := func(t *testing.T, store *memory.Store) *domain.RegisteredAccount {
		t.Helper()
		account := &domain.RegisteredAccount{AccountName: "ops", Email: "ops@example.com"}
		require.NoError(t, store.CreateAccount(account))
		return account
	}

	t.Run("关联真实存在的签名键", func(t *testing.T) {
		svc, store, _ := newFixture(t, false)
		seedAccount(t, store)

		ref, err := svc.Attach("ops", "Sig1")
		require.NoError(t, err)
		assert.Equal(t, "Sig1", ref.SignatureKey)
		assert.False(t, ref.Enabled)
	})

	t.Run("关联不存在的签名键被拒绝", func(t *testing.T) {
		svc, store, _ := newFixture(t, false)
		seedAccount(t, store)

		_, err := svc.Attach("ops", "ghost")
		assert.ErrorIs(t, err, signature.ErrSignatureNotFound)
	})

	t.Run("启用后EnabledBundle返回内容包", func(t *testing.T) {
		svc, store, _ := newFixture(t, false)
		account := seedAccount(t, store)

		_, err := svc.Attach("ops", "Sig1")
		require.NoError(t, err)
		require.NoError(t, svc.Enable("ops", "Sig1"))

		bundle, err := svc.EnabledBundle(context.Background(), account)
		require.NoError(t, err)
		require.NotNil(t, bundle)
		assert.Equal(t, "<p>签名</p>", bundle.HTML)
	})

	t.Run("没有启用签名时EnabledBundle返回nil", func(t *testing.T) {
		svc, store, _ := newFixture(t, false)
		account := seedAccount(t, store)

		bundle, err := svc.EnabledBundle(context.Background(), account)
		require.NoError(t, err)
		assert.Nil(t, bundle)
	})

	t.Run("缓存命中后不再走文件解析", func(t *testing.T) {
		svc, _, resolver := newFixture(t, true)

		_, err := svc.ResolveBundle(context.Background(), "Sig1")
		require.NoError(t, err)
		_, err = svc.ResolveBundle(context.Background(), "Sig1")
		require.NoError(t, err)
		assert.Equal(t, 1, resolver.resolveCalls)
	})
}
