package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/mailer"
	"maildispatch/backend/internal/monitoring"
	"maildispatch/backend/internal/signature"
)

// prometheus 默认注册表不允许重复注册，整个测试包共享一份指标
var (
	testMetricsOnce sync.Once
	testMetrics     *monitoring.Metrics
)

func metricsForTest() *monitoring.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = monitoring.NewMetrics()
	})
	return testMetrics
}

func loggerForTest() *zap.Logger {
	return zap.NewNop()
}

// fakeSender 记录投递调用的传输层替身。
type fakeSender struct {
	mu     sync.Mutex
	sent   []*mailer.Outgoing
	ailing error
}

func (f *fakeSender) Send(_ context.Context, _ *domain.RegisteredAccount, _ string, out *mailer.Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ailing != nil {
		return f.ailing
	}
	f.sent = append(f.sent, out)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeResolver 内存里的签名解析替身。
type fakeResolver struct {
	bundles map[string]domain.SignatureBundle
	// 统计真实解析次数，验证缓存是否生效
	resolveCalls int
}

func (f *fakeResolver) List() ([]string, error) {
	keys := make([]string, 0, len(f.bundles))
	for key := range f.bundles {
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *fakeResolver) Resolve(key string) (domain.SignatureBundle, error) {
	f.resolveCalls++
	bundle, ok := f.bundles[key]
	if !ok {
		return domain.SignatureBundle{}, signature.ErrSignatureNotFound
	}
	return bundle, nil
}
