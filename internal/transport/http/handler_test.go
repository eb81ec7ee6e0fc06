package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maildispatch/backend/internal/domain"
	"maildispatch/backend/internal/monitoring"
	"maildispatch/backend/internal/secret"
	"maildispatch/backend/internal/service"
	"maildispatch/backend/internal/storage/memory"
)

// prometheus 指标不允许重复注册，整个测试进程共享一份。
var (
	testMetricsOnce sync.Once
	testMetrics     *monitoring.Metrics
)

func metricsForTest() *monitoring.Metrics {
	testMetricsOnce.Do(func() { testMetrics = monitoring.NewMetrics() })
	return testMetrics
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestConfigHandler_Upsert(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	configVars := service.NewConfigVarService(store, zap.NewNop())
	handler := NewConfigHandler(configVars)

	router := gin.New()
	router.PUT("/v1/config-vars", handler.Upsert)

	t.Run("写入后可按键读回", func(t *testing.T) {
		recorder := performJSON(t, router, http.MethodPut, "/v1/config-vars", gin.H{
			"key":      "maxLogHistoryLength",
			"value":    "500",
			"var_type": "integer",
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		variable, err := configVars.Get("maxLogHistoryLength")
		require.NoError(t, err)
		assert.Equal(t, "500", variable.Value)
		assert.Equal(t, domain.ConfigVarInteger, variable.VarType)
	})

	t.Run("未知类型返回422", func(t *testing.T) {
		recorder := performJSON(t, router, http.MethodPut, "/v1/config-vars", gin.H{
			"key":      "ratio",
			"value":    "0.5",
			"var_type": "decimal",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})

	t.Run("值与声明类型不符返回422", func(t *testing.T) {
		recorder := performJSON(t, router, http.MethodPut, "/v1/config-vars", gin.H{
			"key":      "maxLogHistoryLength",
			"value":    "很多",
			"var_type": "integer",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}

func TestMessageHandler_Store(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	keeper, err := secret.NewKeeper(nil)
	require.NoError(t, err)

	messages := service.NewMessageService(store, zap.NewNop(), metricsForTest())
	accounts := service.NewAccountService(store, keeper, zap.NewNop())
	logs := service.NewLogService(store, zap.NewNop(), metricsForTest())
	handler := NewMessageHandler(messages, accounts, nil, logs, nil, zap.NewNop())

	router := gin.New()
	router.POST("/v1/messages", handler.Store)

	_, err = accounts.Register("ops", "ops@example.com", "p@ss")
	require.NoError(t, err)

	payload := gin.H{
		"account_name":  "ops",
		"subject":       "通知",
		"to_recipients": []string{"a@example.com"},
		"html_body":     "<p>正文</p>",
	}

	t.Run("首次入库返回201并留下info日志", func(t *testing.T) {
		recorder := performJSON(t, router, http.MethodPost, "/v1/messages", payload)
		require.Equal(t, http.StatusCreated, recorder.Code)

		stored, err := messages.List(10, 0)
		require.NoError(t, err)
		require.Len(t, stored, 1)

		entries, err := logs.ForMessage(stored[0].ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.LogKindInfo, entries[0].Kind)
	})

	t.Run("重复入库返回200且不加日志", func(t *testing.T) {
		recorder := performJSON(t, router, http.MethodPost, "/v1/messages", payload)
		assert.Equal(t, http.StatusOK, recorder.Code)

		stored, err := messages.List(10, 0)
		require.NoError(t, err)
		require.Len(t, stored, 1)

		entries, err := logs.ForMessage(stored[0].ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("账户不存在返回404", func(t *testing.T) {
		recorder := performJSON(t, router, http.MethodPost, "/v1/messages", gin.H{
			"account_name":  "ghost",
			"subject":       "s",
			"to_recipients": []string{"a@example.com"},
			"html_body":     "<p>x</p>",
		})
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}
