package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildispatch/backend/internal/config"
	"maildispatch/backend/internal/health"
	"maildispatch/backend/internal/middleware"
	"maildispatch/backend/internal/monitoring"
	"maildispatch/backend/internal/pool"
	"maildispatch/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config           *config.Config
	MessageService   *service.MessageService
	AccountService   *service.AccountService
	SignatureService *service.SignatureService
	DispatchService  *service.DispatchService
	LogService       *service.LogService
	ConfigVarService *service.ConfigVarService
	WorkerPool       *pool.WorkerPool
	HealthChecker    *health.HealthChecker
	Metrics          *monitoring.Metrics
	Logger           *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件。
	// 有指标时 panic 恢复走监控中间件，恢复的同时累计 panic 计数。
	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
		router.Use(mm.PanicRecovery())
		router.Use(mm.HTTPMetrics())
	} else {
		router.Use(middleware.RecoveryHandler(deps.Logger))
	}
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())

	// base64 附件会放大请求体，全局上限 10MB
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	messageHandler := NewMessageHandler(
		deps.MessageService,
		deps.AccountService,
		deps.DispatchService,
		deps.LogService,
		deps.WorkerPool,
		deps.Logger,
	)
	accountHandler := NewAccountHandler(deps.AccountService, deps.Logger)
	signatureHandler := NewSignatureHandler(deps.SignatureService)
	logHandler := NewLogHandler(deps.LogService)
	configHandler := NewConfigHandler(deps.ConfigVarService)
	renderHandler := NewRenderHandler()

	// 健康检查与指标
	if deps.HealthChecker != nil {
		router.GET("/health", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
		router.GET("/health/report", func(c *gin.Context) {
			Success(c, deps.HealthChecker.CheckHealth())
		})
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Message Routes ==========
		messageRoutes := v1.Group("/messages")
		{
			messageRoutes.POST("", messageHandler.Store)                     // 保存邮件（幂等）
			messageRoutes.POST("/dispatch", messageHandler.StoreAndDispatch) // 保存并投递
			messageRoutes.GET("", messageHandler.List)                       // 邮件列表
			messageRoutes.GET("/:id", messageHandler.Get)                    // 邮件详情
			messageRoutes.POST("/:id/dispatch", messageHandler.Dispatch)     // 异步投递
			messageRoutes.GET("/:id/logs", messageHandler.Logs)              // 关联日志
		}

		// ========== Account Routes ==========
		accountRoutes := v1.Group("/accounts")
		{
			accountRoutes.POST("", accountHandler.Register)       // 注册账户
			accountRoutes.GET("", accountHandler.List)            // 账户列表
			accountRoutes.GET("/:name", accountHandler.Get)       // 账户详情
			accountRoutes.PUT("/:name", accountHandler.Update)    // 更新账户
			accountRoutes.DELETE("/:name", accountHandler.Delete) // 删除账户

			// 账户签名关联
			accountRoutes.POST("/:name/signatures", signatureHandler.Attach)        // 关联签名
			accountRoutes.POST("/:name/signatures/enable", signatureHandler.Enable) // 启用签名
			accountRoutes.GET("/:name/signatures", signatureHandler.ListForAccount) // 签名列表
		}

		// ========== Signature Routes ==========
		v1.GET("/signatures", signatureHandler.ListKeys) // 可用签名键

		// ========== Log Routes ==========
		v1.GET("/logs", logHandler.List) // 投递日志分页

		// ========== Config Variable Routes ==========
		configRoutes := v1.Group("/config-vars")
		{
			configRoutes.PUT("", configHandler.Upsert)   // 写入配置变量
			configRoutes.GET("", configHandler.List)     // 配置变量列表
			configRoutes.GET("/:key", configHandler.Get) // 配置变量详情
		}

		// ========== Render Routes ==========
		v1.POST("/render", renderHandler.Render) // 块模板渲染
	}

	return router
}
