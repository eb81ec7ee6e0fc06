package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maildispatch/backend/internal/cache"
	"maildispatch/backend/internal/config"
	"maildispatch/backend/internal/health"
	"maildispatch/backend/internal/logger"
	"maildispatch/backend/internal/mailer"
	"maildispatch/backend/internal/monitoring"
	"maildispatch/backend/internal/pool"
	"maildispatch/backend/internal/register"
	"maildispatch/backend/internal/secret"
	"maildispatch/backend/internal/service"
	"maildispatch/backend/internal/signature"
	"maildispatch/backend/internal/storage"
	"maildispatch/backend/internal/storage/memory"
	redisstore "maildispatch/backend/internal/storage/redis"
	sqlstore "maildispatch/backend/internal/storage/sql"
	httptransport "maildispatch/backend/internal/transport/http"
)

// main 启动邮件组装与投递服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting maildispatch server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 单实例保护：已有活跃实例时拒绝启动
	reg := register.New(cfg.Register.Dir)
	if err := reg.EnsureSingleInstance(); err != nil {
		log.Fatal("another instance is already running",
			zap.String("register_file", reg.Path()),
			zap.Error(err),
		)
	}

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = initializeDatabaseStorage(cfg, log)
		if err != nil {
			log.Fatal("failed to initialize database storage", zap.Error(err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	metrics := monitoring.NewMetrics()

	// 签名缓存：启用 Redis 时用远端缓存，否则进程内缓存
	var bundleCache service.BundleCache
	var redisPinger health.Pinger
	if cfg.Redis.Enabled {
		redisClient, err := redisstore.New(&cfg.Redis, log)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		bundleCache = redisClient
		redisPinger = redisClient
		log.Info("using redis signature cache", zap.String("address", cfg.Redis.Address))
	} else {
		bundleCache = cache.NewBundleCache(cfg.Signature.CacheTTL)
	}

	healthChecker := health.NewHealthChecker(store, redisPinger, log)

	keeper, err := secret.NewKeeper(cfg.Secret.Key)
	if err != nil {
		log.Fatal("failed to initialize secret keeper", zap.Error(err))
	}
	if cfg.Secret.Key == nil {
		log.Warn("secret.key 未配置，账户口令将明文存储（仅限开发环境）")
	}

	resolver := signature.NewResolver(cfg.Signature.Dir, log)
	sender := mailer.NewSMTPSender(&cfg.Mailer, log)
	defer sender.Close()

	// 初始化服务层
	messageService := service.NewMessageService(store, log, metrics)
	logService := service.NewLogService(store, log, metrics)
	accountService := service.NewAccountService(store, keeper, log)
	signatureService := service.NewSignatureService(
		store, resolver, bundleCache, cfg.Signature.CacheTTL, log, metrics)
	configVarService := service.NewConfigVarService(store, log)
	dispatchService := service.NewDispatchService(
		store, accountService, signatureService, logService, sender, log, metrics)

	// 写入内置配置变量初始值
	if err := configVarService.Seed(); err != nil {
		log.Fatal("failed to seed config variables", zap.Error(err))
	}

	workers := pool.NewWorkerPool(4, 256, log)

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:           cfg,
		MessageService:   messageService,
		AccountService:   accountService,
		SignatureService: signatureService,
		DispatchService:  dispatchService,
		LogService:       logService,
		ConfigVarService: configVarService,
		WorkerPool:       workers,
		HealthChecker:    healthChecker,
		Metrics:          metrics,
		Logger:           log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	workers.Start(groupCtx)

	// 标记本实例为活跃
	if err := reg.UpdateStatus(cfg.Server.Host, cfg.Server.Port, true); err != nil {
		log.Warn("failed to write register file", zap.Error(err))
	}

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		workers.Stop()

		if err := reg.UpdateStatus(cfg.Server.Host, cfg.Server.Port, false); err != nil {
			log.Warn("failed to update register file", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeDatabaseStorage 按配置的数据库类型建立 SQL 存储。
func initializeDatabaseStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	log.Info("initializing database storage", zap.String("database_type", cfg.Database.Type))

	switch cfg.Database.Type {
	case "mysql":
		return sqlstore.NewMySQLStore(cfg.Database.DSN)
	case "postgres":
		return sqlstore.NewStore(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}
