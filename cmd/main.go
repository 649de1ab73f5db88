package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mockup_embedder_v1_202610/internal/config"
	"mockup_embedder_v1_202610/internal/controller"
	"mockup_embedder_v1_202610/internal/logger"
	"mockup_embedder_v1_202610/internal/middleware"
	"mockup_embedder_v1_202610/internal/model"
	"mockup_embedder_v1_202610/internal/repository"
	"mockup_embedder_v1_202610/internal/router"
	"mockup_embedder_v1_202610/internal/service"
	"mockup_embedder_v1_202610/internal/task"
	"mockup_embedder_v1_202610/pkg/database"
	"mockup_embedder_v1_202610/pkg/shopify"
)

func main() {
	app := &cli.App{
		Name:  "mockup-embedder",
		Usage: "嵌入式店铺应用：上传图片并挂到商品",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "配置文件路径", EnvVars: []string{"APP_CONFIG"}},
		},
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "启动 HTTP 服务", Action: serve},
			{Name: "migrate", Usage: "执行数据库迁移", Action: migrate},
			{Name: "sweep", Usage: "立即巡检一次所有店铺凭证", Action: sweep},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Cfg         *config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Services    *Services
	Controllers *router.Controllers
	Tasks       *task.TaskManager
}

// Services 服务集合
type Services struct {
	Credentials *service.CredentialStore
	Session     *service.SessionVerifier
	AuthFailure *service.AuthFailureHandler
	Billing     *service.BillingGate
	Pipeline    *service.AttachmentPipeline
	Auth        *service.AuthService
	Probe       *service.CredentialProbe
	Compliance  *service.ComplianceService
}

// ==================== 命令 ====================

func serve(c *cli.Context) error {
	deps, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer deps.Log.Sync() //nolint:errcheck

	if err := deps.Tasks.Start(); err != nil {
		return err
	}
	defer deps.Tasks.Stop()

	if deps.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.SetupRouter(deps.Controllers, router.Options{
		Verifier: deps.Services.Session,
		Limiter:  middleware.NewShopRateLimiter(deps.Cfg.Pipeline.AttachRate, deps.Cfg.Pipeline.AttachBurst),
		Logger:   deps.Log,
	})
	return startServer(r, deps.Cfg.App.Port, deps.Log)
}

func migrate(c *cli.Context) error {
	cfg, log, db, err := openBase(c)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if err := database.Migrate(db, &model.Shop{}); err != nil {
		return err
	}
	log.Info("数据库迁移完成", zap.String("driver", cfg.Database.Driver))
	return nil
}

func sweep(c *cli.Context) error {
	deps, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer deps.Log.Sync() //nolint:errcheck

	report, err := deps.Tasks.TriggerSweep(c.Context)
	if err != nil {
		return err
	}
	deps.Log.Info("凭证巡检完成",
		zap.Int64("checked", report.Checked),
		zap.Int64("revoked", report.Revoked),
		zap.Int64("failed", report.Failed))
	return nil
}

// ==================== 初始化函数 ====================

// openBase 配置 + 日志 + 数据库
func openBase(c *cli.Context) (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.Log)

	db, err := database.Open(database.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level)),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

// bootstrap 组装全部依赖
func bootstrap(c *cli.Context) (*Dependencies, error) {
	cfg, log, db, err := openBase(c)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, &model.Shop{}); err != nil {
		return nil, err
	}

	// -------- Repo & 缓存 --------
	shopRepo := repository.NewShopRepository(db)
	cache, err := initCredentialCache(c.Context, cfg.Redis, log)
	if err != nil {
		return nil, err
	}

	// -------- 平台客户端 --------
	client := shopify.NewClient(shopify.Config{
		APIVersion: cfg.Shopify.APIVersion,
		Timeout:    cfg.Pipeline.HTTPTimeout,
		ProxyURL:   cfg.Shopify.ProxyURL,
		Debug:      cfg.Shopify.Debug,
	})

	// -------- 业务服务 --------
	svc := &Services{}
	svc.Credentials = service.NewCredentialStore(shopRepo, cache, log)
	svc.Session = service.NewSessionVerifier(cfg.Shopify.SessionMode, cfg.Shopify.APIKey, cfg.Shopify.APISecret)
	if svc.Session.Mode() == config.SessionModeDecode {
		log.Warn("会话令牌签名校验已关闭，仅限本地调试")
	}
	svc.AuthFailure = service.NewAuthFailureHandler(svc.Credentials, "", log)
	svc.Billing = service.NewBillingGate(client, svc.Credentials, svc.AuthFailure, cfg.Billing, cfg.App.URL, log)
	svc.Pipeline = service.NewAttachmentPipeline(client, svc.Credentials, svc.AuthFailure, service.PipelineOptions{
		PollInterval: cfg.Pipeline.PollInterval,
		PollAttempts: cfg.Pipeline.PollAttempts,
	}, log)
	svc.Auth = service.NewAuthService(client, svc.Credentials, cfg.Shopify, cfg.App.URL, log)
	svc.Probe = service.NewCredentialProbe(client, svc.Credentials, svc.AuthFailure, log)
	svc.Compliance = service.NewComplianceService(svc.Credentials, cfg.Shopify.APISecret, log)

	// -------- Controller 层 --------
	ctls := &router.Controllers{
		Health:  controller.NewHealthController(),
		Auth:    controller.NewAuthController(svc.Auth),
		Billing: controller.NewBillingController(svc.Billing),
		Attach:  controller.NewAttachController(svc.Pipeline, cfg.Pipeline.MaxUploadBytes),
		Webhook: controller.NewWebhookController(svc.Compliance),
	}

	// -------- 定时任务 --------
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		Lister: svc.Credentials,
		Prober: svc.Probe,
		Logger: log,
	}, &task.TaskManagerConfig{
		SweepEnabled:     cfg.Task.SweepEnabled,
		SweepSpec:        cfg.Task.SweepSpec,
		SweepConcurrency: cfg.Task.SweepConcurrency,
	})

	return &Dependencies{
		Cfg:         cfg,
		Log:         log,
		DB:          db,
		Services:    svc,
		Controllers: ctls,
		Tasks:       tasks,
	}, nil
}

// initCredentialCache Redis 可用时多实例共享缓存，否则退回进程内缓存
func initCredentialCache(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (service.CredentialCache, error) {
	if !cfg.Enabled {
		return service.NewMemoryCredentialCache(cfg.TTL), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	log.Info("凭证缓存使用 Redis", zap.String("addr", cfg.Addr))
	return service.NewRedisCredentialCache(rdb, cfg.TTL), nil
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(r *gin.Engine, port string, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	case <-quit:
	}

	log.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务强制关闭: %w", err)
	}

	log.Info("服务已退出")
	return nil
}
