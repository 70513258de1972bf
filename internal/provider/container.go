package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/snipero7/qr24-sub000/internal/authz"
	"github.com/snipero7/qr24-sub000/internal/cache"
	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/queue"
	"github.com/snipero7/qr24-sub000/internal/receipt"
	"github.com/snipero7/qr24-sub000/internal/repository"
	"github.com/snipero7/qr24-sub000/internal/service"
	"github.com/snipero7/qr24-sub000/internal/storage"
	"github.com/snipero7/qr24-sub000/internal/whatsapp"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Cache       *cache.Store
	QueueClient *queue.Client
	LocalSink   *storage.LocalSink
	Location    *time.Location

	// Repositories
	AdminRepo     repository.AdminRepository
	LoginLogRepo  repository.LoginLogRepository
	CustomerRepo  repository.CustomerRepository
	OrderRepo     repository.OrderRepository
	DebtRepo      repository.DebtRepository
	SettingRepo   repository.SettingRepository
	BackupLogRepo repository.BackupLogRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	AdminUserService    *service.AdminUserService
	CaptchaService      *service.CaptchaService
	SettingService      *service.SettingService
	StorageService      *service.StorageService
	CustomerService     *service.CustomerService
	OrderService        *service.OrderService
	DeliveryService     *service.DeliveryService
	ReceiptService      *service.ReceiptService
	NotificationService *service.NotificationService
	DebtService         *service.DebtService
	BackupService       *service.BackupService
	ExportService       *service.ExportService
	CodeSigner          *service.CodeSigner
}

// NewContainer 初始化容器，db 由调用方负责打开与迁移
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	store := cache.NewStore(cache.NewRedisClient(&cfg.Redis), cfg.Redis.Prefix)
	if store.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := store.Ping(ctx); err != nil {
			// 保留客户端：限流与备份锁按各自策略处理故障
			logger.Warnw("provider_redis_ping_failed", "addr", cfg.Redis.Addr(), "error", err)
		}
		cancel()
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Cache:       store,
		QueueClient: queueClient,
		LocalSink:   storage.NewLocalSink(cfg.Storage.LocalDir, cfg.Storage.PublicURLBase),
		Location:    cfg.Backup.Location(),
	}
	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.AdminRepo = repository.NewAdminRepository(c.DB)
	c.LoginLogRepo = repository.NewLoginLogRepository(c.DB)
	c.CustomerRepo = repository.NewCustomerRepository(c.DB)
	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.DebtRepo = repository.NewDebtRepository(c.DB)
	c.SettingRepo = repository.NewSettingRepository(c.DB)
	c.BackupLogRepo = repository.NewBackupLogRepository(c.DB)
}

func (c *Container) initServices() error {
	cfg := c.Config

	authzService, err := authz.NewService(c.DB)
	if err != nil {
		return fmt.Errorf("init authz: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap roles: %w", err)
	}
	c.AuthzService = authzService

	c.CodeSigner = service.NewCodeSigner(cfg.Tracking.Secret, cfg.Tracking.PublicBaseURL)
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.StorageService = service.NewStorageService(c.LocalSink, c.SettingService)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, c.OrderRepo)

	// sender 为空接口时通知只生成 wa.me 链接
	var sender whatsapp.Sender
	if cfg.WhatsApp.Enabled {
		sender = whatsapp.NewClient(
			cfg.WhatsApp.BaseURL,
			cfg.WhatsApp.Username,
			cfg.WhatsApp.Password,
			time.Duration(cfg.WhatsApp.TimeoutMS)*time.Millisecond,
		)
	}
	c.NotificationService = service.NewNotificationService(c.OrderRepo, c.SettingService, c.CodeSigner, sender, c.QueueClient)

	c.OrderService = service.NewOrderService(c.OrderRepo, c.CustomerRepo, c.CodeSigner, c.NotificationService, service.OrderServiceOptions{
		CodeLength: cfg.Tracking.CodeLength,
		MaxRetries: cfg.Tracking.MaxRetries,
	})
	c.ReceiptService = service.NewReceiptService(c.OrderRepo, c.SettingService, c.StorageService, receipt.NewPDFRenderer(), c.CodeSigner, c.Location)
	c.DeliveryService = service.NewDeliveryService(c.OrderRepo, c.OrderService, c.ReceiptService, c.QueueClient, c.NotificationService)
	c.DebtService = service.NewDebtService(c.DebtRepo)
	c.ExportService = service.NewExportService(c.OrderRepo, c.DebtRepo, c.Location)

	c.BackupService = service.NewBackupService(
		c.BackupLogRepo,
		c.CustomerRepo,
		c.OrderRepo,
		c.DebtRepo,
		c.SettingService,
		c.StorageService,
		cache.NewOnceLock(c.Cache),
		service.BackupServiceOptions{
			Location: c.Location,
			LockTTL:  time.Duration(cfg.Backup.LockTTLSeconds) * time.Second,
		},
	)

	// Redis 未启用时由限流策略决定放行或拒绝
	throttle := service.NewLoginThrottle(cache.NewThrottleStore(c.Cache), cfg.Security.LoginThrottle)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha)
	c.AuthService = service.NewAuthService(cfg, c.AdminRepo, c.LoginLogRepo, throttle, c.CaptchaService, c.Cache)
	c.AdminUserService = service.NewAdminUserService(c.AdminRepo, c.AuthService, c.AuthzService, c.Cache)
	return nil
}

// Close 释放队列与 Redis 连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_failed", "error", err)
	}
	if client := c.Cache.Client(); client != nil {
		if err := client.Close(); err != nil {
			logger.Warnw("provider_close_redis_failed", "error", err)
		}
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// OpenDatabase 按配置打开数据库并迁移表结构
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.LogMode, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	})
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}
