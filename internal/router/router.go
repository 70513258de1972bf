package router

import (
	"sort"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/authz"
	"github.com/snipero7/qr24-sub000/internal/config"
	adminhandlers "github.com/snipero7/qr24-sub000/internal/http/handlers/admin"
	publichandlers "github.com/snipero7/qr24-sub000/internal/http/handlers/public"
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/provider"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	if strings.EqualFold(cfg.Server.Mode, "release") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	trackLimit := cfg.Security.TrackRateLimit
	trackRule := RateLimitRule{
		Prefix:        "track",
		WindowSeconds: trackLimit.WindowSeconds,
		MaxRequests:   trackLimit.MaxRequests,
		BlockSeconds:  trackLimit.BlockSeconds,
	}
	loginLimit := cfg.Security.LoginRateLimit
	loginRule := RateLimitRule{
		Prefix:        "admin_login",
		WindowSeconds: loginLimit.WindowSeconds,
		MaxRequests:   loginLimit.MaxRequests,
		BlockSeconds:  loginLimit.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	metricsPath := strings.TrimSpace(cfg.Metrics.Path)
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if cfg.Metrics.Enabled {
		metrics := NewHTTPMetrics()
		r.Use(metrics.Middleware())
		r.GET(metricsPath, metrics.Handler())
	}
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{metricsPath})))

	// 本地存储文件（回执 PDF）
	if base := strings.TrimSpace(cfg.Storage.PublicURLBase); strings.HasPrefix(base, "/") {
		r.Static(base, c.LocalSink.Dir())
	}

	apiV1 := r.Group("/api/v1")
	{
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetConfig)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
			public.GET("/track/:code", RateLimitMiddleware(c.Cache, trackRule, KeyByIP), publicHandler.TrackOrder)
		}

		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(c.Cache, loginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 仅需登录
			self := admin.Group("")
			self.Use(JWTAuthMiddleware(c.AuthService))
			{
				self.GET("/me", adminHandler.GetAdminMe)
				self.PUT("/password", adminHandler.ChangePassword)
			}

			authorized := admin.Group("")
			authorized.Use(JWTAuthMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))
			{
				// 维修单
				authorized.GET("/orders", adminHandler.GetAdminOrders)
				authorized.POST("/orders", adminHandler.CreateAdminOrder)
				authorized.GET("/orders/:id", adminHandler.GetAdminOrder)
				authorized.PUT("/orders/:id", adminHandler.UpdateAdminOrder)
				authorized.DELETE("/orders/:id", adminHandler.DeleteAdminOrder)
				authorized.PATCH("/orders/:id/status", adminHandler.UpdateAdminOrderStatus)
				authorized.POST("/orders/:id/deliver", adminHandler.DeliverAdminOrder)
				authorized.POST("/orders/:id/receipt", adminHandler.RegenerateAdminOrderReceipt)
				authorized.GET("/orders/:id/whatsapp-link", adminHandler.GetAdminOrderWhatsAppLink)

				// 客户
				authorized.GET("/customers", adminHandler.GetAdminCustomers)
				authorized.POST("/customers", adminHandler.UpsertAdminCustomer)
				authorized.GET("/customers/:id", adminHandler.GetAdminCustomer)
				authorized.PUT("/customers/:id", adminHandler.UpdateAdminCustomer)

				// 欠款台账
				authorized.GET("/debts", adminHandler.GetAdminDebts)
				authorized.POST("/debts", adminHandler.CreateAdminDebt)
				authorized.GET("/debts/summary", adminHandler.GetAdminDebtSummary)
				authorized.GET("/debts/:id", adminHandler.GetAdminDebt)
				authorized.PUT("/debts/:id", adminHandler.UpdateAdminDebt)
				authorized.DELETE("/debts/:id", adminHandler.DeleteAdminDebt)
				authorized.POST("/debts/:id/payments", adminHandler.AddAdminDebtPayment)

				// 备份
				authorized.GET("/backups", adminHandler.GetAdminBackups)
				authorized.POST("/backups", adminHandler.CreateAdminBackup)
				authorized.POST("/backups/scheduled-check", adminHandler.RunScheduledBackupCheck)
				authorized.POST("/backups/:id/restore", adminHandler.RestoreAdminBackup)
				authorized.DELETE("/backups/:id", adminHandler.DeleteAdminBackup)

				// 设置
				authorized.GET("/settings/shop", adminHandler.GetShopSetting)
				authorized.PUT("/settings/shop", adminHandler.UpdateShopSetting)
				authorized.GET("/settings/notification", adminHandler.GetNotificationSetting)
				authorized.PUT("/settings/notification", adminHandler.UpdateNotificationSetting)
				authorized.GET("/settings/backup", adminHandler.GetBackupSetting)
				authorized.PUT("/settings/backup", adminHandler.UpdateBackupSetting)
				authorized.GET("/settings/storage", adminHandler.GetStorageSetting)
				authorized.PUT("/settings/storage", adminHandler.UpdateStorageSetting)

				// 导出
				authorized.GET("/exports/orders", adminHandler.ExportAdminOrders)
				authorized.GET("/exports/debts", adminHandler.ExportAdminDebts)

				// 账号与权限（仅超级管理员）
				authorized.GET("/admins", adminHandler.GetAdminUsers)
				authorized.POST("/admins", adminHandler.CreateAdminUser)
				authorized.PUT("/admins/:id", adminHandler.UpdateAdminUser)
				authorized.DELETE("/admins/:id", adminHandler.DeleteAdminUser)
				authorized.GET("/roles", adminHandler.GetAdminRoles)
				authorized.GET("/login-logs", adminHandler.GetLoginLogs)
				authorized.GET("/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		dbStatus := "ok"
		if sqlDB, err := c.DB.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			dbStatus = "down"
		}
		redisStatus := "disabled"
		if c.Cache.Enabled() {
			redisStatus = "ok"
			if err := c.Cache.Ping(ctx.Request.Context()); err != nil {
				redisStatus = "down"
			}
		}
		ctx.JSON(200, gin.H{"status": "ok", "db": dbStatus, "redis": redisStatus})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 从已注册路由生成可授权接口清单
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))
	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		switch item.Path {
		case "/api/v1/admin/login", "/api/v1/admin/me", "/api/v1/admin/password":
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})
	return items
}

func deriveAdminPermissionModule(object string) string {
	segments := strings.Split(strings.TrimPrefix(strings.TrimSpace(object), "/"), "/")
	if len(segments) < 2 || segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
