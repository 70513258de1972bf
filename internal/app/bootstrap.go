package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/config"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/provider"
	"github.com/snipero7/qr24-sub000/internal/router"
	"github.com/snipero7/qr24-sub000/internal/worker"
)

// BuildRunner 按启动模式组装服务
//
// api 只启动 HTTP；worker 启动队列消费与定时备份；all 两者都启动。
// 队列未启用时跳过消费者，回执与通知改为请求内同步执行。
func BuildRunner(cfg *config.Config, container *provider.Container, mode string) (*Runner, error) {
	if cfg == nil || container == nil {
		return nil, errors.New("config or container is nil")
	}
	if !validMode(mode) {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	var services []Service
	if mode != ModeWorker {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server.Host+":"+cfg.Server.Port, engine))
	}

	if mode != ModeAPI {
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else {
			logger.Infow("app_worker_skipped_queue_disabled", "mode", mode)
		}
		if cfg.Backup.SchedulerEnabled {
			scheduler, err := worker.NewScheduler(container.BackupService, container.Location)
			if err != nil {
				return nil, err
			}
			services = append(services, scheduler)
		}
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("mode %q started no services (check queue and backup scheduler config)", mode)
	}
	return NewRunner(services...), nil
}

// Run 打开数据库、构建容器并运行到收到退出信号
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	cfg := opts.Config
	if cfg == nil {
		return errors.New("config is nil")
	}

	db, err := provider.OpenDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if strings.EqualFold(cfg.Server.Mode, "release") && opts.DefaultAdminPassword == "" {
		opts.Logger.Warnw("app_default_admin_skipped", "reason", "password not set in release mode")
	} else if err := models.InitDefaultAdmin(db, opts.DefaultAdminUsername, opts.DefaultAdminPassword); err != nil {
		opts.Logger.Warnw("app_init_default_admin_failed", "error", err)
	}

	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		return err
	}
	defer container.Close()

	runner, err := BuildRunner(cfg, container, opts.Mode)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start",
		"addr", cfg.Server.Host+":"+cfg.Server.Port,
		"mode", opts.Mode,
		"queue", cfg.Queue.Enabled,
		"scheduler", cfg.Backup.SchedulerEnabled,
	)
	return RunWithOptions(runner, opts)
}
