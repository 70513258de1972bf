package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/go-co-op/gocron"
)

// BackupChecker 定时备份检查
type BackupChecker interface {
	MaybeRunScheduledBackup(ctx context.Context, now time.Time) (*service.ScheduleResult, error)
}

// Scheduler 每分钟触发一次定时备份检查
// 本进程记录最近一次成功备份的小时，锁存储不可用时同一小时也只备份一次。
type Scheduler struct {
	scheduler *gocron.Scheduler
	backups   BackupChecker
	location  *time.Location
	done      chan struct{}

	mu          sync.Mutex
	lastRunHour string
}

// NewScheduler 创建调度服务
func NewScheduler(backups BackupChecker, location *time.Location) (*Scheduler, error) {
	if backups == nil {
		return nil, errors.New("backup service is nil")
	}
	if location == nil {
		location = time.UTC
	}
	s := &Scheduler{
		scheduler: gocron.NewScheduler(location),
		backups:   backups,
		location:  location,
		done:      make(chan struct{}),
	}
	s.scheduler.SingletonModeAll()
	if _, err := s.scheduler.Every(1).Minute().Do(s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

// Name 服务名称
func (s *Scheduler) Name() string { return "scheduler" }

// Start 启动后阻塞至 ctx 结束或 Stop
func (s *Scheduler) Start(ctx context.Context) error {
	s.scheduler.StartAsync()
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// Stop 停止调度
func (s *Scheduler) Stop(_ context.Context) error {
	s.scheduler.Stop()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

func (s *Scheduler) tick() {
	s.check(context.Background(), time.Now())
}

func (s *Scheduler) check(ctx context.Context, now time.Time) {
	hour := now.In(s.location).Format("2006010215")
	if s.ranInHour(hour) {
		logger.Debugw("scheduled_backup_skipped", "reason", "already_ran")
		return
	}
	result, err := s.backups.MaybeRunScheduledBackup(ctx, now)
	if err != nil {
		logger.Errorw("scheduled_backup_failed", "error", err)
		return
	}
	if result == nil {
		return
	}
	if result.Ran {
		s.mu.Lock()
		s.lastRunHour = hour
		s.mu.Unlock()
		fields := []interface{}{"trigger", "scheduled"}
		if result.Log != nil {
			fields = append(fields, "backup_id", result.Log.ID, "file", result.Log.FileName)
		}
		logger.Infow("scheduled_backup_done", fields...)
		return
	}
	logger.Debugw("scheduled_backup_skipped", "reason", result.Reason)
}

func (s *Scheduler) ranInHour(hour string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunHour == hour
}
