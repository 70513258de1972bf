package service

import (
	"context"
	"time"
)

// BackupLocker 同一时段备份去重锁（SET NX EX）
type BackupLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ShouldRun 判断 now 是否落在配置的星期与小时内
// now 需由调用方先转换到门店时区。
func ShouldRun(now time.Time, weekday, hour int) bool {
	return int(now.Weekday()) == weekday && now.Hour() == hour
}

// BackupLockKey 按小时粒度生成锁键
func BackupLockKey(now time.Time) string {
	return "backup:lock:" + now.Format("2006010215")
}
