package service

import (
	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"
)

// BackupSetting 定时备份配置
type BackupSetting struct {
	AutoEnabled    bool `json:"auto_enabled"`
	Weekday        int  `json:"weekday"`
	Hour           int  `json:"hour"`
	RetentionCount int  `json:"retention_count"`
	RemoteUpload   bool `json:"remote_upload"`
}

// BackupSettingPatch 备份配置补丁
type BackupSettingPatch struct {
	AutoEnabled    *bool `json:"auto_enabled"`
	Weekday        *int  `json:"weekday"`
	Hour           *int  `json:"hour"`
	RetentionCount *int  `json:"retention_count"`
	RemoteUpload   *bool `json:"remote_upload"`
}

// BackupDefaultSetting 默认每周五凌晨 3 点
func BackupDefaultSetting() BackupSetting {
	return BackupSetting{
		AutoEnabled:    false,
		Weekday:        5,
		Hour:           3,
		RetentionCount: 10,
	}
}

// NormalizeBackupSetting 越界的星期与小时回退默认值
func NormalizeBackupSetting(setting BackupSetting) BackupSetting {
	defaults := BackupDefaultSetting()
	if setting.Weekday < 0 || setting.Weekday > 6 {
		setting.Weekday = defaults.Weekday
	}
	if setting.Hour < 0 || setting.Hour > 23 {
		setting.Hour = defaults.Hour
	}
	if setting.RetentionCount < 0 {
		setting.RetentionCount = 0
	}
	if setting.RetentionCount > 365 {
		setting.RetentionCount = 365
	}
	return setting
}

// BackupSettingToMap 转为存储结构
func BackupSettingToMap(setting BackupSetting) map[string]interface{} {
	return map[string]interface{}{
		"auto_enabled":    setting.AutoEnabled,
		"weekday":         setting.Weekday,
		"hour":            setting.Hour,
		"retention_count": setting.RetentionCount,
		"remote_upload":   setting.RemoteUpload,
	}
}

func backupSettingFromJSON(raw models.JSON, fallback BackupSetting) BackupSetting {
	next := fallback
	if raw == nil {
		return next
	}
	next.AutoEnabled = readBool(raw, "auto_enabled", next.AutoEnabled)
	next.Weekday = readInt(raw, "weekday", next.Weekday)
	next.Hour = readInt(raw, "hour", next.Hour)
	next.RetentionCount = readInt(raw, "retention_count", next.RetentionCount)
	next.RemoteUpload = readBool(raw, "remote_upload", next.RemoteUpload)
	return next
}

// GetBackupSetting 获取备份配置
func (s *SettingService) GetBackupSetting() (BackupSetting, error) {
	fallback := BackupDefaultSetting()
	value, err := s.GetByKey(constants.SettingKeyBackupConfig)
	if err != nil {
		return fallback, err
	}
	return NormalizeBackupSetting(backupSettingFromJSON(value, fallback)), nil
}

// PatchBackupSetting 更新备份配置，星期与小时越界时报字段错误
func (s *SettingService) PatchBackupSetting(patch BackupSettingPatch) (BackupSetting, error) {
	next, err := s.GetBackupSetting()
	if err != nil {
		return BackupSetting{}, err
	}
	verr := &ValidationError{}
	if patch.AutoEnabled != nil {
		next.AutoEnabled = *patch.AutoEnabled
	}
	if patch.Weekday != nil {
		if *patch.Weekday < 0 || *patch.Weekday > 6 {
			verr.Add("weekday", "range", "must be between 0 and 6")
		}
		next.Weekday = *patch.Weekday
	}
	if patch.Hour != nil {
		if *patch.Hour < 0 || *patch.Hour > 23 {
			verr.Add("hour", "range", "must be between 0 and 23")
		}
		next.Hour = *patch.Hour
	}
	if patch.RetentionCount != nil {
		next.RetentionCount = *patch.RetentionCount
	}
	if patch.RemoteUpload != nil {
		next.RemoteUpload = *patch.RemoteUpload
	}
	if err := verr.OrNil(); err != nil {
		return BackupSetting{}, err
	}
	normalized := NormalizeBackupSetting(next)
	if _, err := s.Update(constants.SettingKeyBackupConfig, BackupSettingToMap(normalized)); err != nil {
		return BackupSetting{}, err
	}
	return normalized, nil
}
