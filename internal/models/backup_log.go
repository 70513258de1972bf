package models

import "time"

// BackupLog 备份记录
type BackupLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`                          // 主键
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`   // 备份文件名
	FileURL   *string   `gorm:"type:varchar(500)" json:"file_url"`             // 本地存储地址
	RemoteURL *string   `gorm:"type:varchar(500)" json:"remote_url"`           // 远端副本地址
	SizeBytes int64     `gorm:"not null;default:0" json:"size_bytes"`          // 压缩后大小
	Status    string    `gorm:"type:varchar(16);index;not null" json:"status"` // SUCCESS / FAILED
	Trigger   string    `gorm:"type:varchar(16);not null" json:"trigger"`      // scheduled / manual
	Error     string    `gorm:"type:text" json:"error,omitempty"`              // 失败原因
	CreatedAt time.Time `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (BackupLog) TableName() string {
	return "backup_logs"
}
