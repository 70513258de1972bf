package models

import "time"

// Setting 门店设置（shop_config / notification_config / backup_config / storage_config 各一行）
type Setting struct {
	Key       string    `gorm:"primarykey;type:varchar(64)" json:"key"`
	ValueJSON JSON      `gorm:"type:json" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}
