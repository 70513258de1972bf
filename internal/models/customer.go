package models

import "time"

// Customer 客户表（按手机号唯一）
type Customer struct {
	ID        uint      `gorm:"primarykey" json:"id"`                               // 主键
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`             // 客户姓名
	Phone     string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone"` // 手机号（规范化后的数字）
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`                   // 备注
	CreatedAt time.Time `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                         // 更新时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
