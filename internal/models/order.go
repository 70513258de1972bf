package models

import "time"

// Order 维修单
// 说明：CollectedPrice 仅在交付后写入，写入后维修内容与价格不可再修改。
type Order struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                        // 主键
	Code           string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`           // 维修单编号（公开追踪用）
	CustomerID     uint       `gorm:"index;not null" json:"customer_id"`                           // 客户ID
	DeviceModel    string     `gorm:"type:varchar(120)" json:"device_model,omitempty"`             // 设备型号
	IMEI           string     `gorm:"type:varchar(32);index" json:"imei,omitempty"`                // IMEI / 序列号
	Service        string     `gorm:"type:varchar(255);not null" json:"service"`                   // 维修项目
	OriginalPrice  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"original_price"` // 报价
	ExtraCharge    Money      `gorm:"type:decimal(20,2);not null;default:0" json:"extra_charge"`   // 额外费用
	ExtraReason    *string    `gorm:"type:varchar(255)" json:"extra_reason"`                       // 额外费用原因
	CollectedPrice *Money     `gorm:"type:decimal(20,2)" json:"collected_price"`                   // 实收金额（交付后写入）
	PaymentMethod  *string    `gorm:"type:varchar(16)" json:"payment_method"`                      // 收款方式（CASH/TRANSFER）
	Status         string     `gorm:"type:varchar(20);index;not null" json:"status"`               // 维修单状态
	CollectedAt    *time.Time `gorm:"index" json:"collected_at"`                                   // 交付时间
	ReceiptURL     *string    `gorm:"type:varchar(500)" json:"receipt_url"`                        // 回执地址
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt      time.Time  `gorm:"index" json:"updated_at"`                                     // 更新时间

	Customer  *Customer        `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 客户
	StatusLog []OrderStatusLog `gorm:"foreignKey:OrderID" json:"status_log,omitempty"`  // 状态流转记录
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// IsLocked 是否已锁定（已收款）
func (o *Order) IsLocked() bool {
	return o != nil && o.CollectedPrice != nil
}

// OrderStatusLog 维修单状态流转记录（只追加）
type OrderStatusLog struct {
	ID      uint      `gorm:"primarykey" json:"id"`                                 // 主键
	OrderID uint      `gorm:"index;not null" json:"order_id"`                       // 维修单ID
	From    *string   `gorm:"column:from_status;type:varchar(20)" json:"from"`      // 原状态（创建时为空）
	To      string    `gorm:"column:to_status;type:varchar(20);not null" json:"to"` // 新状态
	At      time.Time `gorm:"index;not null" json:"at"`                             // 流转时间
	Note    *string   `gorm:"type:varchar(500)" json:"note"`                        // 备注
}

// TableName 指定表名
func (OrderStatusLog) TableName() string {
	return "order_status_logs"
}
