package models

import "time"

// Debt 欠款记录（合作商户赊账）
// 说明：Status 由金额与已还总额推导，不单独设置。
type Debt struct {
	ID        uint      `gorm:"primarykey" json:"id"`                              // 主键
	ShopName  string    `gorm:"type:varchar(120);index;not null" json:"shop_name"` // 商户名称
	Phone     string    `gorm:"type:varchar(32);index" json:"phone,omitempty"`     // 联系电话
	Service   string    `gorm:"type:varchar(255);not null" json:"service"`         // 服务内容
	Amount    Money     `gorm:"type:decimal(20,2);not null" json:"amount"`         // 欠款金额
	Status    string    `gorm:"type:varchar(16);index;not null" json:"status"`     // 状态（OPEN/PARTIAL/PAID）
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`                  // 备注
	CreatedAt time.Time `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                        // 更新时间

	Payments []DebtPayment `gorm:"foreignKey:DebtID" json:"payments,omitempty"` // 还款记录
}

// TableName 指定表名
func (Debt) TableName() string {
	return "debts"
}

// DebtPayment 还款记录（只追加）
type DebtPayment struct {
	ID     uint      `gorm:"primarykey" json:"id"`                      // 主键
	DebtID uint      `gorm:"index;not null" json:"debt_id"`             // 欠款ID
	Amount Money     `gorm:"type:decimal(20,2);not null" json:"amount"` // 还款金额
	At     time.Time `gorm:"index;not null" json:"at"`                  // 还款时间
}

// TableName 指定表名
func (DebtPayment) TableName() string {
	return "debt_payments"
}
