package repository

import "time"

// OrderListFilter 查询维修单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	Status      string
	Code        string
	Phone       string
	Search      string
	CustomerID  uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// DebtListFilter 查询欠款列表的过滤条件
type DebtListFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// CustomerListFilter 查询客户列表的过滤条件
type CustomerListFilter struct {
	Page     int
	PageSize int
	Search   string
}

// LoginLogListFilter 查询登录日志列表的过滤条件
type LoginLogListFilter struct {
	Page        int
	PageSize    int
	Username    string
	Status      string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
