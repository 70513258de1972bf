package repository

import "gorm.io/gorm"

// MaxPageSize 列表接口单页上限
const MaxPageSize = 200

// applyPagination 追加 LIMIT/OFFSET；pageSize <= 0 表示不分页（导出、备份使用）
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
