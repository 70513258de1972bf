package repository

import (
	"errors"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 维修单数据访问接口
type OrderRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository

	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetDetail(id uint) (*models.Order, error)
	GetByCode(code string) (*models.Order, error)
	ExistsByCode(code string) (bool, error)
	Update(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	List(filter OrderListFilter) ([]models.Order, int64, error)
	ListAll() ([]models.Order, error)
	CountByCustomer(customerID uint) (int64, error)

	AppendStatusLog(log *models.OrderStatusLog) error
	ListStatusLogs(orderID uint) ([]models.OrderStatusLog, error)
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建维修单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建维修单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取维修单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 在事务内加锁读取维修单
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	if err := forUpdate(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetDetail 获取维修单详情（含客户与状态记录）
func (r *GormOrderRepository) GetDetail(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.
		Preload("Customer").
		Preload("StatusLog", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByCode 根据编号获取维修单（含客户与状态记录）
func (r *GormOrderRepository) GetByCode(code string) (*models.Order, error) {
	var order models.Order
	err := r.db.
		Preload("Customer").
		Preload("StatusLog", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("code = ?", code).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ExistsByCode 判断编号是否已存在
func (r *GormOrderRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Order{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update 按字段更新维修单
func (r *GormOrderRepository) Update(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// Delete 删除维修单及其状态记录（需在事务中调用）
func (r *GormOrderRepository) Delete(id uint) error {
	if err := r.db.Where("order_id = ?", id).Delete(&models.OrderStatusLog{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Order{}, id).Error
}

// List 分页查询维修单
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("orders.status = ?", status)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("orders.code = ?", strings.ToUpper(code))
	}
	if filter.CustomerID != 0 {
		query = query.Where("orders.customer_id = ?", filter.CustomerID)
	}
	if phone := strings.TrimSpace(filter.Phone); phone != "" {
		query = query.Where("orders.customer_id IN (?)",
			r.db.Model(&models.Customer{}).Select("id").Where("phone = ?", phone))
	}
	query = applyKeywordSearch(query, filter.Search, "orders.code", "orders.device_model", "orders.imei", "orders.service")
	if filter.CreatedFrom != nil {
		query = query.Where("orders.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("orders.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]models.Order, 0)
	err := applyPagination(query.Preload("Customer").Order("orders.id DESC"), filter.Page, filter.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListAll 获取全部维修单及状态记录（备份用）
func (r *GormOrderRepository) ListAll() ([]models.Order, error) {
	orders := make([]models.Order, 0)
	err := r.db.
		Preload("StatusLog", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// CountByCustomer 统计客户维修单数量
func (r *GormOrderRepository) CountByCustomer(customerID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Order{}).Where("customer_id = ?", customerID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AppendStatusLog 追加状态记录
func (r *GormOrderRepository) AppendStatusLog(log *models.OrderStatusLog) error {
	return r.db.Create(log).Error
}

// ListStatusLogs 获取状态记录
func (r *GormOrderRepository) ListStatusLogs(orderID uint) ([]models.OrderStatusLog, error) {
	logs := make([]models.OrderStatusLog, 0)
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
