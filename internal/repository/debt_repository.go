package repository

import (
	"errors"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/models"

	"gorm.io/gorm"
)

// DebtRepository 欠款数据访问接口
type DebtRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) DebtRepository

	Create(debt *models.Debt) error
	GetByID(id uint) (*models.Debt, error)
	GetByIDForUpdate(id uint) (*models.Debt, error)
	GetDetail(id uint) (*models.Debt, error)
	Update(debt *models.Debt) error
	Delete(id uint) error
	List(filter DebtListFilter) ([]models.Debt, int64, error)
	ListAll() ([]models.Debt, error)

	CreatePayment(payment *models.DebtPayment) error
	GetPaymentByID(id uint) (*models.DebtPayment, error)
	ListPayments(debtID uint) ([]models.DebtPayment, error)
	ListAllPayments() ([]models.DebtPayment, error)
	SyncIDSequences() error
}

// GormDebtRepository GORM 实现
type GormDebtRepository struct {
	db *gorm.DB
}

// NewDebtRepository 创建欠款仓库
func NewDebtRepository(db *gorm.DB) *GormDebtRepository {
	return &GormDebtRepository{db: db}
}

// Transaction 执行事务
func (r *GormDebtRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// WithTx 绑定事务
func (r *GormDebtRepository) WithTx(tx *gorm.DB) DebtRepository {
	if tx == nil {
		return r
	}
	return &GormDebtRepository{db: tx}
}

// Create 创建欠款
func (r *GormDebtRepository) Create(debt *models.Debt) error {
	return r.db.Create(debt).Error
}

// GetByID 根据 ID 获取欠款
func (r *GormDebtRepository) GetByID(id uint) (*models.Debt, error) {
	var debt models.Debt
	if err := r.db.First(&debt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &debt, nil
}

// GetByIDForUpdate 在事务内加锁读取欠款
func (r *GormDebtRepository) GetByIDForUpdate(id uint) (*models.Debt, error) {
	var debt models.Debt
	if err := forUpdate(r.db).First(&debt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &debt, nil
}

// GetDetail 获取欠款及还款记录
func (r *GormDebtRepository) GetDetail(id uint) (*models.Debt, error) {
	var debt models.Debt
	err := r.db.
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&debt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &debt, nil
}

// Update 保存欠款
func (r *GormDebtRepository) Update(debt *models.Debt) error {
	return r.db.Omit("Payments").Save(debt).Error
}

// Delete 删除欠款及还款记录（需在事务中调用）
func (r *GormDebtRepository) Delete(id uint) error {
	if err := r.db.Where("debt_id = ?", id).Delete(&models.DebtPayment{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Debt{}, id).Error
}

// List 分页查询欠款
func (r *GormDebtRepository) List(filter DebtListFilter) ([]models.Debt, int64, error) {
	query := r.db.Model(&models.Debt{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	query = applyKeywordSearch(query, filter.Search, "shop_name", "phone", "service")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	debts := make([]models.Debt, 0)
	err := applyPagination(query.Preload("Payments").Order("id DESC"), filter.Page, filter.PageSize).
		Find(&debts).Error
	if err != nil {
		return nil, 0, err
	}
	return debts, total, nil
}

// ListAll 获取全部欠款（备份与导出用）
func (r *GormDebtRepository) ListAll() ([]models.Debt, error) {
	debts := make([]models.Debt, 0)
	if err := r.db.Preload("Payments").Order("id ASC").Find(&debts).Error; err != nil {
		return nil, err
	}
	return debts, nil
}

// CreatePayment 写入还款记录
func (r *GormDebtRepository) CreatePayment(payment *models.DebtPayment) error {
	return r.db.Create(payment).Error
}

// GetPaymentByID 根据 ID 获取还款记录
func (r *GormDebtRepository) GetPaymentByID(id uint) (*models.DebtPayment, error) {
	var payment models.DebtPayment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ListPayments 获取欠款的还款记录
func (r *GormDebtRepository) ListPayments(debtID uint) ([]models.DebtPayment, error) {
	payments := make([]models.DebtPayment, 0)
	if err := r.db.Where("debt_id = ?", debtID).Order("id ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ListAllPayments 获取全部还款记录（备份用）
func (r *GormDebtRepository) ListAllPayments() ([]models.DebtPayment, error) {
	payments := make([]models.DebtPayment, 0)
	if err := r.db.Order("id ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// SyncIDSequences 恢复备份（显式主键写入）后校正自增序列
func (r *GormDebtRepository) SyncIDSequences() error {
	if err := syncIDSequence(r.db, models.Debt{}.TableName()); err != nil {
		return err
	}
	return syncIDSequence(r.db, models.DebtPayment{}.TableName())
}
