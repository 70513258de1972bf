package repository

import (
	"errors"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"

	"gorm.io/gorm"
)

// BackupLogRepository 备份记录数据访问接口
type BackupLogRepository interface {
	Create(log *models.BackupLog) error
	GetByID(id uint) (*models.BackupLog, error)
	List(page, pageSize int) ([]models.BackupLog, int64, error)
	ListSuccessful() ([]models.BackupLog, error)
	Delete(id uint) error
}

// GormBackupLogRepository GORM 实现
type GormBackupLogRepository struct {
	db *gorm.DB
}

// NewBackupLogRepository 创建备份记录仓库
func NewBackupLogRepository(db *gorm.DB) *GormBackupLogRepository {
	return &GormBackupLogRepository{db: db}
}

// Create 写入备份记录
func (r *GormBackupLogRepository) Create(log *models.BackupLog) error {
	return r.db.Create(log).Error
}

// GetByID 根据 ID 获取备份记录
func (r *GormBackupLogRepository) GetByID(id uint) (*models.BackupLog, error) {
	var log models.BackupLog
	if err := r.db.First(&log, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// List 分页查询备份记录
func (r *GormBackupLogRepository) List(page, pageSize int) ([]models.BackupLog, int64, error) {
	query := r.db.Model(&models.BackupLog{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	logs := make([]models.BackupLog, 0)
	if err := applyPagination(query.Order("id DESC"), page, pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// ListSuccessful 获取成功的备份（新的在前）
func (r *GormBackupLogRepository) ListSuccessful() ([]models.BackupLog, error) {
	logs := make([]models.BackupLog, 0)
	if err := r.db.Where("status = ?", constants.BackupStatusSuccess).Order("id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Delete 删除备份记录
func (r *GormBackupLogRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.BackupLog{}, id).Error
}
