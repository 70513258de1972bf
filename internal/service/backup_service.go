package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"
	"github.com/snipero7/qr24-sub000/internal/storage"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"gorm.io/gorm"
)

const (
	backupSnapshotVersion = 1
	backupKeyPrefix       = "backups/"
)

// backupSnapshot 备份文件内容（gzip 压缩的 JSON）
type backupSnapshot struct {
	Version   int                  `json:"version"`
	CreatedAt time.Time            `json:"created_at"`
	Customers []models.Customer    `json:"customers"`
	Orders    []models.Order       `json:"orders"`
	Debts     []models.Debt        `json:"debts"`
	Payments  []models.DebtPayment `json:"payments"`
}

// ScheduleResult 定时备份检查结果
type ScheduleResult struct {
	Ran    bool              `json:"ran"`
	Reason string            `json:"reason,omitempty"`
	Log    *models.BackupLog `json:"log,omitempty"`
}

// RestoreResult 恢复统计
type RestoreResult struct {
	CustomersCreated int `json:"customers_created"`
	OrdersCreated    int `json:"orders_created"`
	OrdersSkipped    int `json:"orders_skipped"`
	DebtsCreated     int `json:"debts_created"`
	DebtsSkipped     int `json:"debts_skipped"`
	PaymentsCreated  int `json:"payments_created"`
	PaymentsSkipped  int `json:"payments_skipped"`
}

// BackupServiceOptions 备份服务参数
type BackupServiceOptions struct {
	Location *time.Location
	LockTTL  time.Duration
}

// BackupService 备份与恢复
type BackupService struct {
	backupRepo   repository.BackupLogRepository
	customerRepo repository.CustomerRepository
	orderRepo    repository.OrderRepository
	debtRepo     repository.DebtRepository
	settings     *SettingService
	storage      *StorageService
	locker       BackupLocker
	location     *time.Location
	lockTTL      time.Duration
	now          func() time.Time
}

// NewBackupService 创建备份服务
func NewBackupService(
	backupRepo repository.BackupLogRepository,
	customerRepo repository.CustomerRepository,
	orderRepo repository.OrderRepository,
	debtRepo repository.DebtRepository,
	settings *SettingService,
	storageService *StorageService,
	locker BackupLocker,
	opts BackupServiceOptions,
) *BackupService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Hour
	}
	return &BackupService{
		backupRepo:   backupRepo,
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		debtRepo:     debtRepo,
		settings:     settings,
		storage:      storageService,
		locker:       locker,
		location:     opts.Location,
		lockTTL:      opts.LockTTL,
		now:          time.Now,
	}
}

// MaybeRunScheduledBackup 定时检查：未启用、时间不符、本小时已执行时跳过
// 锁存储不可用时仍执行备份（可能重复执行）。
func (s *BackupService) MaybeRunScheduledBackup(ctx context.Context, now time.Time) (*ScheduleResult, error) {
	setting, err := s.settings.GetBackupSetting()
	if err != nil {
		return nil, err
	}
	if !setting.AutoEnabled {
		return &ScheduleResult{Reason: constants.BackupSkipDisabled}, nil
	}
	local := now.In(s.location)
	if !ShouldRun(local, setting.Weekday, setting.Hour) {
		return &ScheduleResult{Reason: constants.BackupSkipScheduleMismatch}, nil
	}

	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, BackupLockKey(local), s.lockTTL)
		switch {
		case err != nil:
			logger.Warnw("backup_lock_unavailable_proceeding", "key", BackupLockKey(local), "error", err)
		case !acquired:
			return &ScheduleResult{Reason: constants.BackupSkipLocked}, nil
		}
	} else {
		logger.Warnw("backup_lock_not_configured_proceeding", "key", BackupLockKey(local))
	}

	log, err := s.createBackup(ctx, constants.BackupTriggerScheduled, setting)
	if err != nil {
		return &ScheduleResult{Ran: true, Log: log}, err
	}
	return &ScheduleResult{Ran: true, Log: log}, nil
}

// CreateBackupNow 手动备份（不经过时间与锁检查）
func (s *BackupService) CreateBackupNow(ctx context.Context) (*models.BackupLog, error) {
	setting, err := s.settings.GetBackupSetting()
	if err != nil {
		return nil, err
	}
	return s.createBackup(ctx, constants.BackupTriggerManual, setting)
}

func (s *BackupService) createBackup(ctx context.Context, trigger string, setting BackupSetting) (*models.BackupLog, error) {
	now := s.now()
	fileName := fmt.Sprintf("backup-%s-%s.json.gz", now.In(s.location).Format("20060102-150405"), uuid.NewString()[:8])
	log := &models.BackupLog{
		FileName:  fileName,
		Status:    constants.BackupStatusSuccess,
		Trigger:   trigger,
		CreatedAt: now,
	}

	data, err := s.buildArchive(now)
	if err == nil {
		var url string
		url, err = s.storage.Local().Put(ctx, backupKeyPrefix+fileName, data, "application/gzip")
		if err == nil {
			log.FileURL = &url
			log.SizeBytes = int64(len(data))
		}
	}
	if err != nil {
		log.Status = constants.BackupStatusFailed
		log.Error = err.Error()
		if createErr := s.backupRepo.Create(log); createErr != nil {
			logger.Errorw("backup_log_create_failed", "file_name", fileName, "error", createErr)
		}
		logger.Errorw("backup_failed", "trigger", trigger, "file_name", fileName, "error", err)
		return log, err
	}

	if setting.RemoteUpload {
		s.uploadRemote(ctx, log, data)
	}
	if err := s.backupRepo.Create(log); err != nil {
		return nil, err
	}
	logger.Infow("backup_created", "trigger", trigger, "file_name", fileName, "size_bytes", log.SizeBytes)

	if setting.RetentionCount > 0 {
		s.applyRetention(ctx, setting.RetentionCount)
	}
	return log, nil
}

func (s *BackupService) uploadRemote(ctx context.Context, log *models.BackupLog, data []byte) {
	remote, err := s.storage.Remote()
	if err != nil {
		logger.Warnw("backup_remote_resolve_failed", "file_name", log.FileName, "error", err)
		return
	}
	if remote == nil {
		logger.Warnw("backup_remote_not_configured", "file_name", log.FileName)
		return
	}
	url, err := remote.Put(ctx, backupKeyPrefix+log.FileName, data, "application/gzip")
	if err != nil {
		logger.Warnw("backup_remote_upload_failed", "file_name", log.FileName, "error", err)
		return
	}
	log.RemoteURL = &url
}

// applyRetention 只保留最近 keep 份本地备份
func (s *BackupService) applyRetention(ctx context.Context, keep int) {
	logs, err := s.backupRepo.ListSuccessful()
	if err != nil {
		logger.Warnw("backup_retention_list_failed", "error", err)
		return
	}
	if len(logs) <= keep {
		return
	}
	for _, old := range logs[keep:] {
		if err := s.storage.Local().Delete(ctx, backupKeyPrefix+old.FileName); err != nil {
			logger.Warnw("backup_retention_delete_file_failed", "backup_id", old.ID, "error", err)
			continue
		}
		if err := s.backupRepo.Delete(old.ID); err != nil {
			logger.Warnw("backup_retention_delete_log_failed", "backup_id", old.ID, "error", err)
		}
	}
}

func (s *BackupService) buildArchive(now time.Time) ([]byte, error) {
	customers, err := s.customerRepo.ListAll()
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListAll()
	if err != nil {
		return nil, err
	}
	debts, err := s.debtRepo.ListAll()
	if err != nil {
		return nil, err
	}
	payments, err := s.debtRepo.ListAllPayments()
	if err != nil {
		return nil, err
	}
	for i := range debts {
		debts[i].Payments = nil
	}
	snapshot := backupSnapshot{
		Version:   backupSnapshotVersion,
		CreatedAt: now,
		Customers: customers,
		Orders:    orders,
		Debts:     debts,
		Payments:  payments,
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(snapshot); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// List 分页查询备份记录
func (s *BackupService) List(page, pageSize int) ([]models.BackupLog, int64, error) {
	return s.backupRepo.List(page, pageSize)
}

// Delete 删除备份记录，removeFile 时同时删除本地文件
func (s *BackupService) Delete(ctx context.Context, id uint, removeFile bool) error {
	log, err := s.backupRepo.GetByID(id)
	if err != nil {
		return err
	}
	if log == nil {
		return fmt.Errorf("%w: backup %d", ErrNotFound, id)
	}
	if removeFile && log.FileURL != nil {
		if err := s.storage.Local().Delete(ctx, backupKeyPrefix+log.FileName); err != nil {
			return err
		}
	}
	return s.backupRepo.Delete(id)
}

// Restore 从本地备份增量恢复：按自然键跳过已存在的数据，从不覆盖，单事务执行
func (s *BackupService) Restore(ctx context.Context, id uint) (*RestoreResult, error) {
	log, err := s.backupRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("%w: backup %d", ErrNotFound, id)
	}
	if log.Status != constants.BackupStatusSuccess || log.FileURL == nil {
		return nil, fmt.Errorf("%w: only local backups can be restored", ErrUnsupported)
	}
	snapshot, err := s.readSnapshot(ctx, log.FileName)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		*result = RestoreResult{}
		return s.mergeSnapshot(tx, snapshot, result)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("backup_restored",
		"backup_id", id,
		"orders_created", result.OrdersCreated,
		"orders_skipped", result.OrdersSkipped,
		"debts_created", result.DebtsCreated,
		"payments_created", result.PaymentsCreated,
	)
	return result, nil
}

func (s *BackupService) readSnapshot(ctx context.Context, fileName string) (*backupSnapshot, error) {
	reader, err := s.storage.Local().Open(ctx, backupKeyPrefix+fileName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBackupFileMissing, fileName)
		}
		return nil, err
	}
	defer reader.Close()

	gz, err := gzip.NewReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open backup archive: %w", err)
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("read backup archive: %w", err)
	}
	var snapshot backupSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode backup archive: %w", err)
	}
	return &snapshot, nil
}

func (s *BackupService) mergeSnapshot(tx *gorm.DB, snapshot *backupSnapshot, result *RestoreResult) error {
	customerRepo := s.customerRepo.WithTx(tx)
	orderRepo := s.orderRepo.WithTx(tx)
	debtRepo := s.debtRepo.WithTx(tx)

	customerIDs := make(map[uint]uint, len(snapshot.Customers))
	for _, item := range snapshot.Customers {
		phone := NormalizePhone(item.Phone)
		existing, err := customerRepo.GetByPhone(phone)
		if err != nil {
			return err
		}
		if existing != nil {
			customerIDs[item.ID] = existing.ID
			continue
		}
		customer := &models.Customer{
			Name:      item.Name,
			Phone:     phone,
			Notes:     item.Notes,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		}
		if err := customerRepo.Create(customer); err != nil {
			return err
		}
		customerIDs[item.ID] = customer.ID
		result.CustomersCreated++
	}

	for _, item := range snapshot.Orders {
		exists, err := orderRepo.ExistsByCode(item.Code)
		if err != nil {
			return err
		}
		customerID, ok := customerIDs[item.CustomerID]
		if exists || !ok {
			result.OrdersSkipped++
			continue
		}
		logs := item.StatusLog
		order := item
		order.ID = 0
		order.CustomerID = customerID
		order.Customer = nil
		order.StatusLog = nil
		if err := orderRepo.Create(&order); err != nil {
			return err
		}
		for _, entry := range logs {
			entry.ID = 0
			entry.OrderID = order.ID
			if err := orderRepo.AppendStatusLog(&entry); err != nil {
				return err
			}
		}
		result.OrdersCreated++
	}

	touched := make(map[uint]struct{})
	for _, item := range snapshot.Debts {
		existing, err := debtRepo.GetByID(item.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.DebtsSkipped++
			continue
		}
		debt := item
		debt.Payments = nil
		if err := debtRepo.Create(&debt); err != nil {
			return err
		}
		// 快照中的状态不可信，恢复的欠款一律按实际还款重算
		touched[debt.ID] = struct{}{}
		result.DebtsCreated++
	}

	for _, item := range snapshot.Payments {
		existing, err := debtRepo.GetPaymentByID(item.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.PaymentsSkipped++
			continue
		}
		debt, err := debtRepo.GetByID(item.DebtID)
		if err != nil {
			return err
		}
		if debt == nil {
			result.PaymentsSkipped++
			continue
		}
		payment := item
		if err := debtRepo.CreatePayment(&payment); err != nil {
			return err
		}
		touched[item.DebtID] = struct{}{}
		result.PaymentsCreated++
	}

	for debtID := range touched {
		debt, err := debtRepo.GetByID(debtID)
		if err != nil {
			return err
		}
		payments, err := debtRepo.ListPayments(debtID)
		if err != nil {
			return err
		}
		debt.Status = RecomputeDebtStatus(debt.Amount.Decimal, sumPayments(payments))
		if err := debtRepo.Update(debt); err != nil {
			return err
		}
	}
	if result.DebtsCreated > 0 || result.PaymentsCreated > 0 {
		return debtRepo.SyncIDSequences()
	}
	return nil
}
