package constants

// 维修单状态常量
const (
	OrderStatusNew          = "NEW"
	OrderStatusInProgress   = "IN_PROGRESS"
	OrderStatusWaitingParts = "WAITING_PARTS"
	OrderStatusReady        = "READY"
	OrderStatusDelivered    = "DELIVERED"
	OrderStatusCanceled     = "CANCELED"
)

// OrderStatuses 全部维修单状态（按展示顺序）
var OrderStatuses = []string{
	OrderStatusNew,
	OrderStatusInProgress,
	OrderStatusWaitingParts,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

// 收款方式常量
const (
	PaymentMethodCash     = "CASH"
	PaymentMethodTransfer = "TRANSFER"
)

// 欠款状态常量
const (
	DebtStatusOpen    = "OPEN"
	DebtStatusPartial = "PARTIAL"
	DebtStatusPaid    = "PAID"
)

// 备份状态与触发方式常量
const (
	BackupStatusSuccess    = "SUCCESS"
	BackupStatusFailed     = "FAILED"
	BackupTriggerScheduled = "scheduled"
	BackupTriggerManual    = "manual"
)

// 定时备份跳过原因
const (
	BackupSkipDisabled         = "disabled"
	BackupSkipScheduleMismatch = "schedule_mismatch"
	BackupSkipLocked           = "locked"
)

// 失败策略（登录限流与验证码共用）
const (
	PolicyEnforced   = "enforced"
	PolicyDisabled   = "disabled"
	PolicyBestEffort = "best_effort"
)

// 登录结果常量
const (
	LoginStatusSuccess       = "success"
	LoginStatusFailed        = "failed"
	LoginStatusLocked        = "locked"
	LoginStatusCaptchaFailed = "captcha_failed"
)

// 验证码提供方常量
const (
	CaptchaProviderImage     = "image"
	CaptchaProviderTurnstile = "turnstile"
)

// 存储驱动常量
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// 系统设置键
const (
	SettingKeyShopConfig         = "shop_config"
	SettingKeyNotificationConfig = "notification_config"
	SettingKeyBackupConfig       = "backup_config"
	SettingKeyStorageConfig      = "storage_config"
)

// 内置角色
const (
	RoleManager    = "manager"
	RoleTechnician = "technician"
	RoleCashier    = "cashier"
)

// 异步队列常量
const (
	QueueDefault     = "default"
	TaskOrderReceipt = "order:receipt"
	TaskOrderNotify  = "order:notify"
)

// 通知事件
const (
	NotifyEventStatusChanged = "status_changed"
	NotifyEventDelivered     = "delivered"
	NotifyEventCreated       = "created"
)
