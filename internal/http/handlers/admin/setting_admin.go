package admin

import (
	handlershared "github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/http/response"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// GetShopSetting 门店信息
func (h *Handler) GetShopSetting(c *gin.Context) {
	setting, err := h.SettingService.GetShopSetting()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, setting)
}

// UpdateShopSetting 更新门店信息
func (h *Handler) UpdateShopSetting(c *gin.Context) {
	var patch service.ShopSettingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}
	setting, err := h.SettingService.PatchShopSetting(patch)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Cache.Del(c.Request.Context(), handlershared.PublicConfigCacheKey); err != nil {
		requestLog(c).Warnw("admin_public_config_cache_del_failed", "error", err)
	}
	response.Success(c, setting)
}

// GetNotificationSetting 通知模板
func (h *Handler) GetNotificationSetting(c *gin.Context) {
	setting, err := h.SettingService.GetNotificationSetting()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, setting)
}

// UpdateNotificationSetting 更新通知模板
func (h *Handler) UpdateNotificationSetting(c *gin.Context) {
	var patch service.NotificationSettingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}
	setting, err := h.SettingService.PatchNotificationSetting(patch)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, setting)
}

// GetBackupSetting 备份计划
func (h *Handler) GetBackupSetting(c *gin.Context) {
	setting, err := h.SettingService.GetBackupSetting()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, setting)
}

// UpdateBackupSetting 更新备份计划
func (h *Handler) UpdateBackupSetting(c *gin.Context) {
	var patch service.BackupSettingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}
	setting, err := h.SettingService.PatchBackupSetting(patch)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, setting)
}

// GetStorageSetting 存储配置（密钥脱敏）
func (h *Handler) GetStorageSetting(c *gin.Context) {
	setting, err := h.SettingService.GetStorageSetting()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, service.MaskStorageSettingForAdmin(setting))
}

// UpdateStorageSetting 更新存储配置，未提交的密钥保持不变
func (h *Handler) UpdateStorageSetting(c *gin.Context) {
	var patch service.StorageSettingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}
	setting, err := h.SettingService.PatchStorageSetting(patch)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, service.MaskStorageSettingForAdmin(setting))
}
