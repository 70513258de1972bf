package admin

import (
	"strconv"
	"time"

	handlershared "github.com/snipero7/qr24-sub000/internal/http/handlers/shared"
	"github.com/snipero7/qr24-sub000/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetAdminBackups 备份记录列表
func (h *Handler) GetAdminBackups(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	logs, total, err := h.BackupService.List(page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPage(c, logs, response.NewPagination(page, pageSize, total))
}

// CreateAdminBackup 立即备份
func (h *Handler) CreateAdminBackup(c *gin.Context) {
	log, err := h.BackupService.CreateBackupNow(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, log)
}

// RunScheduledBackupCheck 手动触发一次定时检查
func (h *Handler) RunScheduledBackupCheck(c *gin.Context) {
	result, err := h.BackupService.MaybeRunScheduledBackup(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// RestoreAdminBackup 从备份追加恢复
func (h *Handler) RestoreAdminBackup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.BackupService.Restore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteAdminBackup 删除备份记录，remove_file=true 时同时删除文件
func (h *Handler) DeleteAdminBackup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	removeFile, _ := strconv.ParseBool(c.DefaultQuery("remove_file", "false"))
	if err := h.BackupService.Delete(c.Request.Context(), id, removeFile); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}
