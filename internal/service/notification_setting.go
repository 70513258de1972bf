package service

import (
	"strings"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"
)

// NotificationSetting WhatsApp 通知配置
type NotificationSetting struct {
	Enabled   bool              `json:"enabled"`
	Templates map[string]string `json:"templates"`
}

// NotificationSettingPatch 通知配置补丁
type NotificationSettingPatch struct {
	Enabled   *bool             `json:"enabled"`
	Templates map[string]string `json:"templates"`
}

// NotificationDefaultSetting 默认通知模板（按事件）
func NotificationDefaultSetting() NotificationSetting {
	return NotificationSetting{
		Enabled: false,
		Templates: map[string]string{
			constants.NotifyEventCreated:       "مرحباً {customer}، تم استلام جهازك {device} برقم طلب {code}. تتبع الطلب: {track_url}",
			constants.NotifyEventStatusChanged: "مرحباً {customer}، حالة طلبك {code} أصبحت: {status}. {track_url}",
			constants.NotifyEventDelivered:     "شكراً {customer}، تم تسليم جهازك {device}. المبلغ المدفوع {price}. {shop}",
		},
	}
}

// NormalizeNotificationSetting 归一化通知配置，缺失的模板回退默认值
func NormalizeNotificationSetting(setting NotificationSetting) NotificationSetting {
	defaults := NotificationDefaultSetting().Templates
	templates := make(map[string]string, len(defaults))
	for event, tpl := range defaults {
		templates[event] = tpl
	}
	for event, tpl := range setting.Templates {
		if _, ok := defaults[event]; !ok {
			continue
		}
		if trimmed := strings.TrimSpace(tpl); trimmed != "" {
			templates[event] = trimmed
		}
	}
	setting.Templates = templates
	return setting
}

// NotificationSettingToMap 转为存储结构
func NotificationSettingToMap(setting NotificationSetting) map[string]interface{} {
	templates := make(map[string]interface{}, len(setting.Templates))
	for event, tpl := range setting.Templates {
		templates[event] = tpl
	}
	return map[string]interface{}{
		"enabled":   setting.Enabled,
		"templates": templates,
	}
}

func notificationSettingFromJSON(raw models.JSON, fallback NotificationSetting) NotificationSetting {
	next := fallback
	if raw == nil {
		return next
	}
	next.Enabled = readBool(raw, "enabled", next.Enabled)
	if templates := toStringAnyMap(raw["templates"]); templates != nil {
		merged := make(map[string]string, len(next.Templates))
		for event, tpl := range next.Templates {
			merged[event] = tpl
		}
		for event := range templates {
			merged[event] = readString(templates, event, merged[event])
		}
		next.Templates = merged
	}
	return next
}

// GetNotificationSetting 获取通知配置
func (s *SettingService) GetNotificationSetting() (NotificationSetting, error) {
	fallback := NotificationDefaultSetting()
	value, err := s.GetByKey(constants.SettingKeyNotificationConfig)
	if err != nil {
		return fallback, err
	}
	return NormalizeNotificationSetting(notificationSettingFromJSON(value, fallback)), nil
}

// PatchNotificationSetting 更新通知配置
func (s *SettingService) PatchNotificationSetting(patch NotificationSettingPatch) (NotificationSetting, error) {
	next, err := s.GetNotificationSetting()
	if err != nil {
		return NotificationSetting{}, err
	}
	if patch.Enabled != nil {
		next.Enabled = *patch.Enabled
	}
	for event, tpl := range patch.Templates {
		if _, ok := next.Templates[event]; !ok {
			return NotificationSetting{}, fieldError("templates."+event, "oneof", "unknown notification event")
		}
		next.Templates[event] = tpl
	}
	normalized := NormalizeNotificationSetting(next)
	if _, err := s.Update(constants.SettingKeyNotificationConfig, NotificationSettingToMap(normalized)); err != nil {
		return NotificationSetting{}, err
	}
	return normalized, nil
}
