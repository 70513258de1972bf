package service

import (
	"strings"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"
)

// ShopSetting 门店信息（回执抬头、通知署名）
type ShopSetting struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Currency      string `json:"currency"`
	CountryCode   string `json:"country_code"`
	ReceiptFooter string `json:"receipt_footer"`
}

// ShopSettingPatch 门店信息补丁
type ShopSettingPatch struct {
	Name          *string `json:"name"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	Currency      *string `json:"currency"`
	CountryCode   *string `json:"country_code"`
	ReceiptFooter *string `json:"receipt_footer"`
}

// ShopDefaultSetting 默认门店信息
func ShopDefaultSetting() ShopSetting {
	return ShopSetting{
		Name:        "QR24",
		Currency:    "SAR",
		CountryCode: "966",
	}
}

// NormalizeShopSetting 归一化门店信息
func NormalizeShopSetting(setting ShopSetting) ShopSetting {
	setting.Name = strings.TrimSpace(setting.Name)
	if setting.Name == "" {
		setting.Name = ShopDefaultSetting().Name
	}
	setting.Phone = strings.TrimSpace(setting.Phone)
	setting.Address = strings.TrimSpace(setting.Address)
	setting.Currency = strings.ToUpper(strings.TrimSpace(setting.Currency))
	if setting.Currency == "" {
		setting.Currency = ShopDefaultSetting().Currency
	}
	setting.CountryCode = strings.TrimPrefix(strings.TrimSpace(setting.CountryCode), "+")
	if setting.CountryCode == "" {
		setting.CountryCode = ShopDefaultSetting().CountryCode
	}
	setting.ReceiptFooter = strings.TrimSpace(setting.ReceiptFooter)
	return setting
}

// ShopSettingToMap 转为存储结构
func ShopSettingToMap(setting ShopSetting) map[string]interface{} {
	return map[string]interface{}{
		"name":           setting.Name,
		"phone":          setting.Phone,
		"address":        setting.Address,
		"currency":       setting.Currency,
		"country_code":   setting.CountryCode,
		"receipt_footer": setting.ReceiptFooter,
	}
}

func shopSettingFromJSON(raw models.JSON, fallback ShopSetting) ShopSetting {
	next := fallback
	if raw == nil {
		return next
	}
	next.Name = readString(raw, "name", next.Name)
	next.Phone = readString(raw, "phone", next.Phone)
	next.Address = readString(raw, "address", next.Address)
	next.Currency = readString(raw, "currency", next.Currency)
	next.CountryCode = readString(raw, "country_code", next.CountryCode)
	next.ReceiptFooter = readString(raw, "receipt_footer", next.ReceiptFooter)
	return next
}

// GetShopSetting 获取门店信息
func (s *SettingService) GetShopSetting() (ShopSetting, error) {
	fallback := ShopDefaultSetting()
	value, err := s.GetByKey(constants.SettingKeyShopConfig)
	if err != nil {
		return fallback, err
	}
	return NormalizeShopSetting(shopSettingFromJSON(value, fallback)), nil
}

// PatchShopSetting 更新门店信息
func (s *SettingService) PatchShopSetting(patch ShopSettingPatch) (ShopSetting, error) {
	next, err := s.GetShopSetting()
	if err != nil {
		return ShopSetting{}, err
	}
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Phone != nil {
		next.Phone = *patch.Phone
	}
	if patch.Address != nil {
		next.Address = *patch.Address
	}
	if patch.Currency != nil {
		next.Currency = *patch.Currency
	}
	if patch.CountryCode != nil {
		next.CountryCode = *patch.CountryCode
	}
	if patch.ReceiptFooter != nil {
		next.ReceiptFooter = *patch.ReceiptFooter
	}
	normalized := NormalizeShopSetting(next)
	if len(normalized.Currency) > 8 {
		return ShopSetting{}, fieldError("currency", "max", "must be at most 8 characters")
	}
	if _, err := s.Update(constants.SettingKeyShopConfig, ShopSettingToMap(normalized)); err != nil {
		return ShopSetting{}, err
	}
	return normalized, nil
}
