package service

import (
	"fmt"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"
)

// StorageS3Setting 对象存储参数
type StorageS3Setting struct {
	Endpoint      string `json:"endpoint"`
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	Bucket        string `json:"bucket"`
	Region        string `json:"region"`
	UseSSL        bool   `json:"use_ssl"`
	PublicBaseURL string `json:"public_base_url"`
	Prefix        string `json:"prefix"`
}

// StorageSetting 存储配置：回执写入 local 或 s3，s3 配置同时用于备份远端副本
type StorageSetting struct {
	Driver string           `json:"driver"`
	S3     StorageS3Setting `json:"s3"`
}

// StorageS3Patch 对象存储补丁
type StorageS3Patch struct {
	Endpoint      *string `json:"endpoint"`
	AccessKey     *string `json:"access_key"`
	SecretKey     *string `json:"secret_key"`
	Bucket        *string `json:"bucket"`
	Region        *string `json:"region"`
	UseSSL        *bool   `json:"use_ssl"`
	PublicBaseURL *string `json:"public_base_url"`
	Prefix        *string `json:"prefix"`
}

// StorageSettingPatch 存储配置补丁
type StorageSettingPatch struct {
	Driver *string         `json:"driver"`
	S3     *StorageS3Patch `json:"s3"`
}

// StorageDefaultSetting 默认本地存储
func StorageDefaultSetting() StorageSetting {
	return StorageSetting{Driver: constants.StorageDriverLocal, S3: StorageS3Setting{UseSSL: true}}
}

// NormalizeStorageSetting 归一化存储配置
func NormalizeStorageSetting(setting StorageSetting) StorageSetting {
	driver := strings.ToLower(strings.TrimSpace(setting.Driver))
	if driver != constants.StorageDriverS3 {
		driver = constants.StorageDriverLocal
	}
	setting.Driver = driver
	setting.S3.Endpoint = strings.TrimSpace(setting.S3.Endpoint)
	setting.S3.AccessKey = strings.TrimSpace(setting.S3.AccessKey)
	setting.S3.SecretKey = strings.TrimSpace(setting.S3.SecretKey)
	setting.S3.Bucket = strings.TrimSpace(setting.S3.Bucket)
	setting.S3.Region = strings.TrimSpace(setting.S3.Region)
	setting.S3.PublicBaseURL = strings.TrimRight(strings.TrimSpace(setting.S3.PublicBaseURL), "/")
	setting.S3.Prefix = strings.Trim(strings.TrimSpace(setting.S3.Prefix), "/")
	return setting
}

// S3Configured 对象存储参数是否齐全
func (s StorageSetting) S3Configured() bool {
	return s.S3.Endpoint != "" && s.S3.Bucket != "" && s.S3.AccessKey != "" && s.S3.SecretKey != ""
}

// ValidateStorageSetting 选用 s3 时参数必须齐全
func ValidateStorageSetting(setting StorageSetting) error {
	if setting.Driver == constants.StorageDriverS3 && !setting.S3Configured() {
		return fmt.Errorf("%w: s3 endpoint, bucket and credentials are required", ErrStorageConfigInvalid)
	}
	return nil
}

// StorageSettingToMap 转为存储结构
func StorageSettingToMap(setting StorageSetting) map[string]interface{} {
	return map[string]interface{}{
		"driver": setting.Driver,
		"s3": map[string]interface{}{
			"endpoint":        setting.S3.Endpoint,
			"access_key":      setting.S3.AccessKey,
			"secret_key":      setting.S3.SecretKey,
			"bucket":          setting.S3.Bucket,
			"region":          setting.S3.Region,
			"use_ssl":         setting.S3.UseSSL,
			"public_base_url": setting.S3.PublicBaseURL,
			"prefix":          setting.S3.Prefix,
		},
	}
}

// MaskStorageSettingForAdmin 返回脱敏后的存储配置
func MaskStorageSettingForAdmin(setting StorageSetting) models.JSON {
	masked := StorageSettingToMap(setting)
	s3 := masked["s3"].(map[string]interface{})
	s3["secret_key"] = ""
	s3["has_secret_key"] = setting.S3.SecretKey != ""
	return models.JSON(masked)
}

func storageSettingFromJSON(raw models.JSON, fallback StorageSetting) StorageSetting {
	next := fallback
	if raw == nil {
		return next
	}
	next.Driver = readString(raw, "driver", next.Driver)
	if s3 := toStringAnyMap(raw["s3"]); s3 != nil {
		next.S3.Endpoint = readString(s3, "endpoint", next.S3.Endpoint)
		next.S3.AccessKey = readString(s3, "access_key", next.S3.AccessKey)
		next.S3.SecretKey = readString(s3, "secret_key", next.S3.SecretKey)
		next.S3.Bucket = readString(s3, "bucket", next.S3.Bucket)
		next.S3.Region = readString(s3, "region", next.S3.Region)
		next.S3.UseSSL = readBool(s3, "use_ssl", next.S3.UseSSL)
		next.S3.PublicBaseURL = readString(s3, "public_base_url", next.S3.PublicBaseURL)
		next.S3.Prefix = readString(s3, "prefix", next.S3.Prefix)
	}
	return next
}

// GetStorageSetting 获取存储配置
func (s *SettingService) GetStorageSetting() (StorageSetting, error) {
	fallback := StorageDefaultSetting()
	value, err := s.GetByKey(constants.SettingKeyStorageConfig)
	if err != nil {
		return fallback, err
	}
	return NormalizeStorageSetting(storageSettingFromJSON(value, fallback)), nil
}

// PatchStorageSetting 更新存储配置，空密钥表示保留原值
func (s *SettingService) PatchStorageSetting(patch StorageSettingPatch) (StorageSetting, error) {
	next, err := s.GetStorageSetting()
	if err != nil {
		return StorageSetting{}, err
	}
	if patch.Driver != nil {
		next.Driver = *patch.Driver
	}
	if p := patch.S3; p != nil {
		if p.Endpoint != nil {
			next.S3.Endpoint = *p.Endpoint
		}
		if p.AccessKey != nil {
			next.S3.AccessKey = *p.AccessKey
		}
		if p.SecretKey != nil && strings.TrimSpace(*p.SecretKey) != "" {
			next.S3.SecretKey = *p.SecretKey
		}
		if p.Bucket != nil {
			next.S3.Bucket = *p.Bucket
		}
		if p.Region != nil {
			next.S3.Region = *p.Region
		}
		if p.UseSSL != nil {
			next.S3.UseSSL = *p.UseSSL
		}
		if p.PublicBaseURL != nil {
			next.S3.PublicBaseURL = *p.PublicBaseURL
		}
		if p.Prefix != nil {
			next.S3.Prefix = *p.Prefix
		}
	}
	normalized := NormalizeStorageSetting(next)
	if err := ValidateStorageSetting(normalized); err != nil {
		return StorageSetting{}, err
	}
	if _, err := s.Update(constants.SettingKeyStorageConfig, StorageSettingToMap(normalized)); err != nil {
		return StorageSetting{}, err
	}
	return normalized, nil
}
