package service

import (
	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/storage"
)

// StorageService 按设置解析存储目标
type StorageService struct {
	local    *storage.LocalSink
	settings *SettingService
	newS3    func(opts storage.S3Options) (storage.Sink, error)
}

// NewStorageService 创建存储服务
func NewStorageService(local *storage.LocalSink, settings *SettingService) *StorageService {
	return &StorageService{
		local:    local,
		settings: settings,
		newS3: func(opts storage.S3Options) (storage.Sink, error) {
			return storage.NewS3Sink(opts)
		},
	}
}

// Local 本地存储（备份恢复只读本地文件）
func (s *StorageService) Local() *storage.LocalSink {
	return s.local
}

// Primary 回执写入目标：driver=s3 且配置齐全时为对象存储，否则本地
func (s *StorageService) Primary() (storage.Sink, error) {
	setting, err := s.settings.GetStorageSetting()
	if err != nil {
		return nil, err
	}
	if setting.Driver != constants.StorageDriverS3 {
		return s.local, nil
	}
	if err := ValidateStorageSetting(setting); err != nil {
		return nil, err
	}
	return s.newS3(s3Options(setting))
}

// Remote 远端副本目标，未配置时返回 nil
func (s *StorageService) Remote() (storage.Sink, error) {
	setting, err := s.settings.GetStorageSetting()
	if err != nil {
		return nil, err
	}
	if !setting.S3Configured() {
		return nil, nil
	}
	return s.newS3(s3Options(setting))
}

func s3Options(setting StorageSetting) storage.S3Options {
	return storage.S3Options{
		Endpoint:      setting.S3.Endpoint,
		AccessKey:     setting.S3.AccessKey,
		SecretKey:     setting.S3.SecretKey,
		Bucket:        setting.S3.Bucket,
		Region:        setting.S3.Region,
		UseSSL:        setting.S3.UseSSL,
		PublicBaseURL: setting.S3.PublicBaseURL,
		Prefix:        setting.S3.Prefix,
	}
}
