package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalSink 本地磁盘存储
type LocalSink struct {
	dir     string
	baseURL string
}

// NewLocalSink 创建本地存储，baseURL 为对外访问前缀（默认 /files）
func NewLocalSink(dir, baseURL string) *LocalSink {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "./data/files"
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = "/files"
	}
	return &LocalSink{dir: dir, baseURL: baseURL}
}

// Dir 返回根目录
func (s *LocalSink) Dir() string {
	return s.dir
}

// Path 返回键对应的磁盘路径
func (s *LocalSink) Path(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}

// Put 写入文件（先写临时文件再改名）
func (s *LocalSink) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.dir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return joinURL(s.baseURL, cleaned), nil
}

// Open 打开文件
func (s *LocalSink) Open(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return file, nil
}

// Delete 删除文件，文件不存在视为成功
func (s *LocalSink) Delete(_ context.Context, key string) error {
	full, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IsLocal 本地存储
func (s *LocalSink) IsLocal() bool {
	return true
}
