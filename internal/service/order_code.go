package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strings"
)

const (
	codeAlphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	defaultCodeLength = 7
	signatureHexLen   = 12
)

// GenerateShortCode 生成大写 base-36 短编号（crypto/rand）
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		length = defaultCodeLength
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCodeGeneration, err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeOrderCode 统一编号格式
func NormalizeOrderCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CodeSigner 维修单追踪链接签名
type CodeSigner struct {
	secret  []byte
	baseURL string
}

// NewCodeSigner 创建签名器
func NewCodeSigner(secret, publicBaseURL string) *CodeSigner {
	return &CodeSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

// Sign 对编号做 HMAC-SHA256 并截断为短标签
func (s *CodeSigner) Sign(code string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(NormalizeOrderCode(code)))
	return hex.EncodeToString(mac.Sum(nil))[:signatureHexLen]
}

// Verify 常量时间比较签名
func (s *CodeSigner) Verify(code, tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if len(tag) != signatureHexLen {
		return false
	}
	return hmac.Equal([]byte(s.Sign(code)), []byte(tag))
}

// TrackingURL 生成带签名的公开追踪链接（同时作为二维码内容）
func (s *CodeSigner) TrackingURL(code string) string {
	code = NormalizeOrderCode(code)
	return fmt.Sprintf("%s/track/%s?t=%s", s.baseURL, url.PathEscape(code), s.Sign(code))
}
