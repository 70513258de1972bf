package whatsapp

import (
	"net/url"
	"strings"
)

// DefaultCountryCode 本地号码（0 开头）补全的国家码
const DefaultCountryCode = "966"

// InternationalDigits 转为国际格式纯数字：去掉 +/00 前缀，0 开头的本地号码补国家码
func InternationalDigits(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	switch {
	case strings.HasPrefix(digits, "00"):
		return digits[2:]
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	default:
		return digits
	}
}

// ClickToChatURL 生成 wa.me 链接
func ClickToChatURL(phone, countryCode, message string) string {
	digits := InternationalDigits(phone, countryCode)
	if digits == "" {
		return ""
	}
	link := "https://wa.me/" + digits
	if strings.TrimSpace(message) != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}
