package receipt

import (
	"encoding/base64"
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize 默认二维码边长（像素）
const DefaultQRSize = 256

// EncodeQR 将文本编码为 PNG 二维码
func EncodeQR(text string, size int) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("qr payload is empty")
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(text, qrcode.Medium, size)
}

// QRDataURL 返回 data:image/png;base64 形式的二维码
func QRDataURL(text string, size int) (string, error) {
	png, err := EncodeQR(text, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
