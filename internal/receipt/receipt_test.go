package receipt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeQR(t *testing.T) {
	png, err := EncodeQR("https://shop.example/track/ABC1234?t=0123456789ab", 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = EncodeQR("  ", 128)
	require.Error(t, err)
}

func TestQRDataURL(t *testing.T) {
	url, err := QRDataURL("ABC1234", 128)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestPDFRendererRender(t *testing.T) {
	qr, err := EncodeQR("https://shop.example/track/ABC1234?t=0123456789ab", 128)
	require.NoError(t, err)
	delivered := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	out, err := NewPDFRenderer().Render(Data{
		ShopName:      "QR24 Mobile",
		Currency:      "SAR",
		Code:          "ABC1234",
		Status:        "DELIVERED",
		CustomerName:  "Sami",
		CustomerPhone: "0500000000",
		DeviceModel:   "iPhone 12",
		Service:       "Screen replacement",
		OriginalPrice: "300.00",
		ExtraCharge:   "20.00",
		ExtraReason:   "adhesive",
		Collected:     "320.00",
		PaymentMethod: "CASH",
		DeliveredAt:   &delivered,
		IssuedAt:      delivered,
		TrackingURL:   "https://shop.example/track/ABC1234?t=0123456789ab",
		QRPNG:         qr,
		Location:      time.FixedZone("UTC+3", 3*3600),
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFRendererRequiresCode(t *testing.T) {
	_, err := NewPDFRenderer().Render(Data{})
	require.Error(t, err)
}

func TestIsZeroAmount(t *testing.T) {
	require.True(t, isZeroAmount("0.00"))
	require.True(t, isZeroAmount("0"))
	require.False(t, isZeroAmount("10.00"))
	require.False(t, isZeroAmount("0.50"))
}
