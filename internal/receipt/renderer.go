package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Data 回执内容
type Data struct {
	ShopName      string
	ShopPhone     string
	ShopAddress   string
	Footer        string
	Currency      string
	Code          string
	Status        string
	CustomerName  string
	CustomerPhone string
	DeviceModel   string
	IMEI          string
	Service       string
	OriginalPrice string
	ExtraCharge   string
	ExtraReason   string
	Collected     string
	PaymentMethod string
	DeliveredAt   *time.Time
	IssuedAt      time.Time
	TrackingURL   string
	QRPNG         []byte
	Location      *time.Location
}

// Renderer 回执渲染器
type Renderer interface {
	Render(data Data) ([]byte, error)
}

// PDFRenderer 基于 fpdf 的 A5 回执
type PDFRenderer struct {
	pageSize string
}

// NewPDFRenderer 创建 PDF 渲染器
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{pageSize: "A5"}
}

// Render 渲染回执 PDF
func (r *PDFRenderer) Render(data Data) ([]byte, error) {
	if strings.TrimSpace(data.Code) == "" {
		return nil, fmt.Errorf("receipt code is required")
	}
	loc := data.Location
	if loc == nil {
		loc = time.UTC
	}
	issuedAt := data.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", r.pageSize, "")
	pdf.SetCreationDate(issuedAt)
	pdf.SetTitle("Receipt "+data.Code, true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 8, tr(fallback(data.ShopName, "Repair Shop")), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if data.ShopPhone != "" {
		pdf.CellFormat(contentW, 5, tr(data.ShopPhone), "", 1, "C", false, 0, "")
	}
	if data.ShopAddress != "" {
		pdf.CellFormat(contentW, 5, tr(data.ShopAddress), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "Order "+tr(data.Code), "", 1, "L", false, 0, "")

	rows := [][2]string{
		{"Customer", data.CustomerName},
		{"Phone", data.CustomerPhone},
		{"Device", data.DeviceModel},
		{"IMEI", data.IMEI},
		{"Service", data.Service},
		{"Status", data.Status},
		{"Price", withCurrency(data.OriginalPrice, data.Currency)},
	}
	if data.ExtraCharge != "" && !isZeroAmount(data.ExtraCharge) {
		rows = append(rows, [2]string{"Extra", withCurrency(data.ExtraCharge, data.Currency)})
		if data.ExtraReason != "" {
			rows = append(rows, [2]string{"Extra reason", data.ExtraReason})
		}
	}
	if data.Collected != "" {
		rows = append(rows, [2]string{"Collected", withCurrency(data.Collected, data.Currency)})
	}
	if data.PaymentMethod != "" {
		rows = append(rows, [2]string{"Payment", data.PaymentMethod})
	}
	if data.DeliveredAt != nil {
		rows = append(rows, [2]string{"Delivered", data.DeliveredAt.In(loc).Format("2006-01-02 15:04")})
	}
	rows = append(rows, [2]string{"Issued", issuedAt.In(loc).Format("2006-01-02 15:04")})

	for _, row := range rows {
		if strings.TrimSpace(row[1]) == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(32, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentW-32, 6, tr(row[1]), "", "L", false)
	}

	if len(data.QRPNG) > 0 {
		pdf.Ln(4)
		name := "qr-" + data.Code
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data.QRPNG))
		size := 35.0
		pdf.ImageOptions(name, (pageW-size)/2, pdf.GetY(), size, size, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, data.TrackingURL)
	}
	if data.TrackingURL != "" {
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(contentW, 5, tr(data.TrackingURL), "", 1, "C", false, 0, data.TrackingURL)
	}
	if data.Footer != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(contentW, 4, tr(data.Footer), "", "C", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func withCurrency(amount, currency string) string {
	if amount == "" || currency == "" {
		return amount
	}
	return amount + " " + currency
}

func isZeroAmount(amount string) bool {
	trimmed := strings.TrimLeft(strings.TrimSpace(amount), "0.")
	return trimmed == ""
}
