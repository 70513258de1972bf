package service

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"
)

const exportBatchSize = 200

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportService 导出 CSV（带 BOM，Excel 可直接打开阿拉伯文）
type ExportService struct {
	orderRepo repository.OrderRepository
	debtRepo  repository.DebtRepository
	location  *time.Location
}

// NewExportService 创建导出服务
func NewExportService(orderRepo repository.OrderRepository, debtRepo repository.DebtRepository, location *time.Location) *ExportService {
	if location == nil {
		location = time.UTC
	}
	return &ExportService{orderRepo: orderRepo, debtRepo: debtRepo, location: location}
}

// ExportOrders 按过滤条件分批写出维修单
func (s *ExportService) ExportOrders(w io.Writer, filter repository.OrderListFilter) (int, error) {
	if filter.Status != "" {
		filter.Status = normalizeOrderStatus(filter.Status)
		if !isKnownOrderStatus(filter.Status) {
			return 0, fieldError("status", "order_status", "unknown status")
		}
	}
	if filter.Phone != "" {
		filter.Phone = NormalizePhone(filter.Phone)
	}
	if _, err := w.Write(utf8BOM); err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"code", "status", "customer_name", "customer_phone", "device_model", "imei", "service",
		"original_price", "extra_charge", "extra_reason", "collected_price", "payment_method",
		"created_at", "collected_at",
	}); err != nil {
		return 0, err
	}

	written := 0
	filter.PageSize = exportBatchSize
	for page := 1; ; page++ {
		filter.Page = page
		orders, _, err := s.orderRepo.List(filter)
		if err != nil {
			return written, err
		}
		for i := range orders {
			if err := cw.Write(s.orderRow(&orders[i])); err != nil {
				return written, err
			}
			written++
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return written, err
		}
		if len(orders) < exportBatchSize {
			return written, nil
		}
	}
}

func (s *ExportService) orderRow(order *models.Order) []string {
	var name, phone string
	if order.Customer != nil {
		name = order.Customer.Name
		phone = order.Customer.Phone
	}
	collected := ""
	if order.CollectedPrice != nil {
		collected = order.CollectedPrice.StringFixed(2)
	}
	return []string{
		order.Code,
		order.Status,
		name,
		phone,
		order.DeviceModel,
		order.IMEI,
		order.Service,
		order.OriginalPrice.StringFixed(2),
		order.ExtraCharge.StringFixed(2),
		derefString(order.ExtraReason),
		collected,
		derefString(order.PaymentMethod),
		s.formatTime(&order.CreatedAt),
		s.formatTime(order.CollectedAt),
	}
}

// ExportDebts 按过滤条件分批写出欠款台账
func (s *ExportService) ExportDebts(w io.Writer, filter repository.DebtListFilter) (int, error) {
	if _, err := w.Write(utf8BOM); err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "shop_name", "phone", "service", "amount", "total_paid", "remaining", "status", "created_at",
	}); err != nil {
		return 0, err
	}

	written := 0
	filter.PageSize = exportBatchSize
	for page := 1; ; page++ {
		filter.Page = page
		debts, _, err := s.debtRepo.List(filter)
		if err != nil {
			return written, err
		}
		for i := range debts {
			detail := buildDebtDetail(&debts[i])
			row := []string{
				strconv.FormatUint(uint64(detail.ID), 10),
				detail.ShopName,
				detail.Phone,
				detail.Service,
				detail.Amount.StringFixed(2),
				detail.TotalPaid.StringFixed(2),
				detail.Remaining.StringFixed(2),
				detail.Status,
				s.formatTime(&detail.CreatedAt),
			}
			if err := cw.Write(row); err != nil {
				return written, err
			}
			written++
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return written, err
		}
		if len(debts) < exportBatchSize {
			return written, nil
		}
	}
}

func (s *ExportService) formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(s.location).Format("2006-01-02 15:04")
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
