package service

import (
	"context"
	"fmt"
	"time"

	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/receipt"
	"github.com/snipero7/qr24-sub000/internal/repository"
)

// ReceiptService 交付回执：渲染 PDF、写入存储、回写 receipt_url
type ReceiptService struct {
	orderRepo repository.OrderRepository
	settings  *SettingService
	storage   *StorageService
	renderer  receipt.Renderer
	signer    *CodeSigner
	location  *time.Location
	now       func() time.Time
}

// NewReceiptService 创建回执服务
func NewReceiptService(orderRepo repository.OrderRepository, settings *SettingService, storage *StorageService, renderer receipt.Renderer, signer *CodeSigner, location *time.Location) *ReceiptService {
	if location == nil {
		location = time.UTC
	}
	return &ReceiptService{
		orderRepo: orderRepo,
		settings:  settings,
		storage:   storage,
		renderer:  renderer,
		signer:    signer,
		location:  location,
		now:       time.Now,
	}
}

// ReceiptKey 回执存储键
func ReceiptKey(code string) string {
	return "receipts/" + NormalizeOrderCode(code) + ".pdf"
}

// Generate 生成并保存回执，返回访问地址（可重复调用，覆盖旧地址）
func (s *ReceiptService) Generate(ctx context.Context, orderID uint) (string, error) {
	if s == nil || s.renderer == nil {
		return "", ErrReceiptUnavailable
	}
	order, err := s.orderRepo.GetDetail(orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	shop, err := s.settings.GetShopSetting()
	if err != nil {
		return "", err
	}

	data := s.buildData(order, shop)
	if data.TrackingURL != "" {
		qr, err := receipt.EncodeQR(data.TrackingURL, receipt.DefaultQRSize)
		if err != nil {
			return "", fmt.Errorf("encode receipt qr: %w", err)
		}
		data.QRPNG = qr
	}
	pdf, err := s.renderer.Render(data)
	if err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	sink, err := s.storage.Primary()
	if err != nil {
		return "", fmt.Errorf("resolve receipt storage: %w", err)
	}
	url, err := sink.Put(ctx, ReceiptKey(order.Code), pdf, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("store receipt: %w", err)
	}
	if err := s.orderRepo.Update(order.ID, map[string]interface{}{"receipt_url": url}); err != nil {
		return "", err
	}
	return url, nil
}

func (s *ReceiptService) buildData(order *models.Order, shop ShopSetting) receipt.Data {
	data := receipt.Data{
		ShopName:      shop.Name,
		ShopPhone:     shop.Phone,
		ShopAddress:   shop.Address,
		Footer:        shop.ReceiptFooter,
		Currency:      shop.Currency,
		Code:          order.Code,
		Status:        order.Status,
		DeviceModel:   order.DeviceModel,
		IMEI:          order.IMEI,
		Service:       order.Service,
		OriginalPrice: order.OriginalPrice.String(),
		ExtraCharge:   order.ExtraCharge.String(),
		DeliveredAt:   order.CollectedAt,
		IssuedAt:      s.now(),
		Location:      s.location,
	}
	if order.Customer != nil {
		data.CustomerName = order.Customer.Name
		data.CustomerPhone = order.Customer.Phone
	}
	if order.ExtraReason != nil {
		data.ExtraReason = *order.ExtraReason
	}
	if order.CollectedPrice != nil {
		data.Collected = order.CollectedPrice.String()
	}
	if order.PaymentMethod != nil {
		data.PaymentMethod = *order.PaymentMethod
	}
	if s.signer != nil {
		data.TrackingURL = s.signer.TrackingURL(order.Code)
	}
	return data
}
