package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/queue"
	"github.com/snipero7/qr24-sub000/internal/repository"

	"gorm.io/gorm"
)

const deliveredNote = "delivered"

// ReceiptGenerator 回执生成
type ReceiptGenerator interface {
	Generate(ctx context.Context, orderID uint) (string, error)
}

// DeliverInput 交付收款
type DeliverInput struct {
	CollectedPrice models.Money  `json:"collected_price"`
	ExtraCharge    *models.Money `json:"extra_charge"`
	ExtraReason    *string       `json:"extra_reason" validate:"omitempty,max=255"`
	PaymentMethod  *string       `json:"payment_method" validate:"omitempty,payment_method"`
}

// DeliveryResult 交付结果；ReceiptErr 为回执后续步骤的独立错误通道
type DeliveryResult struct {
	Order         *OrderDetail `json:"order"`
	ReceiptURL    *string      `json:"receipt_url"`
	ReceiptQueued bool         `json:"receipt_queued"`
	ReceiptErr    error        `json:"-"`
}

// DeliveryService 交付流程
type DeliveryService struct {
	orderRepo   repository.OrderRepository
	orders      *OrderService
	receipts    ReceiptGenerator
	queueClient *queue.Client
	notifier    OrderNotifier
	now         func() time.Time
}

// NewDeliveryService 创建交付服务
func NewDeliveryService(orderRepo repository.OrderRepository, orders *OrderService, receipts ReceiptGenerator, queueClient *queue.Client, notifier OrderNotifier) *DeliveryService {
	return &DeliveryService{
		orderRepo:   orderRepo,
		orders:      orders,
		receipts:    receipts,
		queueClient: queueClient,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Deliver 交付：收款字段与流转记录单事务提交，回执在提交后单独处理，失败不影响交付
func (s *DeliveryService) Deliver(ctx context.Context, orderID uint, input DeliverInput) (*DeliveryResult, error) {
	if input.PaymentMethod != nil {
		method := strings.ToUpper(strings.TrimSpace(*input.PaymentMethod))
		input.PaymentMethod = &method
	}
	verr := &ValidationError{}
	if err := validateStruct(input); err != nil {
		verr.Fields = append(verr.Fields, FieldErrors(err)...)
	}
	if !input.CollectedPrice.IsPositive() {
		verr.Add("collected_price", "gt", "must be greater than 0")
	}
	if input.ExtraCharge != nil && input.ExtraCharge.IsNegative() {
		verr.Add("extra_charge", "gte", "must be greater than or equal to 0")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	extra := models.Money{}
	if input.ExtraCharge != nil {
		extra = models.NewMoneyFromDecimal(input.ExtraCharge.Decimal)
	}
	var reason *string
	if extra.IsPositive() && input.ExtraReason != nil {
		reason = optionalString(*input.ExtraReason)
	}
	var method *string
	if input.PaymentMethod != nil && *input.PaymentMethod != "" {
		method = input.PaymentMethod
	}

	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		// 并发交付时第二个事务在此等待，读到 DELIVERED 后拒绝
		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		if order.Status == constants.OrderStatusDelivered || order.IsLocked() {
			return ErrAlreadyDelivered
		}
		from := order.Status
		now := s.now()
		collected := models.NewMoneyFromDecimal(input.CollectedPrice.Decimal)
		if err := repo.Update(orderID, map[string]interface{}{
			"status":          constants.OrderStatusDelivered,
			"collected_price": collected,
			"collected_at":    now,
			"extra_charge":    extra,
			"extra_reason":    reason,
			"payment_method":  method,
			"updated_at":      now,
		}); err != nil {
			return err
		}
		note := deliveredNote
		return repo.AppendStatusLog(&models.OrderStatusLog{
			OrderID: orderID,
			From:    &from,
			To:      constants.OrderStatusDelivered,
			At:      now,
			Note:    &note,
		})
	})
	if err != nil {
		return nil, err
	}

	result := &DeliveryResult{}
	result.ReceiptURL, result.ReceiptQueued, result.ReceiptErr = s.followUp(ctx, orderID)
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, orderID, constants.NotifyEventDelivered, constants.OrderStatusDelivered)
	}

	detail, err := s.orders.Get(orderID)
	if err != nil {
		// 交付已提交，读取失败不回滚
		logger.Warnw("delivery_reload_failed", "order_id", orderID, "error", err)
		return result, nil
	}
	result.Order = detail
	return result, nil
}

// followUp 回执后续步骤：队列可用时入队，否则提交后同步执行
func (s *DeliveryService) followUp(ctx context.Context, orderID uint) (*string, bool, error) {
	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueOrderReceipt(queue.OrderReceiptPayload{OrderID: orderID}); err != nil {
			logger.Warnw("delivery_receipt_enqueue_failed", "order_id", orderID, "error", err)
			return nil, false, err
		}
		return nil, true, nil
	}
	if s.receipts == nil {
		return nil, false, ErrReceiptUnavailable
	}
	url, err := s.receipts.Generate(ctx, orderID)
	if err != nil {
		logger.Warnw("delivery_receipt_failed", "order_id", orderID, "error", err)
		return nil, false, err
	}
	return &url, false, nil
}

// RegenerateReceipt 重新生成回执（任意状态均可，用于补打）
func (s *DeliveryService) RegenerateReceipt(ctx context.Context, orderID uint) (*OrderDetail, error) {
	if s.receipts == nil {
		return nil, ErrReceiptUnavailable
	}
	if _, err := s.receipts.Generate(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.Get(orderID)
}
