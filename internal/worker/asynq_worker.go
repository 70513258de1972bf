package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/provider"
	"github.com/snipero7/qr24-sub000/internal/queue"
	"github.com/snipero7/qr24-sub000/internal/service"

	"github.com/hibiken/asynq"
)

// ReceiptGenerator 生成交付回执
type ReceiptGenerator interface {
	Generate(ctx context.Context, orderID uint) (string, error)
}

// Notifier 发送订单通知
type Notifier interface {
	Send(ctx context.Context, orderID uint, event string) error
}

// Consumer 异步任务消费者
type Consumer struct {
	receipts ReceiptGenerator
	notifier Notifier
}

// NewConsumer 从容器创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	return &Consumer{
		receipts: c.ReceiptService,
		notifier: c.NotificationService,
	}
}

// NewConsumerWith 使用自定义依赖创建消费者
func NewConsumerWith(receipts ReceiptGenerator, notifier Notifier) *Consumer {
	return &Consumer{receipts: receipts, notifier: notifier}
}

// Register 注册任务处理器
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderReceipt, c.handleOrderReceipt)
	mux.HandleFunc(queue.TaskOrderNotify, c.handleOrderNotify)
}

func (c *Consumer) handleOrderReceipt(ctx context.Context, task *asynq.Task) error {
	if task == nil {
		return nil
	}
	payload, err := queue.ParseOrderReceiptPayload(task)
	if err != nil {
		logger.Warnw("worker_order_receipt_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_receipt_skip_invalid_payload")
		return nil
	}
	if c.receipts == nil {
		logger.Warnw("worker_order_receipt_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	url, err := c.receipts.Generate(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_order_receipt_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		// 回执任务不重试，失败后由后台手动重新生成
		logger.Warnw("worker_order_receipt_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	logger.Infow("worker_order_receipt_generated", "order_id", payload.OrderID, "receipt_url", url)
	return nil
}

func (c *Consumer) handleOrderNotify(ctx context.Context, task *asynq.Task) error {
	if task == nil {
		return nil
	}
	payload, err := queue.ParseOrderNotifyPayload(task)
	if err != nil {
		logger.Warnw("worker_order_notify_unmarshal_failed", "error", err)
		return err
	}
	event := strings.TrimSpace(payload.Event)
	if payload.OrderID == 0 || event == "" {
		logger.Debugw("worker_order_notify_skip_invalid_payload", "order_id", payload.OrderID, "event", event)
		return nil
	}
	if c.notifier == nil {
		return nil
	}
	if err := c.notifier.Send(ctx, payload.OrderID, event); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_order_notify_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_order_notify_send_failed",
			"order_id", payload.OrderID,
			"event", event,
			"status", payload.Status,
			"error", err,
		)
		return err
	}
	return nil
}
