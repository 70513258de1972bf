package queue

import (
	"encoding/json"

	"github.com/snipero7/qr24-sub000/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderReceipt 生成交付回执任务
	TaskOrderReceipt = constants.TaskOrderReceipt
	// TaskOrderNotify WhatsApp 通知任务
	TaskOrderNotify = constants.TaskOrderNotify
)

// OrderReceiptPayload 回执任务载荷
type OrderReceiptPayload struct {
	OrderID uint `json:"order_id"`
}

// OrderNotifyPayload 通知任务载荷
type OrderNotifyPayload struct {
	OrderID uint   `json:"order_id"`
	Event   string `json:"event"`
	Status  string `json:"status"`
}

// NewOrderReceiptTask 创建回执任务
func NewOrderReceiptTask(payload OrderReceiptPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderReceipt, body), nil
}

// NewOrderNotifyTask 创建通知任务
func NewOrderNotifyTask(payload OrderNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderNotify, body), nil
}

// ParseOrderReceiptPayload 解析回执任务载荷
func ParseOrderReceiptPayload(task *asynq.Task) (OrderReceiptPayload, error) {
	var payload OrderReceiptPayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}

// ParseOrderNotifyPayload 解析通知任务载荷
func ParseOrderNotifyPayload(task *asynq.Task) (OrderNotifyPayload, error) {
	var payload OrderNotifyPayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
