package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/queue"
	"github.com/snipero7/qr24-sub000/internal/repository"
	"github.com/snipero7/qr24-sub000/internal/whatsapp"
)

// 状态的对外显示名称
var orderStatusLabels = map[string]string{
	constants.OrderStatusNew:          "جديد",
	constants.OrderStatusInProgress:   "قيد الصيانة",
	constants.OrderStatusWaitingParts: "بانتظار قطع الغيار",
	constants.OrderStatusReady:        "جاهز للاستلام",
	constants.OrderStatusDelivered:    "تم التسليم",
	constants.OrderStatusCanceled:     "ملغي",
}

// OrderStatusLabel 返回状态显示名称
func OrderStatusLabel(status string) string {
	if label, ok := orderStatusLabels[status]; ok {
		return label
	}
	return status
}

// RenderTemplate 替换 {key} 占位符，未知占位符原样保留
func RenderTemplate(tpl string, vars map[string]string) string {
	if tpl == "" || len(vars) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// NotificationMessage 待发送的通知
type NotificationMessage struct {
	Phone   string `json:"phone"`
	Text    string `json:"text"`
	WaMeURL string `json:"wa_me_url"`
}

// NotificationService WhatsApp 通知服务
type NotificationService struct {
	orderRepo   repository.OrderRepository
	settings    *SettingService
	signer      *CodeSigner
	sender      whatsapp.Sender
	queueClient *queue.Client
}

// NewNotificationService 创建通知服务，sender 为 nil 时只生成 wa.me 链接
func NewNotificationService(orderRepo repository.OrderRepository, settings *SettingService, signer *CodeSigner, sender whatsapp.Sender, queueClient *queue.Client) *NotificationService {
	return &NotificationService{
		orderRepo:   orderRepo,
		settings:    settings,
		signer:      signer,
		sender:      sender,
		queueClient: queueClient,
	}
}

// Build 根据维修单与事件生成消息
func (s *NotificationService) Build(orderID uint, event string) (*NotificationMessage, error) {
	order, err := s.orderRepo.GetDetail(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	notification, err := s.settings.GetNotificationSetting()
	if err != nil {
		return nil, err
	}
	shop, err := s.settings.GetShopSetting()
	if err != nil {
		return nil, err
	}
	tpl, ok := notification.Templates[event]
	if !ok {
		return nil, fieldError("event", "oneof", "unknown notification event")
	}
	text := RenderTemplate(tpl, s.templateVars(order, shop))
	phone := ""
	if order.Customer != nil {
		phone = order.Customer.Phone
	}
	return &NotificationMessage{
		Phone:   phone,
		Text:    text,
		WaMeURL: whatsapp.ClickToChatURL(phone, shop.CountryCode, text),
	}, nil
}

func (s *NotificationService) templateVars(order *models.Order, shop ShopSetting) map[string]string {
	customer := ""
	if order.Customer != nil {
		customer = order.Customer.Name
	}
	price := order.OriginalPrice.Add(order.ExtraCharge)
	if order.CollectedPrice != nil {
		price = *order.CollectedPrice
	}
	trackURL := ""
	if s.signer != nil {
		trackURL = s.signer.TrackingURL(order.Code)
	}
	return map[string]string{
		"code":      order.Code,
		"customer":  customer,
		"status":    OrderStatusLabel(order.Status),
		"device":    order.DeviceModel,
		"price":     price.String() + " " + shop.Currency,
		"track_url": trackURL,
		"shop":      shop.Name,
	}
}

// Send 立即通过网关发送（worker 调用）
func (s *NotificationService) Send(ctx context.Context, orderID uint, event string) error {
	notification, err := s.settings.GetNotificationSetting()
	if err != nil {
		return err
	}
	if !notification.Enabled || s.sender == nil {
		return nil
	}
	msg, err := s.Build(orderID, event)
	if err != nil {
		return err
	}
	if msg.Phone == "" {
		return nil
	}
	shop, err := s.settings.GetShopSetting()
	if err != nil {
		return err
	}
	return s.sender.SendText(ctx, whatsapp.InternationalDigits(msg.Phone, shop.CountryCode), msg.Text)
}

// Dispatch 事务提交后投递通知，失败只记录日志
func (s *NotificationService) Dispatch(ctx context.Context, orderID uint, event, status string) {
	if s == nil || orderID == 0 {
		return
	}
	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueOrderNotify(queue.OrderNotifyPayload{OrderID: orderID, Event: event, Status: status}); err != nil {
			logger.Warnw("order_notify_enqueue_failed", "order_id", orderID, "event", event, "error", err)
		}
		return
	}
	if err := s.Send(ctx, orderID, event); err != nil {
		logger.Warnw("order_notify_send_failed", "order_id", orderID, "event", event, "error", err)
	}
}
