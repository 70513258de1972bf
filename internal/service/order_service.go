package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"

	"gorm.io/gorm"
)

// OrderNotifier 提交后的通知投递
type OrderNotifier interface {
	Dispatch(ctx context.Context, orderID uint, event, status string)
}

// OrderService 维修单服务
type OrderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	signer       *CodeSigner
	notifier     OrderNotifier
	codeLength   int
	maxRetries   int
	codeGen      func(length int) (string, error)
	now          func() time.Time
}

// OrderServiceOptions 维修单服务参数
type OrderServiceOptions struct {
	CodeLength int
	MaxRetries int
}

// NewOrderService 创建维修单服务
func NewOrderService(orderRepo repository.OrderRepository, customerRepo repository.CustomerRepository, signer *CodeSigner, notifier OrderNotifier, opts OrderServiceOptions) *OrderService {
	if opts.CodeLength <= 0 {
		opts.CodeLength = defaultCodeLength
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	return &OrderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		signer:       signer,
		notifier:     notifier,
		codeLength:   opts.CodeLength,
		maxRetries:   opts.MaxRetries,
		codeGen:      GenerateShortCode,
		now:          time.Now,
	}
}

// CreateOrderInput 新建维修单
type CreateOrderInput struct {
	CustomerName  string       `json:"customer_name" validate:"required,max=120"`
	CustomerPhone string       `json:"customer_phone" validate:"required,max=32"`
	DeviceModel   string       `json:"device_model" validate:"max=120"`
	IMEI          string       `json:"imei" validate:"max=32"`
	Service       string       `json:"service" validate:"required,max=255"`
	OriginalPrice models.Money `json:"original_price"`
	Note          string       `json:"note" validate:"max=500"`
}

// UpdateOrderInput 编辑维修单（交付前）
type UpdateOrderInput struct {
	DeviceModel   *string       `json:"device_model" validate:"omitempty,max=120"`
	IMEI          *string       `json:"imei" validate:"omitempty,max=32"`
	Service       *string       `json:"service" validate:"omitempty,max=255"`
	OriginalPrice *models.Money `json:"original_price"`
	ExtraCharge   *models.Money `json:"extra_charge"`
	ExtraReason   *string       `json:"extra_reason" validate:"omitempty,max=255"`
}

// SetStatusInput 状态变更
type SetStatusInput struct {
	Status string  `json:"status" validate:"required,order_status"`
	Note   *string `json:"note" validate:"omitempty,max=500"`
}

// OrderDetail 维修单详情
type OrderDetail struct {
	*models.Order
	TrackingURL string `json:"tracking_url"`
}

// TrackStep 公开追踪的状态节点
type TrackStep struct {
	Status string    `json:"status"`
	Label  string    `json:"label"`
	At     time.Time `json:"at"`
}

// TrackView 公开追踪视图（签名不匹配时 verified=false，不返回金额）
type TrackView struct {
	Code          string        `json:"code"`
	Status        string        `json:"status"`
	StatusLabel   string        `json:"status_label"`
	DeviceModel   string        `json:"device_model,omitempty"`
	Service       string        `json:"service"`
	Verified      bool          `json:"verified"`
	OriginalPrice *models.Money `json:"original_price,omitempty"`
	ExtraCharge   *models.Money `json:"extra_charge,omitempty"`
	Collected     *models.Money `json:"collected_price,omitempty"`
	CollectedAt   *time.Time    `json:"collected_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Steps         []TrackStep   `json:"steps"`
}

// Create 新建维修单：按手机号写入客户，生成唯一编号，同一事务写入初始状态记录
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (*OrderDetail, error) {
	verr := &ValidationError{}
	if err := validateStruct(input); err != nil {
		verr.Fields = append(verr.Fields, FieldErrors(err)...)
	}
	if input.OriginalPrice.IsNegative() {
		verr.Add("original_price", "gte", "must be greater than or equal to 0")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		code, err := s.candidateCode(attempt)
		if err != nil {
			return nil, err
		}
		if attempt < s.maxRetries {
			exists, err := s.orderRepo.ExistsByCode(code)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}
		}
		order, err := s.createWithCode(code, input)
		if err == nil {
			s.dispatch(ctx, order.ID, constants.NotifyEventCreated, order.Status)
			return s.detail(order), nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		logger.Debugw("order_code_collision", "code", code, "attempt", attempt)
	}
	return nil, ErrCodeGeneration
}

// candidateCode 前几次生成短编号，最后一次退化为两段拼接的长编号
func (s *OrderService) candidateCode(attempt int) (string, error) {
	first, err := s.codeGen(s.codeLength)
	if err != nil {
		return "", err
	}
	if attempt < s.maxRetries {
		return first, nil
	}
	second, err := s.codeGen(s.codeLength)
	if err != nil {
		return "", err
	}
	return first + second, nil
}

func (s *OrderService) createWithCode(code string, input CreateOrderInput) (*models.Order, error) {
	var created *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		customer, err := upsertCustomer(s.customerRepo.WithTx(tx), CustomerInput{
			Name:  input.CustomerName,
			Phone: input.CustomerPhone,
		})
		if err != nil {
			return err
		}
		now := s.now()
		order := &models.Order{
			Code:          code,
			CustomerID:    customer.ID,
			DeviceModel:   strings.TrimSpace(input.DeviceModel),
			IMEI:          strings.TrimSpace(input.IMEI),
			Service:       strings.TrimSpace(input.Service),
			OriginalPrice: models.NewMoneyFromDecimal(input.OriginalPrice.Decimal),
			Status:        constants.OrderStatusNew,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		repo := s.orderRepo.WithTx(tx)
		if err := repo.Create(order); err != nil {
			return err
		}
		log := &models.OrderStatusLog{
			OrderID: order.ID,
			To:      constants.OrderStatusNew,
			At:      now,
			Note:    optionalString(input.Note),
		}
		if err := repo.AppendStatusLog(log); err != nil {
			return err
		}
		order.Customer = customer
		order.StatusLog = []models.OrderStatusLog{*log}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get 获取维修单详情
func (s *OrderService) Get(id uint) (*OrderDetail, error) {
	order, err := s.orderRepo.GetDetail(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	return s.detail(order), nil
}

// List 分页查询维修单
func (s *OrderService) List(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.Status != "" {
		filter.Status = normalizeOrderStatus(filter.Status)
		if !isKnownOrderStatus(filter.Status) {
			return nil, 0, fieldError("status", "order_status", "unknown status")
		}
	}
	if filter.Phone != "" {
		filter.Phone = NormalizePhone(filter.Phone)
	}
	return s.orderRepo.List(filter)
}

// Track 公开追踪：签名不匹配不报错，只标记 verified=false
func (s *OrderService) Track(code, tag string) (*TrackView, error) {
	code = NormalizeOrderCode(code)
	if code == "" {
		return nil, fieldError("code", "required", "is required")
	}
	order, err := s.orderRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, code)
	}
	view := &TrackView{
		Code:        order.Code,
		Status:      order.Status,
		StatusLabel: OrderStatusLabel(order.Status),
		DeviceModel: order.DeviceModel,
		Service:     order.Service,
		Verified:    s.signer != nil && s.signer.Verify(order.Code, tag),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		Steps:       make([]TrackStep, 0, len(order.StatusLog)),
	}
	if view.Verified {
		original := order.OriginalPrice
		extra := order.ExtraCharge
		view.OriginalPrice = &original
		view.ExtraCharge = &extra
		view.Collected = order.CollectedPrice
		view.CollectedAt = order.CollectedAt
	}
	for _, log := range order.StatusLog {
		view.Steps = append(view.Steps, TrackStep{Status: log.To, Label: OrderStatusLabel(log.To), At: log.At})
	}
	return view, nil
}

// Update 编辑维修单，交付后拒绝修改
func (s *OrderService) Update(id uint, input UpdateOrderInput) (*OrderDetail, error) {
	verr := &ValidationError{}
	if err := validateStruct(input); err != nil {
		verr.Fields = append(verr.Fields, FieldErrors(err)...)
	}
	if input.OriginalPrice != nil && input.OriginalPrice.IsNegative() {
		verr.Add("original_price", "gte", "must be greater than or equal to 0")
	}
	if input.ExtraCharge != nil && input.ExtraCharge.IsNegative() {
		verr.Add("extra_charge", "gte", "must be greater than or equal to 0")
	}
	if input.Service != nil && strings.TrimSpace(*input.Service) == "" {
		verr.Add("service", "required", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		if order.IsLocked() || order.Status == constants.OrderStatusDelivered {
			return ErrAlreadyDelivered
		}
		updates := map[string]interface{}{"updated_at": s.now()}
		if input.DeviceModel != nil {
			updates["device_model"] = strings.TrimSpace(*input.DeviceModel)
		}
		if input.IMEI != nil {
			updates["imei"] = strings.TrimSpace(*input.IMEI)
		}
		if input.Service != nil {
			updates["service"] = strings.TrimSpace(*input.Service)
		}
		if input.OriginalPrice != nil {
			updates["original_price"] = models.NewMoneyFromDecimal(input.OriginalPrice.Decimal)
		}
		extra := order.ExtraCharge
		if input.ExtraCharge != nil {
			extra = models.NewMoneyFromDecimal(input.ExtraCharge.Decimal)
			updates["extra_charge"] = extra
		}
		if input.ExtraReason != nil || input.ExtraCharge != nil {
			reason := order.ExtraReason
			if input.ExtraReason != nil {
				reason = optionalString(*input.ExtraReason)
			}
			if !extra.IsPositive() {
				reason = nil
			}
			updates["extra_reason"] = reason
		}
		return repo.Update(id, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// SetStatus 普通状态变更：状态与流转记录在同一事务内写入
func (s *OrderService) SetStatus(ctx context.Context, id uint, input SetStatusInput) (*OrderDetail, error) {
	input.Status = normalizeOrderStatus(input.Status)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.Status == constants.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: use the delivery action", ErrInvalidTransition)
	}

	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		from := order.Status
		if !canTransition(from, input.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, input.Status)
		}
		now := s.now()
		if err := repo.Update(id, map[string]interface{}{
			"status":     input.Status,
			"updated_at": now,
		}); err != nil {
			return err
		}
		var note *string
		if input.Note != nil {
			note = optionalString(*input.Note)
		}
		return repo.AppendStatusLog(&models.OrderStatusLog{
			OrderID: id,
			From:    &from,
			To:      input.Status,
			At:      now,
			Note:    note,
		})
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, id, constants.NotifyEventStatusChanged, input.Status)
	return s.Get(id)
}

// Delete 删除维修单及其状态记录
func (s *OrderService) Delete(id uint) error {
	return s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return repo.Delete(id)
	})
}

func (s *OrderService) detail(order *models.Order) *OrderDetail {
	detail := &OrderDetail{Order: order}
	if s.signer != nil {
		detail.TrackingURL = s.signer.TrackingURL(order.Code)
	}
	return detail
}

func (s *OrderService) dispatch(ctx context.Context, orderID uint, event, status string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, orderID, event, status)
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
