package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/constants"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecomputeDebtStatus 根据金额与已还总额推导欠款状态
func RecomputeDebtStatus(amount, totalPaid decimal.Decimal) string {
	switch {
	case totalPaid.LessThanOrEqual(decimal.Zero):
		return constants.DebtStatusOpen
	case totalPaid.LessThan(amount):
		return constants.DebtStatusPartial
	default:
		return constants.DebtStatusPaid
	}
}

func sumPayments(payments []models.DebtPayment) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range payments {
		total = total.Add(payment.Amount.Decimal)
	}
	return total
}

// DebtService 欠款台账服务
type DebtService struct {
	repo repository.DebtRepository
	now  func() time.Time
}

// NewDebtService 创建欠款服务
func NewDebtService(repo repository.DebtRepository) *DebtService {
	return &DebtService{repo: repo, now: time.Now}
}

// CreateDebtInput 新建欠款
type CreateDebtInput struct {
	ShopName string       `json:"shop_name" validate:"required,max=120"`
	Phone    string       `json:"phone" validate:"max=32"`
	Service  string       `json:"service" validate:"required,max=255"`
	Amount   models.Money `json:"amount"`
	Notes    string       `json:"notes" validate:"max=1000"`
}

// UpdateDebtInput 编辑欠款（nil 表示不修改）
type UpdateDebtInput struct {
	ShopName *string       `json:"shop_name" validate:"omitempty,max=120"`
	Phone    *string       `json:"phone" validate:"omitempty,max=32"`
	Service  *string       `json:"service" validate:"omitempty,max=255"`
	Amount   *models.Money `json:"amount"`
	Notes    *string       `json:"notes" validate:"omitempty,max=1000"`
}

// DebtDetail 欠款详情（含汇总）
type DebtDetail struct {
	*models.Debt
	TotalPaid models.Money `json:"total_paid"`
	Remaining models.Money `json:"remaining"`
}

// DebtSummary 台账汇总
type DebtSummary struct {
	OpenCount        int          `json:"open_count"`
	PartialCount     int          `json:"partial_count"`
	PaidCount        int          `json:"paid_count"`
	TotalAmount      models.Money `json:"total_amount"`
	TotalPaid        models.Money `json:"total_paid"`
	TotalOutstanding models.Money `json:"total_outstanding"`
}

func buildDebtDetail(debt *models.Debt) *DebtDetail {
	paid := sumPayments(debt.Payments)
	remaining := debt.Amount.Decimal.Sub(paid)
	if remaining.LessThan(decimal.Zero) {
		remaining = decimal.Zero
	}
	return &DebtDetail{
		Debt:      debt,
		TotalPaid: models.NewMoneyFromDecimal(paid),
		Remaining: models.NewMoneyFromDecimal(remaining),
	}
}

// Create 新建欠款，状态为 OPEN
func (s *DebtService) Create(input CreateDebtInput) (*DebtDetail, error) {
	verr := &ValidationError{}
	if err := validateStruct(input); err != nil {
		verr.Fields = append(verr.Fields, FieldErrors(err)...)
	}
	if !input.Amount.IsPositive() {
		verr.Add("amount", "gt", "must be greater than 0")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	debt := &models.Debt{
		ShopName: strings.TrimSpace(input.ShopName),
		Phone:    NormalizePhone(input.Phone),
		Service:  strings.TrimSpace(input.Service),
		Amount:   models.NewMoneyFromDecimal(input.Amount.Decimal),
		Status:   RecomputeDebtStatus(input.Amount.Decimal, decimal.Zero),
		Notes:    strings.TrimSpace(input.Notes),
	}
	if err := s.repo.Create(debt); err != nil {
		return nil, err
	}
	return buildDebtDetail(debt), nil
}

// Get 获取欠款详情
func (s *DebtService) Get(id uint) (*DebtDetail, error) {
	debt, err := s.repo.GetDetail(id)
	if err != nil {
		return nil, err
	}
	if debt == nil {
		return nil, fmt.Errorf("%w: debt %d", ErrNotFound, id)
	}
	return buildDebtDetail(debt), nil
}

// List 分页查询欠款
func (s *DebtService) List(filter repository.DebtListFilter) ([]DebtDetail, int64, error) {
	if filter.Status != "" {
		filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
	}
	debts, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	result := make([]DebtDetail, 0, len(debts))
	for i := range debts {
		result = append(result, *buildDebtDetail(&debts[i]))
	}
	return result, total, nil
}

// AddPayment 记录还款并重算状态（单事务）
func (s *DebtService) AddPayment(debtID uint, amount models.Money) (*DebtDetail, error) {
	if !amount.IsPositive() {
		return nil, fieldError("amount", "gt", "must be greater than 0")
	}

	var detail *DebtDetail
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// 锁住欠款行，并发还款按顺序汇总
		debt, err := repo.GetByIDForUpdate(debtID)
		if err != nil {
			return err
		}
		if debt == nil {
			return fmt.Errorf("%w: debt %d", ErrNotFound, debtID)
		}
		payment := &models.DebtPayment{
			DebtID: debt.ID,
			Amount: models.NewMoneyFromDecimal(amount.Decimal),
			At:     s.now(),
		}
		if err := repo.CreatePayment(payment); err != nil {
			return err
		}
		payments, err := repo.ListPayments(debt.ID)
		if err != nil {
			return err
		}
		debt.Status = RecomputeDebtStatus(debt.Amount.Decimal, sumPayments(payments))
		if err := repo.Update(debt); err != nil {
			return err
		}
		debt.Payments = payments
		detail = buildDebtDetail(debt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Update 编辑欠款，金额变化时按已还总额重算状态
func (s *DebtService) Update(debtID uint, input UpdateDebtInput) (*DebtDetail, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.Amount != nil && !input.Amount.IsPositive() {
		return nil, fieldError("amount", "gt", "must be greater than 0")
	}
	if input.ShopName != nil && strings.TrimSpace(*input.ShopName) == "" {
		return nil, fieldError("shop_name", "required", "is required")
	}
	if input.Service != nil && strings.TrimSpace(*input.Service) == "" {
		return nil, fieldError("service", "required", "is required")
	}

	var detail *DebtDetail
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		debt, err := repo.GetByIDForUpdate(debtID)
		if err != nil {
			return err
		}
		if debt == nil {
			return fmt.Errorf("%w: debt %d", ErrNotFound, debtID)
		}
		if input.ShopName != nil {
			debt.ShopName = strings.TrimSpace(*input.ShopName)
		}
		if input.Phone != nil {
			debt.Phone = NormalizePhone(*input.Phone)
		}
		if input.Service != nil {
			debt.Service = strings.TrimSpace(*input.Service)
		}
		if input.Notes != nil {
			debt.Notes = strings.TrimSpace(*input.Notes)
		}
		if input.Amount != nil {
			debt.Amount = models.NewMoneyFromDecimal(input.Amount.Decimal)
		}
		payments, err := repo.ListPayments(debt.ID)
		if err != nil {
			return err
		}
		debt.Status = RecomputeDebtStatus(debt.Amount.Decimal, sumPayments(payments))
		if err := repo.Update(debt); err != nil {
			return err
		}
		debt.Payments = payments
		detail = buildDebtDetail(debt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Delete 删除欠款及其还款记录
func (s *DebtService) Delete(debtID uint) error {
	return s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		debt, err := repo.GetByID(debtID)
		if err != nil {
			return err
		}
		if debt == nil {
			return fmt.Errorf("%w: debt %d", ErrNotFound, debtID)
		}
		return repo.Delete(debtID)
	})
}

// Summary 汇总全部欠款
func (s *DebtService) Summary() (*DebtSummary, error) {
	debts, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	totalAmount := decimal.Zero
	totalPaid := decimal.Zero
	outstanding := decimal.Zero
	summary := &DebtSummary{}
	for i := range debts {
		detail := buildDebtDetail(&debts[i])
		totalAmount = totalAmount.Add(detail.Amount.Decimal)
		totalPaid = totalPaid.Add(detail.TotalPaid.Decimal)
		outstanding = outstanding.Add(detail.Remaining.Decimal)
		switch detail.Status {
		case constants.DebtStatusOpen:
			summary.OpenCount++
		case constants.DebtStatusPartial:
			summary.PartialCount++
		case constants.DebtStatusPaid:
			summary.PaidCount++
		}
	}
	summary.TotalAmount = models.NewMoneyFromDecimal(totalAmount)
	summary.TotalPaid = models.NewMoneyFromDecimal(totalPaid)
	summary.TotalOutstanding = models.NewMoneyFromDecimal(outstanding)
	return summary, nil
}
