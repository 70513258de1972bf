package service

import (
	"fmt"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"
)

// NormalizePhone 手机号只保留数字（阿拉伯-印度数字转为 ASCII），保留开头的 +
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		}
	}
	normalized := b.String()
	if normalized == "+" {
		return ""
	}
	return normalized
}

// CustomerService 客户服务
type CustomerService struct {
	repo      repository.CustomerRepository
	orderRepo repository.OrderRepository
}

// NewCustomerService 创建客户服务
func NewCustomerService(repo repository.CustomerRepository, orderRepo repository.OrderRepository) *CustomerService {
	return &CustomerService{repo: repo, orderRepo: orderRepo}
}

// CustomerInput 客户信息
type CustomerInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,max=32"`
	Notes string `json:"notes" validate:"max=1000"`
}

// CustomerDetail 客户详情
type CustomerDetail struct {
	*models.Customer
	OrderCount int64 `json:"order_count"`
}

// Upsert 按手机号新增或更新客户
func (s *CustomerService) Upsert(input CustomerInput) (*models.Customer, error) {
	return upsertCustomer(s.repo, input)
}

// upsertCustomer 在给定仓库（可能已绑定事务）上按手机号写入客户
func upsertCustomer(repo repository.CustomerRepository, input CustomerInput) (*models.Customer, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	phone := NormalizePhone(input.Phone)
	if phone == "" {
		return nil, fieldError("phone", "phone", "must contain digits")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fieldError("name", "required", "is required")
	}

	existing, err := repo.GetByPhone(phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		changed := false
		if existing.Name != name {
			existing.Name = name
			changed = true
		}
		if notes := strings.TrimSpace(input.Notes); notes != "" && notes != existing.Notes {
			existing.Notes = notes
			changed = true
		}
		if changed {
			if err := repo.Update(existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	customer := &models.Customer{
		Name:  name,
		Phone: phone,
		Notes: strings.TrimSpace(input.Notes),
	}
	if err := repo.Create(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Get 获取客户及维修单数量
func (s *CustomerService) Get(id uint) (*CustomerDetail, error) {
	customer, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, id)
	}
	count, err := s.orderRepo.CountByCustomer(id)
	if err != nil {
		return nil, err
	}
	return &CustomerDetail{Customer: customer, OrderCount: count}, nil
}

// List 分页查询客户
func (s *CustomerService) List(filter repository.CustomerListFilter) ([]models.Customer, int64, error) {
	if digits := NormalizePhone(filter.Search); digits != "" && len(digits) >= 3 {
		filter.Search = digits
	}
	return s.repo.List(filter)
}

// Update 编辑客户，手机号冲突时返回字段错误
func (s *CustomerService) Update(id uint, input CustomerInput) (*models.Customer, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	phone := NormalizePhone(input.Phone)
	if phone == "" {
		return nil, fieldError("phone", "phone", "must contain digits")
	}
	customer, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, id)
	}
	if phone != customer.Phone {
		other, err := s.repo.GetByPhone(phone)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, fieldError("phone", "unique", "already used by another customer")
		}
	}
	customer.Name = strings.TrimSpace(input.Name)
	customer.Phone = phone
	customer.Notes = strings.TrimSpace(input.Notes)
	if err := s.repo.Update(customer); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fieldError("phone", "unique", "already used by another customer")
		}
		return nil, err
	}
	return customer, nil
}
