package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/snipero7/qr24-sub000/internal/authz"
	"github.com/snipero7/qr24-sub000/internal/cache"
	"github.com/snipero7/qr24-sub000/internal/logger"
	"github.com/snipero7/qr24-sub000/internal/models"
	"github.com/snipero7/qr24-sub000/internal/repository"
)

// AdminRoleBinder 账号角色绑定（authz.Service 实现）
type AdminRoleBinder interface {
	ListRoles() ([]string, error)
	SetAdminRoles(adminID uint, roles []string) error
	GetAdminRoles(adminID uint) ([]string, error)
	RemoveAdmin(adminID uint) error
}

// AdminUserService 后台账号管理
type AdminUserService struct {
	adminRepo repository.AdminRepository
	auth      *AuthService
	roles     AdminRoleBinder
	authCache *cache.Store
}

// NewAdminUserService 创建账号管理服务
func NewAdminUserService(adminRepo repository.AdminRepository, auth *AuthService, roles AdminRoleBinder, authCache *cache.Store) *AdminUserService {
	return &AdminUserService{adminRepo: adminRepo, auth: auth, roles: roles, authCache: authCache}
}

// AdminUserView 账号视图（附带角色）
type AdminUserView struct {
	*models.Admin
	Roles []string `json:"roles"`
}

// CreateAdminInput 创建账号参数
type CreateAdminInput struct {
	Username    string   `json:"username" validate:"required,min=3,max=64"`
	DisplayName string   `json:"display_name" validate:"max=100"`
	Password    string   `json:"password" validate:"required"`
	IsSuper     bool     `json:"is_super"`
	Roles       []string `json:"roles"`
}

// UpdateAdminInput 更新账号参数
type UpdateAdminInput struct {
	DisplayName *string  `json:"display_name" validate:"omitempty,max=100"`
	Password    *string  `json:"password"`
	IsSuper     *bool    `json:"is_super"`
	Disabled    *bool    `json:"disabled"`
	Roles       []string `json:"roles"`
}

// List 账号列表
func (s *AdminUserService) List() ([]AdminUserView, error) {
	admins, err := s.adminRepo.List()
	if err != nil {
		return nil, err
	}
	views := make([]AdminUserView, 0, len(admins))
	for i := range admins {
		view, err := s.view(&admins[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// Get 账号详情
func (s *AdminUserService) Get(id uint) (*AdminUserView, error) {
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	return s.view(admin)
}

// ListRoles 可分配的角色
func (s *AdminUserService) ListRoles() ([]string, error) {
	if s.roles == nil {
		return []string{}, nil
	}
	return s.roles.ListRoles()
}

// Create 创建账号
func (s *AdminUserService) Create(input CreateAdminInput) (*AdminUserView, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	username := strings.ToLower(strings.TrimSpace(input.Username))
	existing, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	if err := s.auth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := s.checkRoles(input.Roles); err != nil {
		return nil, err
	}
	hashed, err := s.auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{
		Username:     username,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: hashed,
		IsSuper:      input.IsSuper,
	}
	if err := s.adminRepo.Create(admin); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	if len(input.Roles) > 0 {
		if err := s.setRoles(admin.ID, input.Roles); err != nil {
			return nil, err
		}
	}
	return s.view(admin)
}

// Update 更新账号；禁用或改密会提升 Token 版本
func (s *AdminUserService) Update(ctx context.Context, actorID, id uint, input UpdateAdminInput) (*AdminUserView, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}

	bump := false
	if input.DisplayName != nil {
		admin.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Password != nil && *input.Password != "" {
		if err := s.auth.ValidatePassword(*input.Password); err != nil {
			return nil, err
		}
		hashed, err := s.auth.HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		admin.PasswordHash = hashed
		bump = true
	}
	if input.IsSuper != nil && admin.IsSuper && !*input.IsSuper {
		if err := s.ensureAnotherSuper(admin.ID); err != nil {
			return nil, err
		}
		admin.IsSuper = false
	} else if input.IsSuper != nil {
		admin.IsSuper = *input.IsSuper
	}
	if input.Disabled != nil && *input.Disabled != admin.Disabled {
		if *input.Disabled {
			if actorID == admin.ID {
				return nil, ErrCannotDeleteSelf
			}
			if admin.IsSuper {
				if err := s.ensureAnotherSuper(admin.ID); err != nil {
					return nil, err
				}
			}
			bump = true
		}
		admin.Disabled = *input.Disabled
	}
	if bump {
		admin.TokenVersion++
	}
	if err := s.adminRepo.Update(admin); err != nil {
		return nil, err
	}
	if input.Roles != nil {
		if err := s.setRoles(admin.ID, input.Roles); err != nil {
			return nil, err
		}
	}
	s.dropAuthState(ctx, admin.ID)
	return s.view(admin)
}

// Delete 删除账号，不允许删除自己或最后一个超级管理员
func (s *AdminUserService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrNotFound
	}
	if admin.IsSuper {
		if err := s.ensureAnotherSuper(admin.ID); err != nil {
			return err
		}
	}
	if err := s.adminRepo.Delete(id); err != nil {
		return err
	}
	if s.roles != nil {
		if err := s.roles.RemoveAdmin(id); err != nil {
			logger.Warnw("admin_roles_remove_failed", "admin_id", id, "error", err)
		}
	}
	s.dropAuthState(ctx, id)
	return nil
}

func (s *AdminUserService) ensureAnotherSuper(excludeID uint) error {
	count, err := s.adminRepo.CountActiveSupers(excludeID)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrLastSuperAdmin
	}
	return nil
}

// checkRoles 创建账号前确认角色存在，避免留下无角色的账号
func (s *AdminUserService) checkRoles(roles []string) error {
	if len(roles) == 0 {
		return nil
	}
	if s.roles == nil {
		return ErrUnsupported
	}
	known, err := s.roles.ListRoles()
	if err != nil {
		return err
	}
	for _, role := range roles {
		normalized, err := authz.NormalizeRole(role)
		if err != nil || !containsString(known, normalized) {
			return fieldError("roles", "oneof", fmt.Sprintf("unknown role: %s", role))
		}
	}
	return nil
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func (s *AdminUserService) setRoles(adminID uint, roles []string) error {
	if s.roles == nil {
		return ErrUnsupported
	}
	if err := s.roles.SetAdminRoles(adminID, roles); err != nil {
		if errors.Is(err, authz.ErrUnknownRole) {
			return fieldError("roles", "oneof", err.Error())
		}
		return fmt.Errorf("set admin roles: %w", err)
	}
	return nil
}

func (s *AdminUserService) view(admin *models.Admin) (*AdminUserView, error) {
	roles := []string{}
	if s.roles != nil {
		bound, err := s.roles.GetAdminRoles(admin.ID)
		if err != nil {
			return nil, err
		}
		roles = bound
	}
	return &AdminUserView{Admin: admin, Roles: roles}, nil
}

func (s *AdminUserService) dropAuthState(ctx context.Context, adminID uint) {
	if err := s.authCache.DelAdminAuthState(ctx, adminID); err != nil {
		logger.Warnw("auth_state_cache_del_failed", "admin_id", adminID, "error", err)
	}
}
