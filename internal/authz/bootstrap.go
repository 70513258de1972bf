package authz

import (
	"fmt"

	"github.com/snipero7/qr24-sub000/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Policies []Policy
}

// BuiltinRoleSeeds 门店预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	orderRead := []Policy{
		{Object: "/admin/orders", Action: "GET"},
		{Object: "/admin/orders/:id", Action: "GET"},
		{Object: "/admin/orders/:id/whatsapp-link", Action: "GET"},
		{Object: "/admin/customers", Action: "GET"},
		{Object: "/admin/customers/:id", Action: "GET"},
	}
	return []RoleSeed{
		{
			Role: constants.RoleManager,
			Policies: []Policy{
				{Object: "/admin/orders", Action: "*"},
				{Object: "/admin/orders/:id", Action: "*"},
				{Object: "/admin/orders/:id/*", Action: "*"},
				{Object: "/admin/customers", Action: "*"},
				{Object: "/admin/customers/:id", Action: "*"},
				{Object: "/admin/debts", Action: "*"},
				{Object: "/admin/debts/*", Action: "*"},
				{Object: "/admin/backups", Action: "*"},
				{Object: "/admin/backups/*", Action: "*"},
				{Object: "/admin/settings/*", Action: "*"},
				{Object: "/admin/exports/*", Action: "GET"},
				{Object: "/admin/login-logs", Action: "GET"},
			},
		},
		{
			Role: constants.RoleTechnician,
			Policies: append(append([]Policy{}, orderRead...),
				Policy{Object: "/admin/orders", Action: "POST"},
				Policy{Object: "/admin/orders/:id", Action: "PUT"},
				Policy{Object: "/admin/orders/:id/status", Action: "PATCH"},
			),
		},
		{
			Role: constants.RoleCashier,
			Policies: append(append([]Policy{}, orderRead...),
				Policy{Object: "/admin/orders", Action: "POST"},
				Policy{Object: "/admin/orders/:id/deliver", Action: "POST"},
				Policy{Object: "/admin/orders/:id/receipt", Action: "POST"},
				Policy{Object: "/admin/debts", Action: "*"},
				Policy{Object: "/admin/debts/*", Action: "*"},
			),
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if !s.ready() {
		return ErrUnavailable
	}
	for _, seed := range BuiltinRoleSeeds() {
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(seed.Role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("seed role %s failed: %w", seed.Role, err)
			}
		}
	}
	return nil
}
