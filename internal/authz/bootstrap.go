package authz

import (
	"fmt"
	"strings"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// 预置角色
const (
	RoleReadonlyAuditor = "readonly_auditor"
	RolePromoOperator   = "promo_operator"
	RolePromoManager    = "promo_manager"
)

// BuiltinRoleSeeds 系统预置角色矩阵
// promo_operator 可创建与编辑，删除仅 promo_manager 可用
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleReadonlyAuditor,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     RolePromoOperator,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/promo-codes", Action: "POST"},
				{Object: "/admin/promo-codes/batch", Action: "POST"},
				{Object: "/admin/promo-codes/generate", Action: "POST"},
				{Object: "/admin/promo-codes/:id", Action: "PUT"},
				{Object: "/admin/promo-codes/:id/active", Action: "PATCH"},
			},
		},
		{
			Role:     RolePromoManager,
			Inherits: []string{RolePromoOperator},
			Policies: []Policy{
				{Object: "/admin/promo-codes/:id", Action: "DELETE"},
			},
		},
	}
}

// RoleForAdmin 管理员账号角色对应的授权角色
func RoleForAdmin(accountRole string) string {
	switch strings.ToLower(strings.TrimSpace(accountRole)) {
	case "superadmin":
		return RolePromoManager
	case "admin":
		return RolePromoOperator
	default:
		return RoleReadonlyAuditor
	}
}

// SyncAdminRole 按账号角色重置管理员的授权角色
func (s *Service) SyncAdminRole(adminID uint, accountRole string) error {
	return s.AssignAdminRole(adminID, RoleForAdmin(accountRole))
}

// BootstrapBuiltinRoles 写入预置角色的继承关系与策略，已存在的规则跳过
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return errUnavailable
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddRoleForUser(role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
