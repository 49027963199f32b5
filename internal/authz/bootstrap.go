package authz

import (
	"fmt"

	"github.com/truckdock/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵 viewer < user < admin
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleViewer,
			Policies: []Policy{
				{Object: "/trucks", Action: "GET"},
				{Object: "/trucks/:id", Action: "GET"},
				{Object: "/trucks/template", Action: "GET"},
				{Object: "/trucks/export", Action: "GET"},
				{Object: "/trucks/duplicate-stats", Action: "GET"},
				{Object: "/trucks/check-duplicates", Action: "GET"},
				{Object: "/stats", Action: "GET"},
				{Object: "/auth/me", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleUser,
			Inherits: []string{constants.RoleViewer},
			Policies: []Policy{
				{Object: "/trucks", Action: "POST"},
				{Object: "/trucks/:id", Action: "PUT"},
				{Object: "/trucks/:id/status", Action: "PATCH"},
				{Object: "/trucks/import/preview", Action: "POST"},
				{Object: "/trucks/import/confirm", Action: "POST"},
				{Object: "/trucks/import/sessions/:id", Action: "DELETE"},
				{Object: "/imports", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RoleUser},
			Policies: []Policy{
				{Object: "/trucks/:id", Action: "DELETE"},
				{Object: "/auth/register", Action: "POST"},
				{Object: "/users", Action: "GET"},
				{Object: "/users/:id", Action: "DELETE"},
				{Object: "/authz/roles", Action: "GET"},
				{Object: "/authz/roles/:role/policies", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入内置角色的继承关系与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		subject, err := RoleSubject(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentSubject, err := RoleSubject(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddGroupingPolicy(subject, parentSubject); err != nil {
				return fmt.Errorf("link %s to %s failed: %w", subject, parentSubject, err)
			}
		}
		for _, policy := range seed.Policies {
			if _, err := s.enforcer.AddPolicy(subject, NormalizeObject(policy.Object), NormalizeAction(policy.Action)); err != nil {
				return fmt.Errorf("seed policy %s %s for %s failed: %w", policy.Action, policy.Object, subject, err)
			}
		}
	}
	return nil
}
