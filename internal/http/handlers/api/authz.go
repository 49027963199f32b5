package api

import (
	"errors"

	"github.com/truckdock/internal/authz"
	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/i18n"

	"github.com/gin-gonic/gin"
)

// GrantPolicyRequest 角色授权请求
type GrantPolicyRequest struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// ListRolePolicies 内置角色的继承链与策略（管理员）
func (h *Handler) ListRolePolicies(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	items := make([]*authz.RolePolicies, 0, len(roles))
	for _, role := range roles {
		item, err := h.AuthzService.DescribeRole(role)
		if err != nil {
			shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
			return
		}
		items = append(items, item)
	}
	response.Success(c, items)
}

// GrantRolePolicy 为内置角色追加接口权限（管理员）
func (h *Handler) GrantRolePolicy(c *gin.Context) {
	var req GrantPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	role := c.Param("role")
	added, err := h.AuthzService.GrantRolePolicy(role, req.Object, req.Action)
	switch {
	case errors.Is(err, authz.ErrUnknownRole):
		shared.RespondError(c, response.CodeBadRequest, "error.invalid_role", nil)
		return
	case errors.Is(err, authz.ErrInvalidAction):
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	case err != nil:
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if added {
		shared.RequestLog(c).Infow("authz_policy_granted",
			"role", role,
			"object", authz.NormalizeObject(req.Object),
			"action", authz.NormalizeAction(req.Action),
		)
	}
	detail, err := h.AuthzService.DescribeRole(role)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.policy_granted"), detail)
}
