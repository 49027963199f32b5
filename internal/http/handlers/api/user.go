package api

import (
	"strings"

	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/i18n"
	"github.com/truckdock/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListUsers 账号列表（管理员）
func (h *Handler) ListUsers(c *gin.Context) {
	page, pageSize := shared.QueryPagination(c)
	users, total, err := h.UserService.List(repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Role:     strings.TrimSpace(c.Query("role")),
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, users, response.NewPagination(page, pageSize, total))
}

// DeleteUser 删除账号（管理员，不能删除自己）
func (h *Handler) DeleteUser(c *gin.Context) {
	principal, ok := shared.GetPrincipal(c)
	if !ok {
		return
	}
	user, err := h.UserService.Delete(c.Request.Context(), principal.UserID, c.Param("id"))
	if err != nil {
		respondUserError(c, err, "error.internal_error")
		return
	}
	msg := i18n.Sprintf(i18n.ResolveLocale(c), "message.user_deleted", user.Username)
	response.SuccessWithMsg(c, msg, gin.H{"id": user.ID})
}
