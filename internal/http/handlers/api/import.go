package api

import (
	"strings"

	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/i18n"
	"github.com/truckdock/internal/repository"
	"github.com/truckdock/internal/service"

	"github.com/gin-gonic/gin"
)

// ConfirmImportRequest 确认导入请求
type ConfirmImportRequest struct {
	SessionID string `json:"session_id" form:"session_id"`
}

type importPreviewResponse struct {
	*service.PreviewResult
	Message string `json:"message"`
}

type importConfirmResponse struct {
	*service.ConfirmResult
	Message string `json:"message"`
}

// PreviewImport 上传月度模板并返回预览与会话
func (h *Handler) PreviewImport(c *gin.Context) {
	principal, ok := shared.GetPrincipal(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.import_file_required", nil)
		return
	}
	if err := service.ValidateImportFilename(fileHeader.Filename); err != nil {
		respondImportError(c, err)
		return
	}
	if limit := h.Config.Import.MaxUploadBytes; limit > 0 && fileHeader.Size > limit {
		respondImportError(c, service.ErrImportFileTooLarge)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.import_read_failed", err)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.ImportService.Preview(c.Request.Context(), service.PreviewInput{
		Filename: fileHeader.Filename,
		Reader:   file,
	}, principal)
	if err != nil {
		respondImportError(c, err)
		return
	}
	msg := i18n.Sprintf(i18n.ResolveLocale(c), "message.import_preview", result.TotalRecordsToCreate, result.TotalTemplates)
	response.Success(c, importPreviewResponse{PreviewResult: result, Message: msg})
}

// ConfirmImport 确认导入会话并执行对账写入
func (h *Handler) ConfirmImport(c *gin.Context) {
	principal, ok := shared.GetPrincipal(c)
	if !ok {
		return
	}
	var req ConfirmImportRequest
	_ = c.ShouldBind(&req)
	if strings.TrimSpace(req.SessionID) == "" {
		shared.RespondError(c, response.CodeBadRequest, "error.import_session_required", nil)
		return
	}
	result, err := h.ImportService.Confirm(c.Request.Context(), req.SessionID, principal)
	if err != nil {
		respondImportError(c, err)
		return
	}
	msg := i18n.Sprintf(i18n.ResolveLocale(c), "message.import_confirmed", result.Imported, result.Updated, result.Created, result.Failed)
	response.Success(c, importConfirmResponse{ConfirmResult: result, Message: msg})
}

// CancelImport 放弃导入会话
func (h *Handler) CancelImport(c *gin.Context) {
	principal, ok := shared.GetPrincipal(c)
	if !ok {
		return
	}
	if err := h.ImportService.CancelSession(c.Request.Context(), c.Param("id"), principal); err != nil {
		respondImportError(c, err)
		return
	}
	msg := i18n.T(i18n.ResolveLocale(c), "message.import_session_cancelled")
	response.SuccessWithMsg(c, msg, nil)
}

// ListImportLogs 导入历史；非管理员仅能查看自己的记录
func (h *Handler) ListImportLogs(c *gin.Context) {
	principal, ok := shared.GetPrincipal(c)
	if !ok {
		return
	}
	page, pageSize := shared.QueryPagination(c)
	filter := repository.ImportLogListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if !isAdmin(principal) {
		filter.OwnerID = principal.UserID
	} else {
		filter.OwnerID = strings.TrimSpace(c.Query("owner_id"))
	}
	logs, total, err := h.ImportService.ListImportLogs(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, logs, response.NewPagination(page, pageSize, total))
}

func isAdmin(principal *service.Principal) bool {
	return principal != nil && !principal.IsGuest && principal.Role == constants.RoleAdmin
}
