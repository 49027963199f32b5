package api

import (
	"errors"
	"strings"

	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/service"

	"github.com/gin-gonic/gin"
)

// respondTruckError 车辆记录相关错误映射
func respondTruckError(c *gin.Context, err error, fallbackKey string) {
	var dateErr *service.DateFieldError
	switch {
	case errors.As(err, &dateErr):
		key := "error.invalid_date"
		if dateErr.Field == "date_from" || dateErr.Field == "date_to" {
			key = "error.invalid_" + dateErr.Field
		}
		shared.RespondError(c, response.CodeBadRequest, key, nil)
	case errors.Is(err, service.ErrTruckNotFound), errors.Is(err, service.ErrNotFound):
		shared.RespondError(c, response.CodeNotFound, "error.truck_not_found", nil)
	case errors.Is(err, service.ErrTruckRequiredFields):
		shared.RespondError(c, response.CodeBadRequest, "error.truck_required_fields", nil)
	case errors.Is(err, service.ErrInvalidStatusType):
		shared.RespondError(c, response.CodeBadRequest, "error.invalid_status_type", nil)
	case errors.Is(err, service.ErrInvalidStatus):
		shared.RespondError(c, response.CodeBadRequest, "error.invalid_status", nil)
	case errors.Is(err, service.ErrInvalidTime):
		shared.RespondError(c, response.CodeBadRequest, "error.invalid_time", nil)
	case errors.Is(err, service.ErrInvalidDate):
		shared.RespondError(c, response.CodeBadRequest, "error.invalid_date", nil)
	default:
		shared.RespondError(c, response.CodeInternal, fallbackKey, err)
	}
}

// respondImportError 导入相关错误映射
func respondImportError(c *gin.Context, err error) {
	var missing *service.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		shared.RespondErrorf(c, response.CodeBadRequest, "error.import_missing_columns", nil, strings.Join(missing.Columns, ", "))
	case errors.Is(err, service.ErrImportFileType):
		shared.RespondError(c, response.CodeBadRequest, "error.import_file_type", nil)
	case errors.Is(err, service.ErrImportFileTooLarge):
		shared.RespondError(c, response.CodeBadRequest, "error.import_file_too_large", nil)
	case errors.Is(err, service.ErrImportReadFailed):
		shared.RequestLog(c).Warnw("import_read_failed", "error", err)
		shared.RespondError(c, response.CodeBadRequest, "error.import_read_failed", nil)
	case errors.Is(err, service.ErrImportSessionNotFound):
		shared.RespondError(c, response.CodeNotFound, "error.import_session_not_found", nil)
	case errors.Is(err, service.ErrImportSessionForbidden):
		shared.RespondError(c, response.CodeForbidden, "error.import_session_forbidden", nil)
	case errors.Is(err, service.ErrTokenInvalid):
		shared.RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
	default:
		shared.RespondError(c, response.CodeInternal, "error.import_failed", err)
	}
}

// respondUserError 账号相关错误映射
func respondUserError(c *gin.Context, err error, fallbackKey string) {
	if key, args, ok := service.PasswordPolicyError(err); ok {
		shared.RespondErrorf(c, response.CodeBadRequest, key, nil, args...)
		return
	}
	switch {
	case errors.Is(err, service.ErrUsernameRequired):
		shared.RespondError(c, response.CodeBadRequest, "error.username_required", nil)
	case errors.Is(err, service.ErrUsernameExists):
		shared.RespondError(c, response.CodeBadRequest, "error.username_exists", nil)
	case errors.Is(err, service.ErrInvalidRole):
		shared.RespondError(c, response.CodeBadRequest, "error.invalid_role", nil)
	case errors.Is(err, service.ErrCannotDeleteSelf):
		shared.RespondError(c, response.CodeBadRequest, "error.cannot_delete_self", nil)
	case errors.Is(err, service.ErrUserNotFound):
		shared.RespondError(c, response.CodeNotFound, "error.user_not_found", nil)
	case errors.Is(err, service.ErrWeakPassword):
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
	default:
		shared.RespondError(c, response.CodeInternal, fallbackKey, err)
	}
}
