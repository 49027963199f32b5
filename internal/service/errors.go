package service

import (
	"errors"
	"strings"
)

// 通用业务错误
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrWeakPassword         = errors.New("weak password")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
)

// 账号相关错误
var (
	ErrUsernameRequired = errors.New("username required")
	ErrUsernameExists   = errors.New("username already exists")
	ErrInvalidRole      = errors.New("invalid role")
	ErrCannotDeleteSelf = errors.New("cannot delete yourself")
	ErrUserNotFound     = errors.New("user not found")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenRevoked     = errors.New("token revoked")
)

// 车辆记录相关错误
var (
	ErrTruckNotFound       = errors.New("truck not found")
	ErrTruckRequiredFields = errors.New("truck key fields required")
	ErrInvalidStatus       = errors.New("invalid status value")
	ErrInvalidStatusType   = errors.New("invalid status type")
	ErrInvalidTime         = errors.New("invalid time value")
	ErrInvalidDate         = errors.New("invalid date")
)

// 导入相关错误
var (
	ErrImportFileType         = errors.New("unsupported import file type")
	ErrImportFileTooLarge     = errors.New("import file too large")
	ErrImportReadFailed       = errors.New("import file unreadable")
	ErrImportSessionNotFound  = errors.New("Import session not found or expired")
	ErrImportSessionForbidden = errors.New("import session owned by another user")
)

// MissingColumnsError 缺少必填列
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// DateFieldError 日期查询参数格式错误
type DateFieldError struct {
	Field string
	Value string
}

func (e *DateFieldError) Error() string {
	return "invalid " + e.Field + " format, use YYYY-MM-DD: " + e.Value
}

func (e *DateFieldError) Unwrap() error {
	return ErrInvalidDate
}
