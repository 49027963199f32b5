package api

import (
	"errors"
	"strings"

	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/i18n"
	"github.com/truckdock/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求（JSON 或表单）
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
	// 启用验证码时必填
	CaptchaID   string `json:"captcha_id" form:"captcha_id"`
	CaptchaCode string `json:"captcha_code" form:"captcha_code"`
}

// RegisterRequest 创建账号请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// Login 账号登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.CaptchaService.Verify(service.CaptchaVerifyPayload{
		CaptchaID:   strings.TrimSpace(req.CaptchaID),
		CaptchaCode: strings.TrimSpace(req.CaptchaCode),
	}); err != nil {
		switch {
		case errors.Is(err, service.ErrCaptchaRequired):
			shared.RespondError(c, response.CodeBadRequest, "error.captcha_required", nil)
		case errors.Is(err, service.ErrCaptchaInvalid):
			shared.RespondError(c, response.CodeBadRequest, "error.captcha_invalid", nil)
		default:
			shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		}
		return
	}

	result, err := h.AuthService.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			shared.RequestLog(c).Infow("auth_login_rejected", "username", req.Username, "client_ip", c.ClientIP())
			shared.RespondError(c, response.CodeUnauthorized, "error.invalid_credentials", nil)
			return
		}
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, result)
}

// GuestLogin 游客登录（只读）
func (h *Handler) GuestLogin(c *gin.Context) {
	result, err := h.AuthService.GuestLogin()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, result)
}

// GetCaptcha 获取登录图片验证码
func (h *Handler) GetCaptcha(c *gin.Context) {
	if !h.CaptchaService.Enabled() {
		shared.RespondError(c, response.CodeBadRequest, "error.captcha_disabled", nil)
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, challenge)
}

// GetMe 当前登录身份
func (h *Handler) GetMe(c *gin.Context) {
	principal, ok := shared.GetPrincipal(c)
	if !ok {
		return
	}
	response.Success(c, principal)
}

// Register 创建账号（管理员）
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	user, err := h.UserService.Register(service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondUserError(c, err, "error.internal_error")
		return
	}
	msg := i18n.Sprintf(i18n.ResolveLocale(c), "message.user_created", user.Username)
	response.SuccessWithMsg(c, msg, user)
}
