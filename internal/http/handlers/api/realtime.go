package api

import (
	"errors"
	"strings"

	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/notifier"

	"github.com/gin-gonic/gin"
)

const anonymousSubject = "anonymous"

// ServeRealtime WebSocket 订阅入口；开启 require_auth 时需携带 token 查询参数或 Bearer 头
func (h *Handler) ServeRealtime(c *gin.Context) {
	if h.Hub == nil {
		shared.RespondError(c, response.CodeInternal, "error.realtime_unavailable", nil)
		return
	}
	subject := anonymousSubject
	if h.Config.WebSocket.RequireAuth {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = shared.BearerToken(c.GetHeader("Authorization"))
		}
		if token == "" {
			shared.RespondError(c, response.CodeUnauthorized, "error.token_missing", nil)
			return
		}
		principal, err := h.AuthService.Authenticate(c.Request.Context(), token)
		if err != nil {
			shared.RespondError(c, response.CodeUnauthorized, "error.token_invalid", nil)
			return
		}
		subject = principal.Username
	}

	if err := h.Hub.ServeWS(c.Writer, c.Request, subject); err != nil {
		if errors.Is(err, notifier.ErrHubClosed) {
			shared.RequestLog(c).Infow("realtime_rejected_hub_closed", "subject", subject)
			return
		}
		// 升级失败时 upgrader 已写出 HTTP 错误
		shared.RequestLog(c).Warnw("realtime_upgrade_failed", "subject", subject, "error", err)
	}
}
