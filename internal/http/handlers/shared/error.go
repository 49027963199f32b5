package shared

import (
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/i18n"
	"github.com/truckdock/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 当前请求的日志实例，附带 request_id 与已认证用户
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	var kv []interface{}
	if id := c.GetString("request_id"); id != "" {
		kv = append(kv, "request_id", id)
	}
	if principal, ok := PrincipalFrom(c); ok {
		kv = append(kv, "user_id", principal.UserID)
	}
	return logger.SW(kv...)
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	respond(c, response.WrapError(code, key, i18n.T(i18n.ResolveLocale(c), key), err))
}

// RespondErrorf 返回带格式化参数的国际化错误响应。
func RespondErrorf(c *gin.Context, code int, key string, err error, args ...interface{}) {
	respond(c, response.WrapError(code, key, i18n.Sprintf(i18n.ResolveLocale(c), key, args...), err))
}

func respond(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error", appErr.LogFields()...)
	}
	appErr.Write(c)
}
