package shared

import (
	"strings"

	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/service"

	"github.com/gin-gonic/gin"
)

// PrincipalContextKey 鉴权中间件写入的身份键。
const PrincipalContextKey = "principal"

// SetPrincipal 写入已认证身份。
func SetPrincipal(c *gin.Context, principal *service.Principal) {
	c.Set(PrincipalContextKey, principal)
	c.Set("user_id", principal.UserID)
	c.Set("username", principal.Username)
	c.Set("role", principal.Role)
}

// PrincipalFrom 读取已认证身份，不写响应。
func PrincipalFrom(c *gin.Context) (*service.Principal, bool) {
	value, exists := c.Get(PrincipalContextKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*service.Principal)
	if !ok || principal == nil {
		return nil, false
	}
	return principal, true
}

// GetPrincipal 读取已认证身份并统一处理错误响应。
func GetPrincipal(c *gin.Context) (*service.Principal, bool) {
	principal, ok := PrincipalFrom(c)
	if !ok {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return nil, false
	}
	return principal, true
}

// BearerToken 解析 Authorization 头，格式不符时返回空串。
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
