package router

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/truckdock/internal/authz"
	"github.com/truckdock/internal/config"
	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

var defaultCORSMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

var defaultCORSHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Accept-Encoding",
	"Accept-Language",
	"Authorization",
	"Cache-Control",
	"X-Requested-With",
	requestIDHeader,
}

// 导出与模板下载依赖 Content-Disposition 获取文件名
var corsExposeHeaders = strings.Join([]string{"Content-Disposition", requestIDHeader, "Retry-After"}, ", ")

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = defaultCORSMethods
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = defaultCORSHeaders
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowedOrigin := resolveAllowedOrigin(c.GetHeader("Origin"), allowedOrigins, cfg.AllowCredentials); allowedOrigin != "" {
			header.Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				header.Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", headersHeader)
		header.Set("Access-Control-Allow-Methods", methodsHeader)
		header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		if cfg.MaxAge > 0 {
			header.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 沿用调用方的 X-Request-ID，缺失或过长时重新生成
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件；健康检查降为 debug
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	sugar := base.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if principal, ok := shared.PrincipalFrom(c); ok {
			fields = append(fields, "user_id", principal.UserID, "role", principal.Role)
		}
		switch {
		case len(c.Errors) > 0:
			sugar.Errorw("request", append(fields, "errors", c.Errors.String())...)
		case c.Request.URL.Path == "/health":
			sugar.Debugw("request", fields...)
		default:
			sugar.Infow("request", fields...)
		}
	}
}

func getRequestID(c *gin.Context) string {
	requestID, _ := c.Get(requestIDKey)
	id, _ := requestID.(string)
	return id
}

func abortWithKey(c *gin.Context, code int, key string) {
	shared.RespondError(c, code, key, nil)
	c.Abort()
}

// JWTAuthMiddleware JWT 鉴权中间件，账号状态校验委托 AuthService（Redis 快照优先）
func JWTAuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			abortWithKey(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}
		header := c.GetHeader("Authorization")
		if strings.TrimSpace(header) == "" {
			abortWithKey(c, response.CodeUnauthorized, "error.token_missing")
			return
		}
		token := shared.BearerToken(header)
		if token == "" {
			abortWithKey(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}

		principal, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			key := "error.token_invalid"
			if errors.Is(err, service.ErrTokenRevoked) {
				key = "error.token_revoked"
			} else if !errors.Is(err, service.ErrTokenInvalid) {
				shared.RequestLog(c).Errorw("auth_authenticate_failed", "error", err)
			}
			abortWithKey(c, response.CodeUnauthorized, key)
			return
		}

		shared.SetPrincipal(c, principal)
		c.Next()
	}
}

// RBACMiddleware 按角色对路由模板执行 casbin 鉴权
func RBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			shared.RequestLog(c).Errorw("rbac_service_unavailable")
			abortWithKey(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}
		principal, ok := shared.PrincipalFrom(c)
		if !ok {
			abortWithKey(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}
		allowed, err := authzService.EnforceRole(principal.Role, resource, c.Request.Method)
		if err != nil || !allowed {
			log := shared.RequestLog(c).With(
				"role", principal.Role,
				"method", c.Request.Method,
				"resource", authz.NormalizeObject(resource),
			)
			if err != nil {
				log.Errorw("rbac_enforce_failed", "error", err)
			} else {
				log.Warnw("rbac_permission_denied")
			}
			abortWithKey(c, response.CodeForbidden, "error.forbidden")
			return
		}
		c.Next()
	}
}
