package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string // 超限提示，参数为剩余等待秒数
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// 返回 {当前计数, 剩余 TTL}
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

type rateDecision struct {
	allowed   bool
	remaining int
	retryIn   int
}

type windowLimiter struct {
	client *redis.Client
	rule   RateLimitRule
}

func (l windowLimiter) hit(ctx context.Context, key string) (rateDecision, error) {
	if l.rule.Prefix != "" {
		key = l.rule.Prefix + ":" + key
	}
	values, err := rateLimitScript.Run(ctx, l.client, []string{key}, l.rule.WindowSeconds).Int64Slice()
	if err != nil {
		return rateDecision{}, err
	}
	if len(values) < 2 {
		return rateDecision{}, fmt.Errorf("unexpected rate limit reply: %v", values)
	}
	count, ttl := values[0], values[1]
	decision := rateDecision{
		allowed:   count <= int64(l.rule.MaxRequests),
		remaining: l.rule.MaxRequests - int(count),
	}
	if decision.remaining < 0 {
		decision.remaining = 0
	}
	if !decision.allowed {
		decision.retryIn = int(ttl)
		if decision.retryIn < 1 {
			decision.retryIn = l.rule.WindowSeconds
		}
	}
	return decision, nil
}

// RateLimitMiddleware 基于 Redis 的固定窗口限流；未配置 Redis 或 Redis 异常时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	limiter := windowLimiter{client: client, rule: rule}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}

		decision, err := limiter.hit(c.Request.Context(), key)
		if err != nil {
			shared.RequestLog(c).Warnw("rate_limit_unavailable", "prefix", rule.Prefix, "error", err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.remaining))
		if !decision.allowed {
			msgKey := strings.TrimSpace(rule.MessageKey)
			if msgKey == "" {
				msgKey = "error.too_many_requests"
			}
			c.Header("Retry-After", strconv.Itoa(decision.retryIn))
			response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, decision.retryIn))
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndField 使用 IP + 请求字段（JSON 或表单）作为限流 key，字段值忽略大小写
func KeyByIPAndField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		raw := ""
		if strings.Contains(c.ContentType(), "json") {
			raw = peekJSONField(c, field)
		} else if c.Request != nil {
			raw = c.PostForm(field)
		}
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// peekJSONField 读取 JSON 字段后还原请求体，供后续绑定
func peekJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	var payload map[string]interface{}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	text, _ := payload[field].(string)
	return text
}
