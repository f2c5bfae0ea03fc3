package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prepvio/prepvio-api/internal/config"
	"github.com/prepvio/prepvio-api/internal/constants"
	"github.com/prepvio/prepvio-api/internal/http/response"
	"github.com/prepvio/prepvio-api/internal/i18n"
	"github.com/prepvio/prepvio-api/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则，超限后在 BlockSeconds 内直接拒绝
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

func newRateLimitRule(prefix string, cfg config.RateLimitConfig) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		BlockSeconds:  cfg.BlockSeconds,
		MessageKey:    "error.too_many_requests",
	}
}

// KEYS[1] 计数 key，KEYS[2] 封禁 key
// ARGV[1] 窗口秒数，ARGV[2] 上限，ARGV[3] 封禁秒数
// 返回 {是否拒绝, 需等待秒数}
var rateLimitScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[2])
if blocked > 0 then
	return {1, blocked}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
if current <= tonumber(ARGV[2]) then
	return {0, 0}
end
local block = tonumber(ARGV[3])
if block > 0 then
	redis.call("SET", KEYS[2], "1", "EX", block)
	return {1, block}
end
return {1, redis.call("TTL", KEYS[1])}
`)

// RateLimitMiddleware Redis 频率限制中间件，未配置 Redis 时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
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
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key, key + ":block"},
			rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds).Result()
		rejected, waitSeconds, ok := parseRateLimitResult(result)
		if err != nil || !ok {
			logger.Warnw("rate_limit_script_failed", "prefix", rule.Prefix, "error", err)
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		if rejected {
			if waitSeconds < 1 {
				waitSeconds = rule.WindowSeconds
			}
			msgKey := strings.TrimSpace(rule.MessageKey)
			if msgKey == "" {
				msgKey = "error.too_many_requests"
			}
			logger.Debugw("rate_limit_rejected", "key", key, "wait_seconds", waitSeconds)
			response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds))
			c.Abort()
			return
		}

		c.Next()
	}
}

func parseRateLimitResult(result interface{}) (bool, int, bool) {
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, false
	}
	flag, ok := toInt64(values[0])
	if !ok {
		return false, 0, false
	}
	wait, _ := toInt64(values[1])
	return flag == 1, int(wait), true
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUserAndJSONField 使用登录用户 + JSON 字段作为限流 key，未登录时退化为 IP
func KeyByUserAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		subject := c.ClientIP()
		if value, ok := c.Get(constants.ContextKeyUserID); ok {
			if id, ok := value.(uint); ok && id > 0 {
				subject = fmt.Sprintf("u%d", id)
			}
		}
		value := strings.ToUpper(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return subject
		}
		return fmt.Sprintf("%s|%s", subject, value)
	}
}

// readJSONField 读取请求体中的字符串字段，读取后恢复请求体
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if text, ok := payload[field].(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
