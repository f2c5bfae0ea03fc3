package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleZH = "zh-CN"
	LocaleTW = "zh-TW"
	LocaleEN = "en-US"
)

// DefaultLocale 未识别语言时的回退
const DefaultLocale = LocaleZH

// ContextKey 中间件写入的语言键
const ContextKey = "locale"

// ResolveLocale 解析请求语言：上下文 > ?lang= > Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if value, ok := c.Get(ContextKey); ok {
		if locale, ok := value.(string); ok && locale != "" {
			return NormalizeLocale(locale)
		}
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	if c.Request != nil {
		header := c.GetHeader("Accept-Language")
		if header != "" {
			first := strings.Split(header, ",")[0]
			first = strings.Split(first, ";")[0]
			return NormalizeLocale(first)
		}
	}
	return DefaultLocale
}

// NormalizeLocale 将语言标识归一化到支持的集合
func NormalizeLocale(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "_", "-")))
	switch {
	case lower == "":
		return DefaultLocale
	case lower == "zh-tw" || lower == "zh-hk" || lower == "zh-hant":
		return LocaleTW
	case strings.HasPrefix(lower, "zh"):
		return LocaleZH
	case strings.HasPrefix(lower, "en"):
		return LocaleEN
	default:
		return DefaultLocale
	}
}

// T 查找翻译，缺失时依次回退到默认语言与键本身
func T(locale, key string) string {
	if table, ok := messages[NormalizeLocale(locale)]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译后按参数格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
