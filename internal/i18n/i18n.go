package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/truckdock/internal/constants"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	loadOnce sync.Once
	catalogs map[string]map[string]string
	matcher  language.Matcher
	tags     []language.Tag
	locales  []string
)

func load() {
	catalogs = make(map[string]map[string]string, len(constants.SupportedLocales))
	tags = make([]language.Tag, 0, len(constants.SupportedLocales))
	locales = make([]string, 0, len(constants.SupportedLocales))
	for _, locale := range constants.SupportedLocales {
		raw, err := localeFS.ReadFile(path.Join("locales", locale+".json"))
		if err != nil {
			continue
		}
		messages := map[string]string{}
		if err := json.Unmarshal(raw, &messages); err != nil {
			continue
		}
		catalogs[locale] = messages
		tags = append(tags, language.MustParse(locale))
		locales = append(locales, locale)
	}
	matcher = language.NewMatcher(tags)
}

// NormalizeLocale 将任意语言标记归一为支持的语言，未知时回退 en-US
func NormalizeLocale(raw string) string {
	loadOnce.Do(load)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return constants.LocaleEnUS
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return constants.LocaleEnUS
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No || idx < 0 || idx >= len(locales) {
		return constants.LocaleEnUS
	}
	return locales[idx]
}

// ResolveLocale 解析请求语言：?lang= 优先，其次 Accept-Language
func ResolveLocale(c *gin.Context) string {
	loadOnce.Do(load)
	if c == nil {
		return constants.LocaleEnUS
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	header := strings.TrimSpace(c.GetHeader("Accept-Language"))
	if header == "" {
		return constants.LocaleEnUS
	}
	accepted, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(accepted) == 0 {
		return constants.LocaleEnUS
	}
	_, idx, confidence := matcher.Match(accepted...)
	if confidence == language.No || idx < 0 || idx >= len(locales) {
		return constants.LocaleEnUS
	}
	return locales[idx]
}

// T 获取翻译文本，缺失时依次回退 en-US 与 key 本身
func T(locale, key string) string {
	loadOnce.Do(load)
	if messages, ok := catalogs[locale]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	if messages, ok := catalogs[constants.LocaleEnUS]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	return key
}

// Sprintf 获取翻译文本并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	format := T(locale, key)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
