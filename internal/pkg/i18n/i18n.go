// Package i18n selects the console language and registers the message
// catalogs used with easy-i18n.
package i18n

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gioco-play/easy-i18n/i18n"
	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"

	apperrors "nunu-cli/internal/pkg/errors"
)

var registerOnce sync.Once

// InitAuto registers the catalogs and picks the language from the system
// locale, then LANG and LC_ALL
func InitAuto() {
	registerOnce.Do(register)
	i18n.SetLang(Detect(locale.GetLocales, os.Getenv))
}

// Detect returns Simplified Chinese for a zh/CN locale and English otherwise
func Detect(locales func() ([]string, error), getenv func(string) string) language.Tag {
	if userLocales, err := locales(); err == nil && len(userLocales) > 0 {
		if isChinese(userLocales[0]) {
			return language.SimplifiedChinese
		}
	}
	for _, key := range []string{"LC_ALL", "LANG"} {
		if isChinese(getenv(key)) {
			return language.SimplifiedChinese
		}
	}
	return language.English
}

// SetLang applies an explicit --lang value. Empty keeps the current language.
func SetLang(lang string) error {
	registerOnce.Do(register)
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "":
		return nil
	case "en", "en-us", "english":
		i18n.SetLang(language.English)
	case "zh", "cn", "zh-cn", "zh_cn", "chinese":
		i18n.SetLang(language.SimplifiedChinese)
	default:
		return apperrors.NewConfigError(fmt.Sprintf("Unsupported language: '%s'. Use en or zh", lang), nil)
	}
	return nil
}

func isChinese(loc string) bool {
	loc = strings.ToLower(loc)
	return strings.HasPrefix(loc, "zh") || strings.HasSuffix(loc, "cn")
}
