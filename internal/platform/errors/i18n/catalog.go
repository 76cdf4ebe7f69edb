// Package i18n provides localized user-facing messages for error codes.
package i18n

import (
	"bytes"
	"strings"
	"text/template"

	"golang.org/x/text/language"
)

// Code is a machine-readable error code (duplicated from the errors
// package as a string to avoid an import cycle).
type Code = string

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

// BaseLocale is the fallback locale for error messages.
const BaseLocale = "en-US"

var catalogs = map[string]*Catalog{
	BaseLocale: {locale: BaseLocale, messages: enUS},
}

var matcher language.Matcher

func init() {
	tags := make([]language.Tag, 0, len(catalogs))
	tags = append(tags, language.MustParse(BaseLocale))
	for locale := range catalogs {
		if locale == BaseLocale {
			continue
		}
		tags = append(tags, language.MustParse(locale))
	}
	matcher = language.NewMatcher(tags)
}

// GetCatalog returns the catalog best matching an Accept-Language header.
// Unknown or empty preferences fall back to en-US.
func GetCatalog(acceptLanguage string) *Catalog {
	requested := strings.TrimSpace(acceptLanguage)
	if requested == "" {
		return catalogs[BaseLocale]
	}

	prefs, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(prefs) == 0 {
		return catalogs[BaseLocale]
	}

	tag, _, _ := matcher.Match(prefs...)
	base, _ := tag.Base()
	for locale, c := range catalogs {
		if strings.HasPrefix(locale, base.String()) {
			return c
		}
	}
	return catalogs[BaseLocale]
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}
