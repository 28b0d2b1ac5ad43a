// Package i18n renders user-facing messages for error and outcome codes.
package i18n

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
)

// BaseLocale is the canonical source locale for message catalogs.
const BaseLocale = "en-US"

// Catalog maps message codes to templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[string]string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]map[string]string{}
	// localeOrder preserves registration order; the base locale registers
	// first so the matcher falls back to it.
	localeOrder []language.Tag
	matcher     language.Matcher
)

func register(locale string, messages map[string]string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[locale] = messages
	localeOrder = append(localeOrder, language.MustParse(locale))
	matcher = language.NewMatcher(localeOrder)
}

// GetCatalog returns the catalog best matching the requested locale.
// Unknown or empty locales fall back to en-US.
func GetCatalog(locale string) *Catalog {
	registryMu.RLock()
	defer registryMu.RUnlock()

	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = BaseLocale
	}

	resolved := BaseLocale
	if matcher != nil {
		if tag, _, confidence := matcher.Match(language.Make(requested)); confidence > language.No {
			resolved = tag.String()
		}
	}
	messages, ok := registry[resolved]
	if !ok {
		messages = registry[BaseLocale]
		resolved = BaseLocale
	}
	return &Catalog{locale: resolved, messages: messages}
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the message code itself if no template is found.
func (c *Catalog) Format(code string, metadata map[string]string) string {
	if c == nil {
		return code
	}
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}

	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return code
	}
	return buf.String()
}
