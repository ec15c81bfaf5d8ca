// Package speech holds the spoken response catalogue for intent handlers.
package speech

import (
	"embed"
	"encoding/json"
	"sort"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	appLog "intentcal/internal/log"
)

// Message keys. Every key must exist in locales/active.en.json.
const (
	KeyUnknownCalendar = "UnknownCalendar"
	KeyWhoIs           = "WhoIs"
	KeyIAm             = "IAm"
	KeyAgentSays       = "AgentSays"
	KeyRandomNumber    = "RandomNumber"
	KeyCurrentTime     = "CurrentTime"
)

// DefaultLanguage is used when a request names no language or one without
// a catalogue.
const DefaultLanguage = "en"

//go:embed locales/*.json
var localeFS embed.FS

// Catalog renders message keys in a requested language.
type Catalog struct {
	bundle    *i18n.Bundle
	languages []string
}

// New loads every embedded locale file named active.<lang>.json.
func New() (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}

	c := &Catalog{bundle: bundle}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			appLog.Debug("speech: skipping locale file", "file", name)
			continue
		}
		lang := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if lang == "" {
			appLog.Warn("speech: locale file without language", "file", name)
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, err
		}
		c.languages = append(c.languages, lang)
		appLog.Debug("speech: locale loaded", "lang", lang)
	}
	sort.Strings(c.languages)
	return c, nil
}

// Languages lists the loaded catalogue languages.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.languages...)
}

// Say renders key in lang with data as template values. Missing
// translations fall back to English; an unknown key is returned verbatim.
func (c *Catalog) Say(lang, key string, data map[string]any) string {
	if lang == "" {
		lang = DefaultLanguage
	}
	loc := i18n.NewLocalizer(c.bundle, lang, DefaultLanguage)
	msg, err := loc.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		appLog.Debug("speech: translation missing", "key", key, "lang", lang, "err", err)
		return key
	}
	return msg
}
