// Package messages holds the localized player and operator messages.
package messages

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Message ids.
const (
	SleepSkipped     = "sleep.skipped"
	SleepProgress    = "sleep.progress"
	CommandPaused    = "command.paused"
	CommandResumed   = "command.resumed"
	CommandSkipped   = "command.skipped"
	CommandSpeed     = "command.speed"
	CommandZoneSpeed = "command.zone_speed"
	CommandReloaded  = "command.reloaded"
	ErrNotManaged    = "error.not_managed"
	ErrInvalid       = "error.invalid"
	ErrForbidden     = "error.forbidden"
	ErrUnauthorized  = "error.unauthorized"
	ErrThrottled     = "error.throttled"
	ErrInternal      = "error.internal"
)

// Catalog translates message ids using the embedded locale files.
type Catalog struct {
	bundle    *i18n.Bundle
	fallback  string
	languages []string
	logger    *slog.Logger
}

// NewCatalog loads every embedded locales/active.<lang>.json file.
// defaultLang is used when a caller's preferences match no loaded language.
func NewCatalog(defaultLang string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		code := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if code == "" {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, fmt.Errorf("load locale %s: %w", name, err)
		}
		langs = append(langs, code)
	}

	if defaultLang == "" {
		defaultLang = language.English.String()
	}
	if _, err := language.Parse(defaultLang); err != nil {
		return nil, fmt.Errorf("default language %q: %w", defaultLang, err)
	}

	return &Catalog{bundle: bundle, fallback: defaultLang, languages: langs, logger: logger}, nil
}

// Languages returns the language codes that have a locale file.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.languages...)
}

// Localize renders message id with data for the first matching preference.
// prefs accepts language tags or raw Accept-Language header values. The id
// itself is returned when no translation exists.
func (c *Catalog) Localize(id string, data map[string]any, prefs ...string) string {
	langs := append(append([]string(nil), prefs...), c.fallback)
	loc := i18n.NewLocalizer(c.bundle, langs...)
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		c.logger.Debug("translation missing", "key", id, "error", err)
		return id
	}
	return msg
}
