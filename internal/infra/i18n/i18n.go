// File: internal/infra/i18n/i18n.go
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator renders user-visible bot replies from the embedded locale
// catalogs. Lookup falls back locale -> default locale -> raw key, so a
// missing translation shows up in chat instead of an empty message.
type Translator struct {
	catalogs map[string]map[string]string
	fallback string
}

func New(defaultLocale string) (*Translator, error) {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	t := &Translator{catalogs: make(map[string]map[string]string), fallback: defaultLocale}

	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		raw, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		catalog := make(map[string]string)
		if err := yaml.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		t.catalogs[strings.TrimSuffix(name, ".yaml")] = catalog
	}
	if _, ok := t.catalogs[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q has no catalog", defaultLocale)
	}
	return t, nil
}

// T renders key for locale. args are placeholder/value pairs replacing
// {placeholder} occurrences in the template.
func (t *Translator) T(locale, key string, args ...string) string {
	msg, ok := t.lookup(locale, key)
	if !ok {
		return key
	}
	if len(args) < 2 {
		return msg
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// Locales lists the loaded catalog names.
func (t *Translator) Locales() []string {
	out := make([]string, 0, len(t.catalogs))
	for name := range t.catalogs {
		out = append(out, name)
	}
	return out
}

func (t *Translator) lookup(locale, key string) (string, bool) {
	if c, ok := t.catalogs[locale]; ok {
		if msg, ok := c[key]; ok {
			return msg, true
		}
	}
	if locale != t.fallback {
		if c, ok := t.catalogs[t.fallback]; ok {
			if msg, ok := c[key]; ok {
				return msg, true
			}
		}
	}
	return "", false
}
