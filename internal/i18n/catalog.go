// Package i18n resolves interface strings per language.  Lookups fall back
// from the requested language to the default language and finally to the
// key itself, so callers never receive an empty label.
package i18n

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
)

// DefaultLanguage is the canonical language of the embedded catalog.
const DefaultLanguage = "English"

//go:embed translations.json
var embeddedTranslations []byte

// Resolver maps a language and a key to a display string.
type Resolver interface {
	Resolve(language, key string) string
}

// Catalog is an immutable set of translations keyed by language name.
type Catalog struct {
	defaultLanguage string
	entries         map[string]map[string]string
}

// NewCatalog builds a catalog from already decoded entries.  The default
// language must be present.
func NewCatalog(entries map[string]map[string]string, defaultLanguage string) (*Catalog, error) {
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}
	if _, ok := entries[defaultLanguage]; !ok {
		return nil, fmt.Errorf("default language %q missing from translations", defaultLanguage)
	}
	return &Catalog{defaultLanguage: defaultLanguage, entries: entries}, nil
}

// LoadEmbedded returns the catalog shipped with the binary.
func LoadEmbedded(defaultLanguage string) (*Catalog, error) {
	return parse(embeddedTranslations, defaultLanguage)
}

// LoadFile reads a JSON translations file of the form
// {"<language>": {"<key>": "<text>"}}.
func LoadFile(path, defaultLanguage string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read translations: %w", err)
	}
	return parse(data, defaultLanguage)
}

func parse(data []byte, defaultLanguage string) (*Catalog, error) {
	var entries map[string]map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode translations: %w", err)
	}
	return NewCatalog(entries, defaultLanguage)
}

// Resolve returns the translation of key for language.
func (c *Catalog) Resolve(language, key string) string {
	if v, ok := c.entries[language][key]; ok {
		return v
	}
	if v, ok := c.entries[c.defaultLanguage][key]; ok {
		log.Debug().Str("language", language).Str("key", key).Msg("translation missing, using default language")
		return v
	}
	log.Warn().Str("language", language).Str("key", key).Msg("translation not found")
	return key
}

// DefaultLanguage returns the fallback language of the catalog.
func (c *Catalog) DefaultLanguage() string {
	return c.defaultLanguage
}

// HasLanguage reports whether the catalog has entries for language.
func (c *Catalog) HasLanguage(language string) bool {
	_, ok := c.entries[language]
	return ok
}

// Languages lists the available languages, default language first.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.entries))
	for lang := range c.entries {
		if lang != c.defaultLanguage {
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return append([]string{c.defaultLanguage}, out...)
}
