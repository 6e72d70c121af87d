// Package i18n loads the embedded message catalogs. The catalog is built once
// at startup and handed to its consumers; there is no global translator.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultLanguage = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog holds flattened dot-notation keys per language.
type Catalog struct {
	messages map[string]map[string]string
}

// Load parses every embedded locale file.
func Load() (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	c := &Catalog{messages: make(map[string]map[string]string, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		raw, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		c.messages[strings.TrimSuffix(name, ".yaml")] = flat
	}
	if _, ok := c.messages[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("locale %q is missing", DefaultLanguage)
	}
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(full, v, out)
		case string:
			out[full] = v
		default:
			out[full] = fmt.Sprint(v)
		}
	}
}

// Languages returns the loaded language codes, sorted.
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Supported normalises lang to a loaded language, falling back to English.
func (c *Catalog) Supported(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := c.messages[lang]; ok {
		return lang
	}
	return DefaultLanguage
}

// Translate resolves key in lang, then English, then returns the key itself.
func (c *Catalog) Translate(lang, key string) string {
	if msg, ok := c.messages[c.Supported(lang)][key]; ok {
		return msg
	}
	if msg, ok := c.messages[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// Format translates key and substitutes {name} variables.
func (c *Catalog) Format(lang, key string, vars map[string]string) string {
	msg := c.Translate(lang, key)
	if len(vars) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// For binds the catalog to one language.
func (c *Catalog) For(lang string) Translator {
	return Translator{catalog: c, lang: c.Supported(lang)}
}

// Translator is a catalog bound to a language.
type Translator struct {
	catalog *Catalog
	lang    string
}

func (t Translator) Lang() string { return t.lang }

func (t Translator) T(key string) string {
	if t.catalog == nil {
		return key
	}
	return t.catalog.Translate(t.lang, key)
}

func (t Translator) F(key string, vars map[string]string) string {
	if t.catalog == nil {
		return key
	}
	return t.catalog.Format(t.lang, key, vars)
}

// ParseAcceptLanguage returns the primary subtag of the first language range.
func ParseAcceptLanguage(header string) string {
	first := strings.TrimSpace(strings.Split(header, ",")[0])
	first = strings.TrimSpace(strings.Split(first, ";")[0])
	first = strings.Split(first, "-")[0]
	if first == "" || first == "*" {
		return DefaultLanguage
	}
	return strings.ToLower(first)
}
