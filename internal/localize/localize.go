// Package localize holds the read-only explanation and solution tables
// attached to diagnostics by the presentation layer. Tables are loaded once
// at start-up and never modified.
package localize

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// Entry is the human readable text for one diagnostic.
type Entry struct {
	Explanation string `yaml:"explanation" json:"explanation"`
	Solution    string `yaml:"solution" json:"solution"`
}

type Catalog struct {
	Messages   map[string]string         `yaml:"messages"`
	Kinds      map[diagnostic.Kind]Entry `yaml:"kinds"`
	Categories map[string]Entry          `yaml:"categories"`
}

type Localizer struct {
	catalogs map[string]*Catalog
	tags     []language.Tag
	matcher  language.Matcher
}

// New loads the embedded catalogs. defaultLocale is used when a request's
// locale matches none of them.
func New(defaultLocale string) (*Localizer, error) {
	return Load(catalogFS, "catalog", defaultLocale)
}

// Load reads every <locale>.yaml file in dir of fsys.
func Load(fsys fs.FS, dir, defaultLocale string) (*Localizer, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	l := &Localizer{catalogs: make(map[string]*Catalog)}
	var others []language.Tag
	var def *language.Tag
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		var c Catalog
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", f, err)
		}
		name := strings.TrimSuffix(path.Base(f), ".yaml")
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", f, err)
		}
		l.catalogs[baseOf(tag)] = &c
		if name == defaultLocale {
			def = &tag
		} else {
			others = append(others, tag)
		}
	}
	if def == nil {
		return nil, fmt.Errorf("no catalog for default locale %q", defaultLocale)
	}
	// the matcher falls back to its first tag
	l.tags = append([]language.Tag{*def}, others...)
	l.matcher = language.NewMatcher(l.tags)
	return l, nil
}

// Resolve maps a requested locale (a tag, a tag list or an Accept-Language
// value) to a supported one.
func (l *Localizer) Resolve(locale string) string {
	tag, _ := language.MatchStrings(l.matcher, strings.ReplaceAll(locale, "_", "-"))
	return baseOf(tag)
}

// Locales lists the supported locales, default first.
func (l *Localizer) Locales() []string {
	out := make([]string, 0, len(l.tags))
	for _, t := range l.tags {
		out = append(out, baseOf(t))
	}
	return out
}

// Explain returns the text for d: a category specific entry when one
// exists, else the entry for its kind.
func (l *Localizer) Explain(locale string, d diagnostic.Diagnostic) Entry {
	c := l.catalogs[l.Resolve(locale)]
	if d.Category != "" {
		if e, ok := c.Categories[d.Category]; ok {
			return e
		}
		if i := strings.LastIndex(d.Category, "."); i >= 0 {
			if e, ok := c.Categories[d.Category[i+1:]]; ok {
				return e
			}
		}
	}
	return c.Kinds[d.Kind]
}

// Message returns a fixed presentation string, or key itself if missing.
func (l *Localizer) Message(locale, key string) string {
	if m, ok := l.catalogs[l.Resolve(locale)].Messages[key]; ok {
		return m
	}
	return key
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
