package script

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"

	"contentstudio/internal/domain"
)

//go:embed templates.yaml
var defaultCatalog []byte

var placeholderRegexp = regexp.MustCompile(`\{\{\s*\.(\w+)\s*\}\}`)

// Template is one named prompt layout.
type Template struct {
	Name   string   `yaml:"-"`
	Styles []string `yaml:"styles"`
	Prompt string   `yaml:"prompt"`

	tmpl *template.Template
}

// Catalog holds the prompt templates and the system instruction.
type Catalog struct {
	System    string               `yaml:"system"`
	Default   string               `yaml:"default"`
	Templates map[string]*Template `yaml:"templates"`

	byStyle map[string]*Template
}

// LoadCatalog reads a catalog from path, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and compiles a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}
	if len(c.Templates) == 0 {
		return nil, fmt.Errorf("prompt catalog has no templates")
	}
	c.byStyle = make(map[string]*Template)
	for name, t := range c.Templates {
		if t == nil || strings.TrimSpace(t.Prompt) == "" {
			return nil, fmt.Errorf("template %q has no prompt", name)
		}
		t.Name = name
		compiled, err := template.New(name).Option("missingkey=error").Parse(t.Prompt)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", name, err)
		}
		t.tmpl = compiled
		for _, style := range t.Styles {
			c.byStyle[strings.ToLower(style)] = t
		}
	}
	if c.Default == "" {
		c.Default = "basic"
	}
	if _, ok := c.Templates[c.Default]; !ok {
		return nil, fmt.Errorf("default template %q not defined", c.Default)
	}
	return &c, nil
}

// ForStyle returns the template mapped to style, or the default one.
func (c *Catalog) ForStyle(style string) *Template {
	if t, ok := c.byStyle[strings.ToLower(strings.TrimSpace(style))]; ok {
		return t
	}
	return c.Templates[c.Default]
}

// Render fills the template chosen for req.Style.
func (c *Catalog) Render(req Request) (string, error) {
	return c.ForStyle(req.Style).Render(req)
}

// RequiredVariables lists the placeholder names the template references.
func (t *Template) RequiredVariables() []string {
	seen := map[string]struct{}{}
	for _, m := range placeholderRegexp.FindAllStringSubmatch(t.Prompt, -1) {
		seen[m[1]] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Render executes the template. Empty required variables are rejected with
// domain.ErrInvalidPrompt; request text is inserted verbatim, braces included.
func (t *Template) Render(req Request) (string, error) {
	vars := templateVars(req)
	var missing []string
	for _, name := range t.RequiredVariables() {
		v, ok := vars[name]
		if !ok || strings.TrimSpace(fmt.Sprint(v)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: template %s missing %s", domain.ErrInvalidPrompt, t.Name, strings.Join(missing, ", "))
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidPrompt, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func templateVars(req Request) map[string]any {
	return map[string]any{
		"Title":          strings.TrimSpace(req.Title),
		"Description":    strings.TrimSpace(req.Description),
		"TargetAudience": strings.TrimSpace(req.TargetAudience),
		"Style":          strings.ToLower(strings.TrimSpace(req.Style)),
		"Tone":           coalesce(req.Tone, "friendly"),
		"Duration":       req.Duration,
		"SceneAmount":    clampScenes(req.SceneAmount),
		"Language":       languageName(req.Locale),
	}
}

func languageName(locale string) string {
	tag, err := language.Parse(coalesce(locale, "en"))
	if err != nil {
		return "English"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return "English"
}
