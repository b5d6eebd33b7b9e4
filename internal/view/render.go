// internal/view/render.go
//
// Page template engine: template lookup, override chain, func-map
// injection, and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – write rendered HTML to an io.Writer.
//   - RenderToString – return template.HTML.
//
// Lookup precedence (first hit wins):
//  1. <overrideDir>/<comp>/<name>.html   (operator customisation on disk)
//  2. the component's embedded fs.FS     (shipped default)
//
// All templates in the same directory are parsed as one set so sub-templates
// ({{ template "row" . }}) work out-of-the-box.
//
// execName() chooses the template to execute: "<name>.html" when the set
// has that file, else the root template "<name>" defined via {{ define }}.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yanizio/folio/internal/cache"
)

// Engine renders one component's templates.  Safe for concurrent use.
type Engine struct {
	comp        string
	embedded    fs.FS
	overrideDir string
	sets        *cache.LRU[string, *template.Template]
	funcs       template.FuncMap
}

// New returns an Engine for comp.  embedded holds the default *.html files
// at its root.  overrideDir may be "" to disable on-disk overrides.
func New(comp string, embedded fs.FS, overrideDir string) *Engine {
	return &Engine{
		comp:        comp,
		embedded:    embedded,
		overrideDir: overrideDir,
		sets:        cache.New[string, *template.Template](64),
		funcs:       template.FuncMap{"dict": dict},
	}
}

// Render executes the template set for name and streams it to w.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	t, err := e.load(name)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(w, execName(t, name), data)
}

// RenderToString mirrors Render but returns the HTML.
func (e *Engine) RenderToString(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.Render(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Reset drops parsed sets so edited override files are picked up.
func (e *Engine) Reset() { e.sets.Purge() }

//
// internal: load
//

// load finds and (if necessary) parses the template set for name.
func (e *Engine) load(name string) (*template.Template, error) {
	if t, ok := e.sets.Get(name); ok {
		return t, nil
	}

	src, pattern := e.embedded, "*.html"
	if e.overrideDir != "" {
		dir := filepath.Join(e.overrideDir, e.comp)
		if _, err := os.Stat(filepath.Join(dir, name+".html")); err == nil {
			src = os.DirFS(dir)
		}
	}
	if _, err := fs.Stat(src, name+".html"); err != nil {
		// A set may still define the root template by name.
		if matches, _ := fs.Glob(src, pattern); len(matches) == 0 {
			return nil, fs.ErrNotExist
		}
	}

	t, err := template.New(name).Funcs(e.funcs).ParseFS(src, pattern)
	if err != nil {
		return nil, err
	}
	e.sets.Add(name, t)
	return t, nil
}

//
// helpers
//

// execName picks the template name to execute.
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name + ".html"); tmpl != nil {
		return name + ".html"
	}
	return name
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
