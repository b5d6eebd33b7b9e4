// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page’s
// <head> element.  It is scoped to a single render call.  Handlers push
// tags into the builder, then the page layout emits each slice.
//
// Features
// --------
//   - SetTitle           – single <title> tag (last call wins).
//   - Meta, Link, Script – attribute maps rendered as escaped tags, with
//     deduplication.
//   - JSONLD             – structured data wrapped in
//     <script type="application/ld+json">…</script>.
package head

import (
	"encoding/json"
	"html/template"
	"sort"
	"strings"
)

// Builder is not safe for concurrent use; build one per request.
type Builder struct {
	title   string
	metas   []string
	links   []string
	scripts []string
	jsonLD  []string
	seen    map[string]struct{}
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// SetTitle overrides the page <title>.  The last caller wins.
func (b *Builder) SetTitle(t string) { b.title = t }

// Title returns a fully formed <title> tag or an empty string.
func (b *Builder) Title() template.HTML {
	if b.title == "" {
		return ""
	}
	return template.HTML("<title>" + template.HTMLEscapeString(b.title) + "</title>")
}

// ------------------------------------------------------------------
// Tag helpers with deduplication
// ------------------------------------------------------------------

// Meta adds <meta k="v" ...>.
func (b *Builder) Meta(attrs map[string]string) { b.add(&b.metas, tag("meta", attrs, false)) }

// Link adds <link k="v" ...>.
func (b *Builder) Link(attrs map[string]string) { b.add(&b.links, tag("link", attrs, false)) }

// Script adds <script k="v" ...></script>.  Use "src" and "defer".
func (b *Builder) Script(attrs map[string]string) { b.add(&b.scripts, tag("script", attrs, true)) }

// JSONLD marshals v as a structured-data block.
func (b *Builder) JSONLD(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// json.Marshal escapes <, >, and & so the block cannot close the tag.
	b.add(&b.jsonLD, `<script type="application/ld+json">`+string(raw)+`</script>`)
	return nil
}

func (b *Builder) add(tgt *[]string, rendered string) {
	if _, dup := b.seen[rendered]; dup {
		return
	}
	b.seen[rendered] = struct{}{}
	*tgt = append(*tgt, rendered)
}

// tag renders attrs in sorted order.  An empty value renders as a bare
// boolean attribute.
func tag(name string, attrs map[string]string, closing bool) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("<" + name)
	for _, k := range keys {
		sb.WriteString(" " + template.HTMLEscapeString(k))
		if v := attrs[k]; v != "" {
			sb.WriteString(`="` + template.HTMLEscapeString(v) + `"`)
		}
	}
	sb.WriteString(">")
	if closing {
		sb.WriteString("</" + name + ">")
	}
	return sb.String()
}

// ------------------------------------------------------------------
// Rendering helpers called from page templates
// ------------------------------------------------------------------

func (b *Builder) Metas() template.HTML   { return concat(b.metas) }
func (b *Builder) Links() template.HTML   { return concat(b.links) }
func (b *Builder) Scripts() template.HTML { return concat(b.scripts) }
func (b *Builder) JSON() template.HTML    { return concat(b.jsonLD) }

// concat joins pre-escaped tags without a separator.
func concat(sl []string) template.HTML {
	return template.HTML(strings.Join(sl, ""))
}
