// internal/head/builder_test.go
package head

import (
	"strings"
	"testing"
)

func TestBuilder(t *testing.T) {
	b := New()
	b.SetTitle("Contact <me>")
	b.Meta(map[string]string{"name": "description", "content": `Say "hi"`})
	b.Meta(map[string]string{"name": "description", "content": `Say "hi"`}) // dup
	b.Script(map[string]string{"src": "/static/contact.js", "defer": ""})
	if err := b.JSONLD(map[string]string{"@type": "ContactPage", "name": "</script>"}); err != nil {
		t.Fatal(err)
	}

	if got := string(b.Title()); got != "<title>Contact &lt;me&gt;</title>" {
		t.Errorf("Title = %s", got)
	}
	if got := string(b.Metas()); got != `<meta content="Say &#34;hi&#34;" name="description">` {
		t.Errorf("Metas = %s", got)
	}
	if got := string(b.Scripts()); got != `<script defer src="/static/contact.js"></script>` {
		t.Errorf("Scripts = %s", got)
	}
	if js := string(b.JSON()); strings.Count(js, "</script>") != 1 {
		t.Errorf("JSON-LD not escaped: %s", js)
	}
	if New().Title() != "" {
		t.Error("empty title rendered")
	}
}
