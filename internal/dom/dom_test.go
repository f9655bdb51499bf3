package dom

import (
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestLoad_ToleratesMalformedMarkup(t *testing.T) {
	base, _ := url.Parse("https://example.com/a/b.html")
	doc, err := Load([]byte(`<html><body><div><p>unclosed <b>bold<p>next</div>`), "text/html", base)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n := doc.Find("p").Length(); n != 2 {
		t.Fatalf("expected 2 paragraphs after recovery, got %d", n)
	}
	if doc.Base().String() != base.String() {
		t.Fatalf("base not kept")
	}
}

func TestLoad_DecodesDeclaredCharset(t *testing.T) {
	// "café" in ISO-8859-1
	body := []byte("<html><body><p>caf\xe9</p></body></html>")
	doc, err := Load(body, "text/html; charset=iso-8859-1", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := doc.Find("p").Text(); got != "café" {
		t.Fatalf("expected decoded text, got %q", got)
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/post/")
	doc, _ := Load([]byte("<p>x</p>"), "", base)
	cases := map[string]string{
		"img/a.png":              "https://example.com/blog/post/img/a.png",
		"/static/b.png":          "https://example.com/static/b.png",
		"https://cdn.test/c.png": "https://cdn.test/c.png",
		"//cdn.test/d.png":       "https://cdn.test/d.png",
	}
	for in, want := range cases {
		if got := doc.ResolveURL(in); got != want {
			t.Errorf("ResolveURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextNodesAndFragment(t *testing.T) {
	doc, err := ParseFragment("<p>one <em>two</em></p><p>three</p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var parts []string
	doc.TextNodes(func(n *html.Node) { parts = append(parts, n.Data) })
	if got := strings.Join(parts, "|"); got != "one |two|three" {
		t.Fatalf("unexpected text walk %q", got)
	}
	out, err := doc.BodyHTML()
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if out != "<p>one <em>two</em></p><p>three</p>" {
		t.Fatalf("unexpected body html %q", out)
	}
}

func TestParseFragment_TableClosesParagraph(t *testing.T) {
	doc, err := ParseFragment(`<p>one<table><tr><td>c</td></tr></table>two</p>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n := doc.Find("p table").Length(); n != 0 {
		t.Fatalf("table must not stay inside the paragraph")
	}
	if got := doc.Body().Children().First().Text(); got != "one" {
		t.Fatalf("expected the paragraph to end before the table, got %q", got)
	}
}
