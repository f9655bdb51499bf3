// Package dom loads HTML into a mutable tree and offers the small set of
// queries the pipeline needs on top of goquery.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Document is a parsed page or fragment plus the base URL used to resolve
// relative references.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// Load parses page bytes. The charset is taken from contentType when it names
// one, otherwise sniffed from the markup. Malformed HTML never fails: the
// HTML5 parser recovers the way browsers do.
func Load(body []byte, contentType string, base *url.URL) (*Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		// Unknown label; fall back to the raw bytes as UTF-8.
		r = bytes.NewReader(body)
	}
	return parse(r, base)
}

// ParseFragment loads a markup fragment into a fresh document whose body
// holds the fragment. The parser runs in no-quirks mode, so a table closes an
// open paragraph as it does in a standards-mode page.
func ParseFragment(markup string) (*Document, error) {
	return parse(strings.NewReader("<!DOCTYPE html>"+markup), nil)
}

func parse(r io.Reader, base *url.URL) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if base != nil {
		doc.Url = base
	}
	return &Document{doc: doc, base: base}, nil
}

// Base returns the base URL, nil for fragments.
func (d *Document) Base() *url.URL { return d.base }

// Root returns the document node.
func (d *Document) Root() *html.Node {
	if len(d.doc.Nodes) == 0 {
		return nil
	}
	return d.doc.Nodes[0]
}

// Find runs a CSS selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Body returns the body element selection. The parser always synthesises one.
func (d *Document) Body() *goquery.Selection {
	return d.doc.Find("body").First()
}

// BodyHTML returns the inner markup of body.
func (d *Document) BodyHTML() (string, error) {
	return d.Body().Html()
}

// TextNodes calls fn for each text node under body in document order. fn may
// change n.Data but must not detach nodes.
func (d *Document) TextNodes(fn func(n *html.Node)) {
	for _, b := range d.Body().Nodes {
		WalkText(b, fn)
	}
}

// WalkText visits text nodes under n in document order.
func WalkText(n *html.Node, fn func(n *html.Node)) {
	if n.Type == html.TextNode {
		fn(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		WalkText(c, fn)
	}
}

// ResolveURL resolves ref against the base URL. Without a base, or when ref
// does not parse, ref is returned unchanged.
func (d *Document) ResolveURL(ref string) string {
	return Resolve(d.base, ref)
}

// Resolve resolves ref against base.
func Resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil || ref == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
