package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func tagSet(tags ...string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		m[t] = true
	}
	return m
}

func isElement(n *html.Node, tags map[string]bool) bool {
	return n != nil && n.Type == html.ElementNode && tags[n.Data]
}

// textContent concatenates every descendant text node, like DOM textContent.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			return
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return b.String()
}

func hasText(n *html.Node) bool {
	return strings.TrimSpace(textContent(n)) != ""
}

func hasElementChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}

func hasDescendant(n *html.Node, tags map[string]bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, tags) || hasDescendant(c, tags) {
			return true
		}
	}
	return false
}

func hasAncestor(n *html.Node, tags map[string]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, tags) {
			return true
		}
	}
	return false
}

// attached reports whether n is still reachable from root.
func attached(n, root *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// unwrap replaces n with its children.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for n.FirstChild != nil {
		c := n.FirstChild
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

// mergeText joins adjacent text siblings under n, as a re-parse would.
func mergeText(n *html.Node) {
	if n == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode && next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			n.RemoveChild(next)
			continue
		}
		mergeText(c)
		c = next
	}
}

// rename turns n into a bare element of another tag, keeping its children.
func rename(n *html.Node, a atom.Atom) {
	n.Data = a.String()
	n.DataAtom = a
	n.Attr = nil
}

func newElement(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

func newText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// reverse returns the selection's nodes in reverse document order, so
// descendants come before their ancestors.
func reverse(sel *goquery.Selection) []*html.Node {
	out := make([]*html.Node, len(sel.Nodes))
	for i, n := range sel.Nodes {
		out[len(sel.Nodes)-1-i] = n
	}
	return out
}
