package extract

import (
	"fmt"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/hyperifyio/notelink/internal/dom"
)

// Readability scores block elements by text and link density (Mozilla's
// Readability algorithm, via go-readability) and keeps the best subtree.
type Readability struct{}

func (Readability) Extract(doc *dom.Document) (Article, error) {
	if doc == nil || doc.Root() == nil {
		return Article{}, ErrExtractionFailed
	}
	if !hasArticleText(doc) {
		return Article{}, fmt.Errorf("%w: page holds only navigation or boilerplate", ErrExtractionFailed)
	}
	a, err := readability.FromDocument(doc.Root(), doc.Base())
	if err != nil {
		return Article{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if strings.TrimSpace(a.Content) == "" || strings.TrimSpace(a.TextContent) == "" {
		return Article{}, ErrExtractionFailed
	}
	return Article{
		Title:       strings.TrimSpace(a.Title),
		Content:     a.Content,
		TextContent: a.TextContent,
		Excerpt:     strings.TrimSpace(a.Excerpt),
		Byline:      strings.TrimSpace(a.Byline),
		SiteName:    strings.TrimSpace(a.SiteName),
		Language:    a.Language,
		Length:      a.Length,
	}, nil
}

// hasArticleText reports whether any text survives outside obvious page
// chrome. Readability happily promotes a lone nav to "content", so this gate
// runs first.
func hasArticleText(doc *dom.Document) bool {
	for _, b := range doc.Body().Nodes {
		if textOutsideChrome(b) {
			return true
		}
	}
	return false
}

func textOutsideChrome(n *html.Node) bool {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "nav", "footer", "header", "aside", "script", "style", "noscript", "form", "template":
			return false
		}
	}
	if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if textOutsideChrome(c) {
			return true
		}
	}
	return false
}
