// Package sanitize rewrites extracted article markup into the small, safe
// HTML subset the note editor accepts.
//
// The work is split in two stages so images can be inlined in between:
// PreClean removes what must never be fetched or kept, Finish restructures
// the tree for the editor and applies the final element policy. Sanitize runs
// both back to back. Every pass assumes the invariants of the ones before it,
// and running the whole sequence twice gives the same output as running it once.
package sanitize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hyperifyio/notelink/internal/dom"
)

// Sanitize parses markup and runs PreClean followed by Finish.
func Sanitize(markup string, includeImages bool) (string, error) {
	doc, err := dom.ParseFragment(markup)
	if err != nil {
		return "", err
	}
	PreClean(doc, includeImages)
	return Finish(doc)
}

// PreClean strips disallowed and advertisement elements, drops images when
// they are not wanted, and normalises whitespace and line breaks.
func PreClean(doc *dom.Document, includeImages bool) {
	stripDisallowed(doc)
	if !includeImages {
		removeImages(doc)
	}
	normalizeWhitespace(doc)
	collapseBreaks(doc)
	pruneEmpty(doc, includeImages)
}

// Finish flattens unsupported containers, allow-lists attributes, linearises
// tables, resolves wrapper elements and returns the fragment as a string.
func Finish(doc *dom.Document) (string, error) {
	restructure(doc)
	out, err := render(doc)
	if err != nil {
		return "", err
	}
	return settle(out)
}

// maxSettlePasses bounds the re-parse loop in settle.
const maxSettlePasses = 5

func restructure(doc *dom.Document) {
	flattenUnsupported(doc)
	allowListAttributes(doc)
	linearizeTables(doc)
	resolveWrappers(doc)
	pruneEmptyBlocks(doc)
	unwrapRoot(doc)
	// Unwrapping and pruning can join text and break runs that were apart.
	mergeText(doc.Body().Get(0))
	normalizeWhitespace(doc)
	collapseBreaks(doc)
}

func render(doc *dom.Document) (string, error) {
	out, err := doc.BodyHTML()
	if err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}
	return editorPolicy().Sanitize(out), nil
}

// settle re-runs every pass over the rendered markup until it stops changing.
// The policy unwraps elements the tree passes never saw, and a fresh parse
// merges text nodes, so one pass is not always a fixed point. Images are
// kept because any left in the markup were wanted.
func settle(out string) (string, error) {
	for i := 0; i < maxSettlePasses; i++ {
		doc, err := dom.ParseFragment(out)
		if err != nil {
			return "", err
		}
		PreClean(doc, true)
		restructure(doc)
		next, err := render(doc)
		if err != nil {
			return "", err
		}
		if next == out {
			break
		}
		out = next
	}
	return out, nil
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// editorPolicy admits only the block and inline elements the editor renders.
// Elements outside the set are unwrapped with their text kept; script-like
// elements are dropped with their content.
func editorPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements(
			"p", "br", "h1", "h2", "h3", "h4", "h5", "h6",
			"strong", "b", "em", "i", "u", "s", "strike", "del", "ins", "mark",
			"sub", "sup", "small", "code", "pre", "blockquote", "q", "cite",
			"ul", "ol", "li", "hr", "a", "img", "video", "audio", "source", "iframe",
		)
		p.AllowNoAttrs().OnElements("a", "img", "video", "audio", "iframe", "source")

		// Not AllowStandardURLs: it adds rel="nofollow", outside the attribute set.
		p.RequireParseableURLs(true)
		p.AllowRelativeURLs(true)
		p.AllowURLSchemes("mailto", "http", "https")
		p.AllowURLSchemeWithCustomPolicy("data", isInlineImage)
		p.AllowAttrs("href").OnElements("a")
		p.AllowAttrs("target").Matching(regexp.MustCompile(`^_(blank|self|parent|top)$`)).OnElements("a")
		p.AllowAttrs("src").OnElements("img", "video", "audio", "source", "iframe")
		p.AllowAttrs("alt").OnElements("img")
		p.AllowAttrs("title").Globally()
		policy = p
	})
	return policy
}

// isInlineImage accepts base64 image data URIs of any image subtype; the
// stock bluemonday helper only knows four of them.
func isInlineImage(u *url.URL) bool {
	if u.RawQuery != "" || u.Fragment != "" {
		return false
	}
	mediatype, _, ok := strings.Cut(u.Opaque, ",")
	return ok && strings.HasPrefix(mediatype, "image/") && strings.HasSuffix(mediatype, ";base64")
}
