package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hyperifyio/notelink/internal/dom"
)

const disallowedSelector = "script, style, noscript, form, input, button, select, textarea"

// Substrings of class/id marking advertisement containers. Case-sensitive,
// matched against the raw attribute value.
var adMarkers = []string{"ad-", "ads", "advertisement"}

var (
	allowedAttrs = tagSet("href", "src", "alt", "title", "target")

	blockTags   = tagSet("p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "blockquote", "pre", "img", "figure")
	mediaTags   = tagSet("img", "video", "audio", "iframe", "figure")
	// Parents in which a text-only wrapper may become its own paragraph.
	flowParents = tagSet("body", "div", "blockquote", "dd")
	preTags     = tagSet("pre", "textarea")

	pruneMedia     = tagSet("img", "video", "audio", "iframe")
	pruneWithBreak = tagSet("img", "video", "audio", "iframe", "br")
	finalMedia     = tagSet("img", "video", "audio", "iframe", "figure", "br")
)

var (
	// JS \s plus the Unicode space separators, as browsers treat them.
	wsRun  = regexp.MustCompile(`[\s\p{Zs}\x{feff}\x{2028}\x{2029}]{3,}`)
	wsOnly = regexp.MustCompile(`^[\s\p{Zs}\x{feff}\x{2028}\x{2029}]*$`)
)

func stripDisallowed(doc *dom.Document) {
	doc.Body().Find(disallowedSelector).Remove()
	doc.Body().Find("[class], [id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		return hasAdMarker(class) || hasAdMarker(id)
	}).Remove()
}

func hasAdMarker(v string) bool {
	for _, m := range adMarkers {
		if strings.Contains(v, m) {
			return true
		}
	}
	return false
}

func removeImages(doc *dom.Document) {
	doc.Body().Find("img").Remove()
}

// normalizeWhitespace is deliberately light: single spaces and newlines stay
// as they are, only runs of three or more whitespace characters shrink.
func normalizeWhitespace(doc *dom.Document) {
	doc.TextNodes(func(n *html.Node) {
		if hasAncestor(n, preTags) {
			return
		}
		if wsOnly.MatchString(n.Data) {
			if len([]rune(n.Data)) > 2 {
				n.Data = " "
			}
			return
		}
		n.Data = wsRun.ReplaceAllString(n.Data, "  ")
	})
}

// collapseBreaks keeps at most two consecutive <br> elements in any run.
func collapseBreaks(doc *dom.Document) {
	var prev *html.Node
	run := 0
	var drop []*html.Node
	for _, br := range doc.Body().Find("br").Nodes {
		if prev != nil && consecutiveBreaks(prev, br) {
			run++
		} else {
			run = 1
		}
		if run >= 3 {
			drop = append(drop, br)
		}
		prev = br
	}
	for _, br := range drop {
		detach(br)
	}
}

// consecutiveBreaks reports whether b follows a as a sibling with only
// whitespace text or other breaks in between.
func consecutiveBreaks(a, b *html.Node) bool {
	for cur := a.NextSibling; cur != nil; cur = cur.NextSibling {
		if cur == b {
			return true
		}
		switch cur.Type {
		case html.TextNode:
			if strings.TrimSpace(cur.Data) != "" {
				return false
			}
		case html.ElementNode:
			if cur.DataAtom != atom.Br {
				return false
			}
		}
	}
	return false
}

func pruneEmpty(doc *dom.Document, includeImages bool) {
	media := pruneMedia
	if includeImages {
		media = pruneWithBreak
	}
	doc.Body().Find("p, div, span").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if !hasText(n) && !hasDescendant(n, media) && !hasElementChild(n) {
			detach(n)
		}
	})
}

func flattenUnsupported(doc *dom.Document) {
	for _, n := range doc.Body().Find("figure, aside, nav, footer, header, main, section, article").Nodes {
		rename(n, atom.Div)
	}
}

func allowListAttributes(doc *dom.Document) {
	for _, n := range doc.Body().Find("*").Nodes {
		if len(n.Attr) == 0 {
			continue
		}
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Namespace == "" && allowedAttrs[strings.ToLower(a.Key)] {
				kept = append(kept, a)
			}
		}
		n.Attr = kept
	}
}

// linearizeTables replaces each table with one paragraph per non-empty row.
func linearizeTables(doc *dom.Document) {
	body := doc.Body().Get(0)
	doc.Body().Find("table").Each(func(_ int, ts *goquery.Selection) {
		table := ts.Get(0)
		if !attached(table, body) {
			// nested table already consumed by its outer table
			return
		}
		ts.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if row.Closest("table").Get(0) != table {
				return
			}
			cells := row.ChildrenFiltered("td, th")
			texts := make([]string, 0, cells.Length())
			cells.Each(func(_ int, c *goquery.Selection) {
				if t := strings.TrimSpace(c.Text()); t != "" {
					texts = append(texts, t)
				}
			})
			if len(texts) == 0 {
				return
			}
			p := newElement(atom.P)
			text := newText(strings.Join(texts, " | "))
			if cells.Length() > 0 && cells.Length() == cells.Filter("th").Length() {
				strong := newElement(atom.Strong)
				strong.AppendChild(text)
				p.AppendChild(strong)
			} else {
				p.AppendChild(text)
			}
			table.Parent.InsertBefore(p, table)
		})
		detach(table)
	})
}

// resolveWrappers removes, unwraps or paragraph-izes div and span elements,
// innermost first.
func resolveWrappers(doc *dom.Document) {
	for _, n := range reverse(doc.Body().Find("div, span")) {
		if n.Parent == nil {
			continue
		}
		text := hasText(n)
		media := hasDescendant(n, mediaTags)
		switch {
		case !text && !media:
			detach(n)
		case media || hasDescendant(n, blockTags):
			unwrapWrapper(n)
		case canBecomeParagraph(n):
			rename(n, atom.P)
		default:
			unwrapWrapper(n)
		}
	}
}

// unwrapWrapper unwraps n. A div was a line box of its own, so a space keeps
// its text from running into neighbouring text.
func unwrapWrapper(n *html.Node) {
	if n.DataAtom == atom.Div {
		parent := n.Parent
		if needsGap(n.PrevSibling, false) {
			parent.InsertBefore(newText(" "), n)
		}
		if needsGap(n.NextSibling, true) {
			parent.InsertBefore(newText(" "), n.NextSibling)
		}
	}
	unwrap(n)
}

// needsGap reports whether sibling c would touch a div's text without any
// whitespace. leading selects c's first character instead of its last.
func needsGap(c *html.Node, leading bool) bool {
	if c == nil {
		return false
	}
	switch c.Type {
	case html.TextNode:
		r := []rune(c.Data)
		if len(r) == 0 {
			return false
		}
		edge := r[len(r)-1]
		if leading {
			edge = r[0]
		}
		return !unicode.IsSpace(edge)
	case html.ElementNode:
		return !blockTags[c.Data] && c.DataAtom != atom.Br && c.DataAtom != atom.Div
	}
	return false
}

// canBecomeParagraph is true when n sits in flow content on its own, so
// turning it into <p> neither nests paragraphs nor splits a line of text.
func canBecomeParagraph(n *html.Node) bool {
	if !isElement(n.Parent, flowParents) {
		return false
	}
	if n.DataAtom == atom.Div {
		return true
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			continue
		}
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return false
		}
		if c.Type == html.ElementNode && !blockTags[c.Data] {
			return false
		}
	}
	return true
}

func pruneEmptyBlocks(doc *dom.Document) {
	for _, n := range reverse(doc.Body().Find("p, h1, h2, h3, h4, h5, h6")) {
		if !hasText(n) && !hasDescendant(n, finalMedia) && !hasElementChild(n) {
			detach(n)
		}
	}
}

// unwrapRoot drops a lone wrapper div around the whole fragment.
func unwrapRoot(doc *dom.Document) {
	body := doc.Body().Get(0)
	var only *html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return
			}
		case html.ElementNode:
			if only != nil {
				return
			}
			only = c
		}
	}
	if only != nil && only.DataAtom == atom.Div {
		unwrap(only)
	}
}
