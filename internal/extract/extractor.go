package extract

import (
	"errors"

	"github.com/hyperifyio/notelink/internal/dom"
)

// ErrExtractionFailed means no article-like content could be located. It is
// terminal for a request; there is no second strategy.
var ErrExtractionFailed = errors.New("could not parse article content")

// Article is the main content isolated from a page.
type Article struct {
	Title       string
	Content     string // HTML fragment
	TextContent string
	Excerpt     string
	Byline      string
	SiteName    string
	Language    string
	Length      int
}

// Extractor defines a minimal interface for content extraction strategies.
// Implementations can swap readability tactics without changing callers.
type Extractor interface {
	Extract(doc *dom.Document) (Article, error)
}
