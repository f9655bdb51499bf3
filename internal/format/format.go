// Package format renders article text as editor-ready HTML without going
// through the sanitizer.
package format

import (
	"html"
	"regexp"
	"strings"
)

// Placeholder is returned by Plain when the text holds no paragraph.
const Placeholder = "<p>No content available</p>"

// A blank line, optionally holding spaces or tabs, separates paragraphs.
var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Plain splits text into paragraphs at blank lines and wraps each escaped
// paragraph in <p>.
func Plain(text string) string {
	var b strings.Builder
	for _, part := range paragraphBreak.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(part))
		b.WriteString("</p>")
	}
	if b.Len() == 0 {
		return Placeholder
	}
	return b.String()
}

// Summary escapes model output for insertion as editor text.
func Summary(summary string) string {
	return html.EscapeString(summary)
}
