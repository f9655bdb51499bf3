package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Mode selects how extracted content is rendered.
type Mode string

const (
	ModeFormatted Mode = "formatted"
	ModeSummary   Mode = "summary"
	ModePlain     Mode = "plain"
)

// Modes lists the accepted modes in display order.
var Modes = []Mode{ModeFormatted, ModeSummary, ModePlain}

var (
	// ErrInvalidRequest is returned before any network call when the URL or
	// mode is unusable.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownMode is returned if rendering reaches a mode it does not handle.
	ErrUnknownMode = errors.New("unknown mode")
)

func (m Mode) valid() bool {
	for _, v := range Modes {
		if m == v {
			return true
		}
	}
	return false
}

// LinkRequest is one processLink call.
type LinkRequest struct {
	URL           string
	Mode          Mode
	IncludeImages bool
}

// Validate requires an absolute http(s) URL and a known mode.
func (r LinkRequest) Validate() error {
	raw := strings.TrimSpace(r.URL)
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: url does not parse: %v", ErrInvalidRequest, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be absolute http or https, got %q", ErrInvalidRequest, raw)
	}
	if !r.Mode.valid() {
		return fmt.Errorf("%w: mode must be one of formatted, summary, plain, got %q", ErrInvalidRequest, string(r.Mode))
	}
	return nil
}

// Metadata describes the source article alongside the rendered note.
type Metadata struct {
	URL           string  `json:"url"`
	Mode          Mode    `json:"mode"`
	IncludeImages bool    `json:"includeImages"`
	OriginalTitle string  `json:"originalTitle"`
	Excerpt       string  `json:"excerpt"`
	Length        int     `json:"length"`
	SiteName      *string `json:"siteName"`
}

// LinkResult is the rendered note. HTML is safe for the note editor.
type LinkResult struct {
	Title    string   `json:"title"`
	HTML     string   `json:"html"`
	Metadata Metadata `json:"metadata"`
}
