// Package inline replaces image references in a document with base64 data
// URIs so that the resulting note carries no external image links.
package inline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/notelink/internal/dom"
	"github.com/hyperifyio/notelink/internal/fetch"
)

// DefaultConcurrency bounds parallel image fetches when Concurrency is unset.
const DefaultConcurrency = 4

// Outcomes passed to Inliner.Observe.
const (
	OutcomeInlined = "inlined"
	OutcomeRemoved = "removed"
	OutcomeKept    = "kept"
)

var (
	errNoSource  = errors.New("empty or unresolvable src")
	errNotImage  = errors.New("response is not an image")
	errTooLarge  = errors.New("image exceeds size limit")
	errEmptyBody = errors.New("empty image body")
)

// Fetcher retrieves a single resource. *fetch.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// Inliner embeds images found in a document.
type Inliner struct {
	Fetcher Fetcher
	// Concurrency caps in-flight image fetches. Zero means DefaultConcurrency.
	Concurrency int
	// MaxBytes rejects images larger than this. Zero means unbounded.
	MaxBytes int64
	// Timeout bounds each image fetch. Zero leaves the fetcher's own policy.
	Timeout time.Duration
	// Observe, when set, is called once per image with its outcome.
	Observe func(outcome string)
}

// Stats counts what happened to the images of one document.
type Stats struct {
	Inlined int
	Removed int
	Kept    int
}

type job struct {
	sel *goquery.Selection
	src string
	// resolved is empty for images kept or removed without a fetch.
	resolved string
	keep     bool
}

type result struct {
	dataURI string
	err     error
}

// Inline rewrites every img src under the document body. Images that cannot
// be fetched or are not images are removed and logged; they never fail the
// call. Only context cancellation is returned, in which case the document is
// left untouched.
func (in *Inliner) Inline(ctx context.Context, doc *dom.Document, base *url.URL) (Stats, error) {
	var jobs []job
	doc.Body().Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		j := job{sel: s, src: src}
		if strings.HasPrefix(strings.ToLower(src), "data:image/") {
			j.keep = true
		} else {
			j.resolved = resolveSource(base, src)
		}
		jobs = append(jobs, j)
	})
	if len(jobs) == 0 {
		return Stats{}, nil
	}

	results := make([]result, len(jobs))
	limit := in.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		if jobs[i].keep {
			continue
		}
		if jobs[i].resolved == "" {
			results[i].err = errNoSource
			continue
		}
		i := i
		g.Go(func() error {
			results[i].dataURI, results[i].err = in.fetchOne(ctx, jobs[i].resolved)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	logger := zerolog.Ctx(ctx)
	var st Stats
	for i, j := range jobs {
		switch {
		case j.keep:
			st.Kept++
			in.observe(OutcomeKept)
		case results[i].err != nil:
			logger.Warn().Err(results[i].err).Str("src", j.src).Msg("image removed")
			j.sel.Remove()
			st.Removed++
			in.observe(OutcomeRemoved)
		default:
			j.sel.SetAttr("src", results[i].dataURI)
			st.Inlined++
			in.observe(OutcomeInlined)
		}
	}
	logger.Debug().Int("inlined", st.Inlined).Int("removed", st.Removed).Int("kept", st.Kept).Msg("images processed")
	return st, nil
}

func (in *Inliner) fetchOne(ctx context.Context, rawURL string) (string, error) {
	if in.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}
	res, err := in.Fetcher.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	ct := strings.TrimSpace(res.ContentType)
	if !fetch.IsImage(ct) {
		return "", fmt.Errorf("%w: %q", errNotImage, ct)
	}
	if len(res.Body) == 0 {
		return "", errEmptyBody
	}
	if in.MaxBytes > 0 && int64(len(res.Body)) > in.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes", errTooLarge, len(res.Body))
	}
	// Parameters such as charset have no place in an image data URI.
	mediatype, _, _ := strings.Cut(ct, ";")
	return "data:" + strings.ToLower(strings.TrimSpace(mediatype)) + ";base64," + base64.StdEncoding.EncodeToString(res.Body), nil
}

func (in *Inliner) observe(outcome string) {
	if in.Observe != nil {
		in.Observe(outcome)
	}
}

// resolveSource turns an img src into an absolute http(s) URL, or "" when
// that is not possible.
func resolveSource(base *url.URL, src string) string {
	var abs string
	switch {
	case src == "":
		return ""
	case strings.HasPrefix(src, "http"):
		abs = src
	case strings.HasPrefix(src, "//"):
		abs = "https:" + src
	case base == nil:
		return ""
	default:
		abs = dom.Resolve(base, src)
	}
	u, err := url.Parse(abs)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return abs
}
