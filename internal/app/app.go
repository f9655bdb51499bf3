package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/notelink/internal/cache"
	"github.com/hyperifyio/notelink/internal/dom"
	"github.com/hyperifyio/notelink/internal/extract"
	"github.com/hyperifyio/notelink/internal/fetch"
	"github.com/hyperifyio/notelink/internal/format"
	"github.com/hyperifyio/notelink/internal/inline"
	"github.com/hyperifyio/notelink/internal/llm"
	"github.com/hyperifyio/notelink/internal/metrics"
	"github.com/hyperifyio/notelink/internal/sanitize"
	"github.com/hyperifyio/notelink/internal/summarize"
)

// Untitled is the result title when the article has none.
const Untitled = "Untitled"

// App turns links into editor-ready notes. It holds no per-request state and
// is safe for concurrent use.
type App struct {
	cfg        Config
	pages      *fetch.Client
	images     *inline.Inliner
	extractor  extract.Extractor
	summarizer *summarize.Summarizer
}

// Option customises New.
type Option func(*options)

type options struct {
	httpClient *http.Client
	llmClient  llm.Client
	extractor  extract.Extractor
}

// WithHTTPClient replaces the HTTP client used for pages, images and the LLM.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLLMClient sets the completion client regardless of the configured key.
func WithLLMClient(c llm.Client) Option {
	return func(o *options) { o.llmClient = c }
}

// WithExtractor replaces the readability extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// New validates cfg and wires the pipeline.
func New(cfg Config, opts ...Option) (*App, error) {
	cfg = cfg.WithDefaults()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = newHTTPClient(cfg.ImageConcurrency)
	}
	if o.extractor == nil {
		o.extractor = extract.Readability{}
	}

	client := o.llmClient
	if client == nil && strings.TrimSpace(cfg.LLMAPIKey) != "" {
		client = llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey, o.httpClient)
	}

	imageTimeout := cfg.ImageTimeout
	if imageTimeout == 0 {
		imageTimeout = cfg.FetchTimeout
	}
	imageFetcher := &fetch.Client{
		HTTPClient:        o.httpClient,
		UserAgent:         cfg.UserAgent,
		PerRequestTimeout: imageTimeout,
		Observe:           metrics.ObserveStatus,
	}
	if cfg.ImageMaxBytes > 0 {
		// One byte past the cap lets the inliner tell "at limit" from "over".
		imageFetcher.MaxBodyBytes = cfg.ImageMaxBytes + 1
	}

	var summaries summarize.Cache
	if strings.TrimSpace(cfg.CacheDir) != "" {
		summaries = &cache.SummaryCache{Dir: cfg.CacheDir, MaxAge: cfg.CacheMaxAge, StrictPerms: true}
	}

	return &App{
		cfg: cfg,
		pages: &fetch.Client{
			HTTPClient:        o.httpClient,
			UserAgent:         cfg.UserAgent,
			PerRequestTimeout: cfg.FetchTimeout,
			MaxBodyBytes:      cfg.MaxPageBytes,
			Observe:           metrics.ObserveStatus,
		},
		images: &inline.Inliner{
			Fetcher:     imageFetcher,
			Concurrency: cfg.ImageConcurrency,
			MaxBytes:    cfg.ImageMaxBytes,
			Observe:     metrics.ObserveImage,
		},
		extractor: o.extractor,
		summarizer: &summarize.Summarizer{
			Client:    client,
			Model:     cfg.LLMModel,
			Prompt:    cfg.SummaryPrompt,
			MaxTokens: cfg.SummaryMaxTokens,
			Cache:     summaries,
		},
	}, nil
}

// SummariesEnabled reports whether summary mode can reach a model.
func (a *App) SummariesEnabled() bool {
	return a.summarizer.Client != nil
}

// ProcessLink fetches req.URL, extracts its article and renders it in
// req.Mode. Invalid requests fail before any network call. Image and summary
// failures degrade the output; every other failure is returned wrapped.
func (a *App) ProcessLink(ctx context.Context, req LinkRequest) (res *LinkResult, err error) {
	start := time.Now()
	logger := log.With().
		Str("request_id", uuid.NewString()).
		Str("url", req.URL).
		Str("mode", string(req.Mode)).
		Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if werr := a.waitMinLatency(ctx, start); werr != nil && err == nil {
			res, err = nil, werr
		}
		metrics.ProcessDuration.WithLabelValues(modeLabel(req.Mode)).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.Failures.WithLabelValues(failureKind(err)).Inc()
			logger.Debug().Err(err).Msg("link processing failed")
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	t := time.Now()
	page, err := a.pages.GetHTML(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	metrics.StageDuration.WithLabelValues("fetch").Observe(time.Since(t).Seconds())
	base, err := url.Parse(page.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("parse final url: %w", err)
	}

	t = time.Now()
	doc, err := dom.Load(page.Body, page.ContentType, base)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	article, err := a.extractor.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(t).Seconds())

	t = time.Now()
	out, err := a.render(ctx, req, article, base)
	if err != nil {
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("render").Observe(time.Since(t).Seconds())

	title := article.Title
	if title == "" {
		title = Untitled
	}
	var siteName *string
	if article.SiteName != "" {
		s := article.SiteName
		siteName = &s
	}
	logger.Info().Str("title", title).Int("html_bytes", len(out)).Dur("elapsed", time.Since(start)).Msg("link processed")
	return &LinkResult{
		Title: title,
		HTML:  out,
		Metadata: Metadata{
			URL:           req.URL,
			Mode:          req.Mode,
			IncludeImages: req.IncludeImages,
			OriginalTitle: article.Title,
			Excerpt:       article.Excerpt,
			Length:        article.Length,
			SiteName:      siteName,
		},
	}, nil
}

func (a *App) render(ctx context.Context, req LinkRequest, article extract.Article, base *url.URL) (string, error) {
	switch req.Mode {
	case ModeFormatted:
		return a.formatted(ctx, article.Content, req.IncludeImages, base)
	case ModePlain:
		return format.Plain(article.TextContent), nil
	case ModeSummary:
		return a.summary(ctx, article.TextContent)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, string(req.Mode))
	}
}

func (a *App) formatted(ctx context.Context, content string, includeImages bool, base *url.URL) (string, error) {
	frag, err := dom.ParseFragment(content)
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}
	sanitize.PreClean(frag, includeImages)
	if includeImages {
		if _, err := a.images.Inline(ctx, frag, base); err != nil {
			return "", fmt.Errorf("inline images: %w", err)
		}
	}
	out, err := sanitize.Finish(frag)
	if err != nil {
		return "", fmt.Errorf("sanitize article: %w", err)
	}
	return out, nil
}

// summary falls back to plain rendering on any summarizer failure. Only a
// cancelled context is returned as an error.
func (a *App) summary(ctx context.Context, text string) (string, error) {
	s, err := a.summarizer.Summarize(ctx, text)
	if err == nil {
		metrics.Summaries.WithLabelValues("ok").Inc()
		return format.Summary(s), nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}
	outcome := "error"
	if errors.Is(err, summarize.ErrUnavailable) {
		outcome = "unavailable"
	}
	metrics.Summaries.WithLabelValues(outcome).Inc()
	zerolog.Ctx(ctx).Warn().Err(err).Msg("summary failed; using plain text")
	return format.Plain(text), nil
}

// waitMinLatency holds the call until MinLatency has passed since start.
func (a *App) waitMinLatency(ctx context.Context, start time.Time) error {
	if a.cfg.MinLatency <= 0 {
		return nil
	}
	remaining := a.cfg.MinLatency - time.Since(start)
	if remaining <= 0 {
		return nil
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// modeLabel keeps caller-supplied mode strings out of metric labels.
func modeLabel(m Mode) string {
	if !m.valid() {
		return "invalid"
	}
	return string(m)
}

func failureKind(err error) string {
	var (
		netErr    *fetch.NetworkError
		statusErr *fetch.StatusError
	)
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &netErr):
		return "network"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, fetch.ErrUnsupportedContent):
		return "unsupported_content"
	case errors.Is(err, extract.ErrExtractionFailed):
		return "extraction"
	case errors.Is(err, ErrUnknownMode):
		return "unknown_mode"
	default:
		return "other"
	}
}
