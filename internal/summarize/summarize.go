package summarize

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/rs/zerolog"
    openai "github.com/sashabaranov/go-openai"

    "github.com/hyperifyio/notelink/internal/cache"
    "github.com/hyperifyio/notelink/internal/llm"
)

const (
    DefaultModel       = "gpt-4"
    DefaultMaxTokens   = 500
    DefaultTemperature = float32(0.7)
    DefaultPrompt      = "Summarize the following article in a few concise paragraphs."

    // Fallback is returned when the model answers without any content.
    Fallback = "Summary not available"
)

// ErrUnavailable indicates no completion client is configured, usually
// because no API key was provided.
var ErrUnavailable = errors.New("summarization unavailable")

// StatusError reports a non-success HTTP status from the completion endpoint.
type StatusError struct {
    Status int
    Err    error
}

func (e *StatusError) Error() string {
    return fmt.Sprintf("summarization failed with status %d: %v", e.Status, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Cache stores finished summaries. *cache.SummaryCache satisfies it.
type Cache interface {
    Get(ctx context.Context, key string) (string, bool, error)
    Save(ctx context.Context, key, model, summary string) error
}

// Summarizer asks a chat model for a short summary of article text.
// Zero-valued fields fall back to the package defaults.
type Summarizer struct {
    Client      llm.Client
    Model       string
    Prompt      string
    MaxTokens   int
    Temperature float32
    // Cache, when set, is consulted before the model and filled after it.
    Cache Cache
}

// Summarize sends the prompt and text as a single user message. No retries:
// callers fall back to plain text on any error.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
    if s == nil || s.Client == nil {
        return "", ErrUnavailable
    }
    req := s.request(text)
    key := cache.Key(req.Model, s.prompt(), req.MaxTokens, text)
    if s.Cache != nil {
        if out, ok, err := s.Cache.Get(ctx, key); err != nil {
            zerolog.Ctx(ctx).Warn().Err(err).Msg("summary cache read failed")
        } else if ok {
            zerolog.Ctx(ctx).Debug().Str("model", req.Model).Msg("summary cache hit")
            return out, nil
        }
    }
    resp, err := s.Client.CreateChatCompletion(ctx, req)
    if err != nil {
        return "", classify(err)
    }
    if len(resp.Choices) == 0 {
        return Fallback, nil
    }
    out := strings.TrimSpace(resp.Choices[0].Message.Content)
    if out == "" {
        return Fallback, nil
    }
    if s.Cache != nil {
        if err := s.Cache.Save(ctx, key, req.Model, out); err != nil {
            zerolog.Ctx(ctx).Warn().Err(err).Msg("summary cache write failed")
        }
    }
    return out, nil
}

func (s *Summarizer) prompt() string {
    if p := strings.TrimSpace(s.Prompt); p != "" {
        return p
    }
    return DefaultPrompt
}

func (s *Summarizer) request(text string) openai.ChatCompletionRequest {
    model := strings.TrimSpace(s.Model)
    if model == "" {
        model = DefaultModel
    }
    maxTokens := s.MaxTokens
    if maxTokens <= 0 {
        maxTokens = DefaultMaxTokens
    }
    temp := s.Temperature
    if temp <= 0 {
        temp = DefaultTemperature
    }
    return openai.ChatCompletionRequest{
        Model: model,
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleUser, Content: s.prompt() + "\n\n" + text},
        },
        MaxTokens:   maxTokens,
        Temperature: temp,
    }
}

// classify maps go-openai errors carrying an HTTP status to *StatusError.
func classify(err error) error {
    var apiErr *openai.APIError
    if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
        return &StatusError{Status: apiErr.HTTPStatusCode, Err: err}
    }
    var reqErr *openai.RequestError
    if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
        return &StatusError{Status: reqErr.HTTPStatusCode, Err: err}
    }
    return fmt.Errorf("summarization call: %w", err)
}
