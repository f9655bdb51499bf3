package summarize

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    openai "github.com/sashabaranov/go-openai"

    "github.com/hyperifyio/notelink/internal/cache"
    "github.com/hyperifyio/notelink/internal/llm"
)

type capturingClient struct {
    lastReq   openai.ChatCompletionRequest
    content   string
    noChoices bool
    err       error
    calls     int
}

func (c *capturingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
    c.lastReq = req
    c.calls++
    if c.err != nil {
        return openai.ChatCompletionResponse{}, c.err
    }
    if c.noChoices {
        return openai.ChatCompletionResponse{}, nil
    }
    return openai.ChatCompletionResponse{
        Choices: []openai.ChatCompletionChoice{{
            Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.content},
        }},
    }, nil
}

func TestSummarizer_DefaultRequest(t *testing.T) {
    cc := &capturingClient{content: "  Short summary.  "}
    s := &Summarizer{Client: cc}
    out, err := s.Summarize(context.Background(), "Article body.")
    if err != nil {
        t.Fatalf("summarize: %v", err)
    }
    if out != "Short summary." {
        t.Fatalf("unexpected summary %q", out)
    }
    req := cc.lastReq
    if req.Model != DefaultModel || req.MaxTokens != DefaultMaxTokens || req.Temperature != DefaultTemperature {
        t.Fatalf("unexpected defaults: model=%q max=%d temp=%v", req.Model, req.MaxTokens, req.Temperature)
    }
    if len(req.Messages) != 1 || req.Messages[0].Role != openai.ChatMessageRoleUser {
        t.Fatalf("expected a single user message, got %+v", req.Messages)
    }
    if want := DefaultPrompt + "\n\nArticle body."; req.Messages[0].Content != want {
        t.Fatalf("message content %q, want %q", req.Messages[0].Content, want)
    }
}

func TestSummarizer_ConfiguredFields(t *testing.T) {
    cc := &capturingClient{content: "ok"}
    s := &Summarizer{Client: cc, Model: "local-model", Prompt: "TL;DR:", MaxTokens: 64, Temperature: 0.2}
    if _, err := s.Summarize(context.Background(), "x"); err != nil {
        t.Fatal(err)
    }
    if cc.lastReq.Model != "local-model" || cc.lastReq.MaxTokens != 64 || cc.lastReq.Temperature != 0.2 {
        t.Fatalf("configured fields ignored: %+v", cc.lastReq)
    }
    if !strings.HasPrefix(cc.lastReq.Messages[0].Content, "TL;DR:\n\n") {
        t.Fatalf("custom prompt not used: %q", cc.lastReq.Messages[0].Content)
    }
}

func TestSummarizer_EmptyAnswerFallsBack(t *testing.T) {
    for _, cc := range []*capturingClient{{noChoices: true}, {content: "   "}} {
        out, err := (&Summarizer{Client: cc}).Summarize(context.Background(), "x")
        if err != nil || out != Fallback {
            t.Fatalf("expected fallback text, got %q, %v", out, err)
        }
    }
}

func TestSummarizer_Unavailable(t *testing.T) {
    var nilSummarizer *Summarizer
    for _, s := range []*Summarizer{nilSummarizer, {}} {
        if _, err := s.Summarize(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
            t.Fatalf("expected ErrUnavailable, got %v", err)
        }
    }
}

func TestSummarizer_APIErrorStatus(t *testing.T) {
    cc := &capturingClient{err: &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}}
    _, err := (&Summarizer{Client: cc}).Summarize(context.Background(), "x")
    var se *StatusError
    if !errors.As(err, &se) || se.Status != 429 {
        t.Fatalf("expected StatusError 429, got %v", err)
    }
}

func TestSummarizer_TransportError(t *testing.T) {
    cause := errors.New("connection reset")
    _, err := (&Summarizer{Client: &capturingClient{err: cause}}).Summarize(context.Background(), "x")
    var se *StatusError
    if errors.As(err, &se) {
        t.Fatalf("transport error must not carry a status: %v", err)
    }
    if !errors.Is(err, cause) {
        t.Fatalf("expected wrapped cause, got %v", err)
    }
}

func TestSummarizer_HTTPStatusFromServer(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json")
        w.WriteHeader(http.StatusUnauthorized)
        _, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
    }))
    defer srv.Close()

    cfg := openai.DefaultConfig("bad")
    cfg.BaseURL = srv.URL + "/v1"
    s := &Summarizer{Client: &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}}
    _, err := s.Summarize(context.Background(), "x")
    var se *StatusError
    if !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
        t.Fatalf("expected StatusError 401, got %v", err)
    }
}

func TestSummarizer_CacheSkipsSecondCall(t *testing.T) {
    cc := &capturingClient{content: "cached summary"}
    s := &Summarizer{Client: cc, Cache: &cache.SummaryCache{Dir: t.TempDir()}}
    for i := 0; i < 2; i++ {
        out, err := s.Summarize(context.Background(), "Same article.")
        if err != nil || out != "cached summary" {
            t.Fatalf("call %d: %q, %v", i, out, err)
        }
    }
    if cc.calls != 1 {
        t.Fatalf("expected one model call, got %d", cc.calls)
    }
    if _, err := s.Summarize(context.Background(), "Other article."); err != nil {
        t.Fatal(err)
    }
    if cc.calls != 2 {
        t.Fatalf("different text must miss the cache, calls=%d", cc.calls)
    }
}

func TestSummarizer_FallbackNotCached(t *testing.T) {
    cc := &capturingClient{content: "  "}
    s := &Summarizer{Client: cc, Cache: &cache.SummaryCache{Dir: t.TempDir()}}
    for i := 0; i < 2; i++ {
        if out, _ := s.Summarize(context.Background(), "x"); out != Fallback {
            t.Fatalf("expected fallback, got %q", out)
        }
    }
    if cc.calls != 2 {
        t.Fatalf("fallback answers must not be cached, calls=%d", cc.calls)
    }
}
