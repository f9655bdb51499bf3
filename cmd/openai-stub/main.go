// Command openai-stub serves a tiny OpenAI-compatible API for local runs and
// tests. Chat completions answer with a deterministic summary built from the
// first sentences of the article text in the last user message.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// summarySentences is how many leading sentences make up a stub summary.
const summarySentences = 2

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model)); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func newMux(model string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, openai.ModelsList{Models: []openai.Model{{ID: model, Object: "model"}}})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		var user string
		for _, m := range req.Messages {
			if m.Role == openai.ChatMessageRoleUser {
				user = m.Content
			}
		}
		if strings.TrimSpace(user) == "" {
			writeError(w, http.StatusBadRequest, "no user message")
			return
		}
		log.Debug().Str("model", req.Model).Int("chars", len(user)).Msg("completion")
		writeJSON(w, http.StatusOK, openai.ChatCompletionResponse{
			Object: "chat.completion",
			Model:  model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: stubSummary(user)},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	})
	return mux
}

// stubSummary drops the prompt, which ends at the first blank line, and keeps
// the opening sentences of what follows.
func stubSummary(user string) string {
	text := user
	if _, rest, ok := strings.Cut(user, "\n\n"); ok {
		text = rest
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "The article is empty."
	}
	var b strings.Builder
	n := 0
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			n++
			if n == summarySentences {
				break
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg, "type": "invalid_request_error"},
	})
}
