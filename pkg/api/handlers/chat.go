package handlers

import (
	"encoding/json"
	"net/http"

	"charchat/pkg/completion"
	"charchat/pkg/logger"
	"charchat/pkg/models"
	"charchat/pkg/prompt"
	"charchat/pkg/relay"
	"charchat/pkg/telemetry"
	"charchat/pkg/utils"

	"github.com/gorilla/mux"
)

// RegisterChat registers the streaming completion endpoint. The relay is
// injected; handlers hold no package-level client state.
func RegisterChat(r *mux.Router, rl *relay.Relay) {
	r.HandleFunc("/chat", streamChat(rl)).Methods(http.MethodPost)
}

// chatRequest uses RawMessage fields so type errors are reported as 400
// instead of silently coerced.
type chatRequest struct {
	Messages     json.RawMessage `json:"messages"`
	SystemPrompt json.RawMessage `json:"systemPrompt"`
}

func streamChat(rl *relay.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}

		var msgs []models.ChatMessage
		if len(req.Messages) == 0 {
			utils.JSONError(w, http.StatusBadRequest, "messages must be an array")
			return
		}
		if err := json.Unmarshal(req.Messages, &msgs); err != nil || msgs == nil {
			// json null decodes into a nil slice, which is not an array
			utils.JSONError(w, http.StatusBadRequest, "messages must be an array")
			return
		}
		if len(req.SystemPrompt) == 0 {
			utils.JSONError(w, http.StatusBadRequest, "systemPrompt must be a non-empty string")
			return
		}
		var systemPrompt string
		if err := json.Unmarshal(req.SystemPrompt, &systemPrompt); err != nil || systemPrompt == "" {
			utils.JSONError(w, http.StatusBadRequest, "systemPrompt must be a non-empty string")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			utils.JSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		prepared := prompt.Prepare(msgs, systemPrompt)
		logger.Debug("prompt_prepared",
			"messages", len(prepared),
			"approx_tokens", prompt.TotalTokens(prepared))

		// The stream is now open: from here on failures are delivered
		// in-band, never as an HTTP error status.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-transform")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)

		emit := func(fragment string) error {
			if _, err := w.Write([]byte(fragment)); err != nil {
				return err
			}
			flusher.Flush()
			telemetry.StreamFragments.Inc()
			return nil
		}

		err := rl.Stream(r.Context(), prepared, emit)
		if err == nil {
			return
		}
		if r.Context().Err() != nil {
			// client went away; nothing left to write to
			logger.Debug("stream_cancelled", "path", r.URL.Path)
			return
		}

		kind := completion.KindOf(err)
		telemetry.StreamFailures.WithLabelValues(kind.String()).Inc()
		logger.Error("stream_failed", "kind", kind.String(), "error", err)
		_, _ = w.Write([]byte("\n\nError: " + kind.UserMessage()))
		flusher.Flush()
	}
}
