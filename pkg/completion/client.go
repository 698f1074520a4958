// Package completion streams chat completions from an OpenAI-compatible
// provider. Clients are constructed explicitly and injected by callers;
// there is no package-level instance.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"charchat/pkg/config"
	"charchat/pkg/models"
)

const (
	defaultBaseURL     = "https://api.groq.com/openai/v1"
	defaultModel       = "llama-3.3-70b-versatile"
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

// EmitFunc receives one content fragment. Returning an error aborts the
// stream; the error propagates out of StreamCompletion unchanged.
type EmitFunc func(fragment string) error

// Streamer is the narrow surface the relay and handlers depend on.
type Streamer interface {
	StreamCompletion(ctx context.Context, msgs []models.ChatMessage, emit EmitFunc) error
}

// Client talks to one completion provider endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewClient builds a Client from config. Zero-value fields fall back to
// provider defaults. The underlying http.Client carries no overall
// timeout: stream lifetime is governed by the request context.
func NewClient(cfg config.CompletionConfig) *Client {
	c := &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.temperature == 0 {
		c.temperature = defaultTemperature
	}
	if c.maxTokens == 0 {
		c.maxTokens = defaultMaxTokens
	}
	return c
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Stream      bool                 `json:"stream"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (sc *streamChunk) content() string {
	if len(sc.Choices) > 0 {
		return sc.Choices[0].Delta.Content
	}
	return ""
}

func (sc *streamChunk) done() bool {
	return len(sc.Choices) > 0 && sc.Choices[0].FinishReason != ""
}

// StreamCompletion sends msgs to the provider and invokes emit for every
// non-empty content fragment, in arrival order. Failures are returned as
// *Error with the Kind classified from the provider response; context
// cancellation returns ctx.Err() unwrapped.
func (c *Client) StreamCompletion(ctx context.Context, msgs []models.ChatMessage, emit EmitFunc) error {
	if c.apiKey == "" {
		return &Error{Kind: KindInvalidCredentials, Msg: "no api key configured"}
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.classifyResponse(resp)
	}

	return c.readStream(ctx, resp.Body, emit)
}

// classifyResponse turns a non-200 provider response into a typed error.
// This is the single place provider error bodies are interpreted.
func (c *Client) classifyResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)
	kind := classifyStatus(resp.StatusCode, body.Error.Code)
	msg := body.Error.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Kind: kind, Status: resp.StatusCode, Code: body.Error.Code, Msg: msg}
}

func (c *Client) readStream(ctx context.Context, body io.Reader, emit EmitFunc) error {
	reader := newSSEReader(body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.readEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, ok := err.(*Error); ok {
				return err
			}
			return classifyTransport(err)
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// skip malformed events rather than abort mid-stream
			continue
		}

		if frag := chunk.content(); frag != "" {
			if err := emit(frag); err != nil {
				return err
			}
		}
		if chunk.done() {
			return nil
		}
	}
}
