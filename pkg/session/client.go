package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"charchat/pkg/models"
)

// APIClient talks to the chat server over HTTP. It implements both the
// Store and Streamer surfaces the coordinator needs.
type APIClient struct {
	baseURL string
	hc      *http.Client
}

// NewAPIClient builds a client for the server at baseURL. The HTTP
// client carries no overall timeout; stream lifetime is governed by the
// caller's context.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		hc: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (a *APIClient) SetHTTPClient(hc *http.Client) { a.hc = hc }

func (a *APIClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
		return fmt.Errorf("server: %s (status %d)", e.Error, resp.StatusCode)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}

// InsertMessage persists one message in a chat.
func (a *APIClient) InsertMessage(ctx context.Context, chatID, role, content string) (models.Message, error) {
	var msg models.Message
	in := struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: role, Content: content}
	err := a.postJSON(ctx, "/v1/chats/"+chatID+"/messages", in, &msg)
	return msg, err
}

// ListMessages fetches a chat's messages in order.
func (a *APIClient) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/chats/"+chatID+"/messages", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Stream posts a completion request and forwards body chunks to
// onFragment as they arrive. The response is plain text; a server-side
// failure after the stream opened arrives in-band as part of the text.
func (a *APIClient) Stream(ctx context.Context, msgs []models.ChatMessage, systemPrompt string, onFragment func(string)) error {
	body, err := json.Marshal(struct {
		Messages     []models.ChatMessage `json:"messages"`
		SystemPrompt string               `json:"systemPrompt"`
	}{Messages: msgs, SystemPrompt: systemPrompt})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			onFragment(string(buf[:n]))
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}
