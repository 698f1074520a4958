package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"charchat/pkg/models"
)

func TestAPIClientInsertMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chats/chat-1/messages" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.Message{ID: "msg-1", ChatID: "chat-1", Role: in.Role, Content: in.Content})
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	msg, err := c.InsertMessage(context.Background(), "chat-1", models.RoleUser, "hi")
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if msg.ID != "msg-1" || msg.Content != "hi" {
		t.Fatalf("msg %+v", msg)
	}
}

func TestAPIClientInsertMessageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid role"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	_, err := c.InsertMessage(context.Background(), "chat-1", "wizard", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestAPIClientListMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(struct {
			Chat     string           `json:"chat"`
			Messages []models.Message `json:"messages"`
		}{Chat: "chat-1", Messages: []models.Message{{ID: "m1"}, {ID: "m2"}}})
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	msgs, err := c.ListMessages(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" {
		t.Fatalf("msgs %+v", msgs)
	}
}

func TestAPIClientStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Messages     []models.ChatMessage `json:"messages"`
			SystemPrompt string               `json:"systemPrompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.SystemPrompt != "You are Luna." {
			t.Errorf("systemPrompt = %q", in.SystemPrompt)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fl := w.(http.Flusher)
		for _, frag := range []string{"Hel", "lo ", "there"} {
			fmt.Fprint(w, frag)
			fl.Flush()
		}
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	var got string
	err := c.Stream(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}}, "You are Luna.", func(f string) { got += f })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got != "Hello there" {
		t.Fatalf("got %q", got)
	}
}

func TestAPIClientStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"messages must be an array"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	err := c.Stream(context.Background(), nil, "", func(string) {})
	if err == nil {
		t.Fatal("expected error for non-200")
	}
}
