package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"charchat/pkg/models"
)

type fakeStore struct {
	mu        sync.Mutex
	inserted  []models.Message
	insertErr error
}

func (f *fakeStore) InsertMessage(ctx context.Context, chatID, role, content string) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return models.Message{}, f.insertErr
	}
	m := models.Message{
		ID:      "msg-" + role + "-" + content[:min(4, len(content))],
		ChatID:  chatID,
		Role:    role,
		Content: content,
	}
	f.inserted = append(f.inserted, m)
	return m, nil
}

func (f *fakeStore) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Message, len(f.inserted))
	copy(out, f.inserted)
	return out, nil
}

func (f *fakeStore) insertedMessages() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Message, len(f.inserted))
	copy(out, f.inserted)
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// fakeStreamer emits scripted fragments, optionally blocking until
// released so tests can cancel mid-stream.
type fakeStreamer struct {
	fragments []string
	err       error
	block     chan struct{}
}

func (f *fakeStreamer) Stream(ctx context.Context, msgs []models.ChatMessage, systemPrompt string, onFragment func(string)) error {
	for _, frag := range f.fragments {
		onFragment(frag)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func newTestCoordinator(st Store, sm Streamer) *Coordinator {
	return NewCoordinator("chat-1", "You are Luna.", st, sm,
		WithRevealTick(time.Millisecond),
		WithReconcileMax(2*time.Second),
	)
}

func TestSubmitHappyPath(t *testing.T) {
	st := &fakeStore{}
	sm := &fakeStreamer{fragments: []string{"Hello", " there"}}
	c := newTestCoordinator(st, sm)

	res, err := c.Submit(context.Background(), "hi luna")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Persisted {
		t.Fatal("expected persisted reply")
	}
	if res.AssistantMessage.Content != "Hello there" {
		t.Fatalf("assistant content %q", res.AssistantMessage.Content)
	}
	msgs := st.insertedMessages()
	if len(msgs) != 2 {
		t.Fatalf("inserted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[0].Content != "hi luna" {
		t.Fatalf("first insert %+v", msgs[0])
	}
	if msgs[1].Role != models.RoleAssistant {
		t.Fatalf("second insert %+v", msgs[1])
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v after submit", c.State())
	}
}

func TestSubmitEmptyInput(t *testing.T) {
	st := &fakeStore{}
	c := newTestCoordinator(st, &fakeStreamer{})

	for _, in := range []string{"", "   ", "\n\t "} {
		if _, err := c.Submit(context.Background(), in); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("input %q: err = %v", in, err)
		}
	}
	if len(st.insertedMessages()) != 0 {
		t.Fatal("empty input must not persist anything")
	}
}

func TestSubmitWhileBusy(t *testing.T) {
	st := &fakeStore{}
	sm := &fakeStreamer{fragments: []string{"x"}, block: make(chan struct{})}
	c := newTestCoordinator(st, sm)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "first")
		done <- err
	}()

	// wait until the first submit reaches streaming
	waitFor(t, func() bool { return c.State() == StateStreaming })

	if _, err := c.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}

	close(sm.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// the rejected submit left no trace
	for _, m := range st.insertedMessages() {
		if m.Content == "second" {
			t.Fatal("busy submit persisted its input")
		}
	}
}

func TestCancelPersistsPartialReply(t *testing.T) {
	st := &fakeStore{}
	sm := &fakeStreamer{fragments: []string{"partial answer"}, block: make(chan struct{})}
	c := newTestCoordinator(st, sm)

	done := make(chan Result, 1)
	go func() {
		res, _ := c.Submit(context.Background(), "question")
		done <- res
	}()

	waitFor(t, func() bool { return c.State() == StateStreaming && c.Accumulated() != "" })
	c.Cancel()

	res := <-done
	if !res.Cancelled {
		t.Fatal("expected cancelled result")
	}
	if !res.Persisted {
		t.Fatal("partial text must be persisted after cancel")
	}
	if res.AssistantMessage.Content != "partial answer" {
		t.Fatalf("persisted %q", res.AssistantMessage.Content)
	}
	// cancellation abandons pacing: everything is revealed
	if c.Revealed() != "partial answer" {
		t.Fatalf("revealed %q", c.Revealed())
	}
}

func TestCancelWithNoOutputPersistsNothing(t *testing.T) {
	st := &fakeStore{}
	sm := &fakeStreamer{block: make(chan struct{})}
	c := newTestCoordinator(st, sm)

	done := make(chan Result, 1)
	go func() {
		res, _ := c.Submit(context.Background(), "question")
		done <- res
	}()

	waitFor(t, func() bool { return c.State() == StateStreaming })
	c.Cancel()

	res := <-done
	if res.Persisted {
		t.Fatal("empty reply must not be persisted")
	}
	msgs := st.insertedMessages()
	if len(msgs) != 1 || msgs[0].Role != models.RoleUser {
		t.Fatalf("inserted %+v, want only the user turn", msgs)
	}
}

func TestFailedStreamPersistsPartial(t *testing.T) {
	st := &fakeStore{}
	streamErr := errors.New("upstream died")
	sm := &fakeStreamer{fragments: []string{"got this far"}, err: streamErr}
	c := newTestCoordinator(st, sm)

	res, err := c.Submit(context.Background(), "question")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !errors.Is(res.StreamErr, streamErr) {
		t.Fatalf("StreamErr = %v", res.StreamErr)
	}
	if !res.Persisted || res.AssistantMessage.Content != "got this far" {
		t.Fatalf("result %+v", res)
	}
}

func TestFailedStreamWithNoOutputReturnsError(t *testing.T) {
	st := &fakeStore{}
	streamErr := errors.New("nothing came back")
	sm := &fakeStreamer{err: streamErr}
	c := newTestCoordinator(st, sm)

	res, err := c.Submit(context.Background(), "question")
	if !errors.Is(err, streamErr) {
		t.Fatalf("err = %v", err)
	}
	if res.Persisted {
		t.Fatal("nothing to persist")
	}
}

func TestUserPersistFailureAborts(t *testing.T) {
	st := &fakeStore{insertErr: errors.New("disk full")}
	sm := &fakeStreamer{fragments: []string{"never"}}
	c := newTestCoordinator(st, sm)

	if _, err := c.Submit(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v", c.State())
	}
}

func TestCancelWhenIdleIsNoOp(t *testing.T) {
	c := newTestCoordinator(&fakeStore{}, &fakeStreamer{})
	c.Cancel()
	if c.State() != StateIdle {
		t.Fatalf("state = %v", c.State())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}
