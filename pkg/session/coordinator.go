// Package session drives one chat's send lifecycle on the client side:
// persist the user turn, stream the reply, pace its display, reconcile
// and persist the assistant turn.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"charchat/pkg/logger"
	"charchat/pkg/models"
	"charchat/pkg/utils"
)

var (
	// ErrBusy is returned when a send is already in flight for this chat.
	ErrBusy = errors.New("send already in progress")
	// ErrEmptyInput is returned for whitespace-only submissions.
	ErrEmptyInput = errors.New("empty input")
	// ErrRevealTimeout is returned by Presenter.Wait when the catch-up
	// bound elapses.
	ErrRevealTimeout = errors.New("reveal catch-up timed out")
)

// State names the coordinator's position in the send lifecycle.
type State int

const (
	StateIdle State = iota
	StatePersistingUser
	StateStreaming
	StateReconciling
	StatePersistingAssistant
	StateCancelling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePersistingUser:
		return "persisting_user"
	case StateStreaming:
		return "streaming"
	case StateReconciling:
		return "reconciling"
	case StatePersistingAssistant:
		return "persisting_assistant"
	case StateCancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

// Store is the persistence surface the coordinator needs.
type Store interface {
	InsertMessage(ctx context.Context, chatID, role, content string) (models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// Streamer produces the assistant reply as a fragment stream.
type Streamer interface {
	Stream(ctx context.Context, msgs []models.ChatMessage, systemPrompt string, onFragment func(string)) error
}

const defaultReconcileMax = 10 * time.Second

// Coordinator owns one chat's sends. At most one session is active at a
// time; a Submit while busy is rejected without side effects. Methods
// are safe for concurrent use.
type Coordinator struct {
	chatID       string
	systemPrompt string
	store        Store
	streamer     Streamer

	revealTick   time.Duration
	reconcileMax time.Duration

	mu        sync.Mutex
	state     State
	requestID string
	cancel    context.CancelFunc
	consumer  *Consumer
	presenter *Presenter
}

// Option tunes a Coordinator.
type Option func(*Coordinator)

// WithRevealTick overrides the presenter cadence.
func WithRevealTick(d time.Duration) Option {
	return func(c *Coordinator) { c.revealTick = d }
}

// WithReconcileMax overrides the catch-up wait bound.
func WithReconcileMax(d time.Duration) Option {
	return func(c *Coordinator) { c.reconcileMax = d }
}

// NewCoordinator builds a coordinator for one chat.
func NewCoordinator(chatID, systemPrompt string, st Store, sm Streamer, opts ...Option) *Coordinator {
	c := &Coordinator{
		chatID:       chatID,
		systemPrompt: systemPrompt,
		store:        st,
		streamer:     sm,
		revealTick:   DefaultRevealTick,
		reconcileMax: defaultReconcileMax,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Accumulated returns the in-flight reply received so far.
func (c *Coordinator) Accumulated() string {
	c.mu.Lock()
	cons := c.consumer
	c.mu.Unlock()
	if cons == nil {
		return ""
	}
	return cons.Accumulated()
}

// Revealed returns the currently displayed prefix of the reply.
func (c *Coordinator) Revealed() string {
	c.mu.Lock()
	p := c.presenter
	c.mu.Unlock()
	if p == nil {
		return ""
	}
	return p.Revealed()
}

// Cancel aborts the in-flight stream, if any. Text received before the
// abort is retained and will be persisted.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStreaming || c.cancel == nil {
		return
	}
	c.state = StateCancelling
	logger.Info("send_cancelled", "chat", c.chatID, "request", c.requestID)
	c.cancel()
}

// Result reports how a Submit ended.
type Result struct {
	UserMessage      models.Message
	AssistantMessage models.Message
	Persisted        bool
	Cancelled        bool
	// StreamErr is the terminal stream failure, if any. A failed stream
	// can still produce a persisted partial reply.
	StreamErr error
}

// Submit runs one full send: persist the user turn, stream the reply
// while pacing its display, wait for the display to catch up (bounded),
// then persist whatever accumulated. Empty trimmed input and concurrent
// submits are rejected with no side effects. Accumulated text is
// persisted even after cancellation; empty output is never persisted.
func (c *Coordinator) Submit(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyInput
	}

	sctx, cancel := context.WithCancel(ctx)
	consumer := NewConsumer()
	presenter := NewPresenter(consumer.Accumulated, c.revealTick)

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		cancel()
		return Result{}, ErrBusy
	}
	c.state = StatePersistingUser
	c.requestID = utils.NewRequestID()
	c.cancel = cancel
	c.consumer = consumer
	c.presenter = presenter
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.state = StateIdle
		c.cancel = nil
		c.requestID = ""
		c.mu.Unlock()
	}()

	var res Result

	userMsg, err := c.store.InsertMessage(sctx, c.chatID, models.RoleUser, text)
	if err != nil {
		logger.Error("user_persist_failed", "chat", c.chatID, "error", err)
		return Result{}, err
	}
	res.UserMessage = userMsg

	history, err := c.store.ListMessages(sctx, c.chatID)
	if err != nil {
		logger.Error("history_load_failed", "chat", c.chatID, "error", err)
		return res, err
	}
	msgs := make([]models.ChatMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, models.ChatMessage{Role: m.Role, Content: m.Content})
	}

	c.setState(StateStreaming)
	presenter.Start()
	streamErr := c.streamer.Stream(sctx, msgs, c.systemPrompt, consumer.Append)
	res.Cancelled = sctx.Err() != nil
	if streamErr != nil {
		res.StreamErr = streamErr
	}

	// Reconcile: let the display catch up, bounded. After cancellation
	// pacing is abandoned and the full text revealed at once.
	c.setState(StateReconciling)
	if res.Cancelled {
		presenter.Reveal()
	} else if err := presenter.Wait(context.Background(), c.reconcileMax); err != nil {
		logger.Warn("reveal_catchup_timeout", "chat", c.chatID, "request", c.requestID)
		presenter.Reveal()
	}
	presenter.Stop()

	accumulated := consumer.Accumulated()
	if strings.TrimSpace(accumulated) == "" {
		logger.Info("empty_reply_discarded", "chat", c.chatID, "request", c.requestID)
		return res, res.StreamErr
	}

	c.setState(StatePersistingAssistant)
	assistantMsg, err := c.store.InsertMessage(context.Background(), c.chatID, models.RoleAssistant, accumulated)
	if err != nil {
		logger.Error("assistant_persist_failed", "chat", c.chatID, "error", err)
		return res, err
	}
	res.AssistantMessage = assistantMsg
	res.Persisted = true
	return res, nil
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	// Cancelling is sticky until the stream call returns; do not let the
	// streaming goroutine's own transitions mask it.
	if c.state == StateCancelling && s == StateStreaming {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
}
