package store

import (
	"sync"
	"sync/atomic"

	"charchat/pkg/logger"
	"charchat/pkg/models"
)

// Subscription fan-out for inserted messages. Delivery is at-least-once
// over bounded channels: a publisher never blocks on a slow subscriber.
// When a subscriber's channel is full the event is dropped and the
// subscriber is flagged lagged; it must re-list the chat to resync.
// Consumers dedupe by message ID.

const defaultSubCapacity = 64

var hub = struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
	cap  int
}{subs: make(map[string]map[*Subscriber]struct{}), cap: defaultSubCapacity}

var droppedEvents uint64

// SetSubscribeCapacity sets the per-subscriber channel capacity used for
// new subscriptions. Called once at startup.
func SetSubscribeCapacity(n int) {
	if n <= 0 {
		return
	}
	hub.mu.Lock()
	hub.cap = n
	hub.mu.Unlock()
}

// Subscriber receives messages inserted into one chat.
type Subscriber struct {
	chatID string
	ch     chan models.Message
	lagged atomic.Bool
}

// C is the receive channel. It is closed by Unsubscribe.
func (s *Subscriber) C() <-chan models.Message { return s.ch }

// TakeLagged reports and clears the lagged flag. A true result means
// events were dropped since the last check and the consumer must re-list
// the chat to recover them.
func (s *Subscriber) TakeLagged() bool {
	return s.lagged.Swap(false)
}

// Subscribe registers a subscriber for a chat's inserted messages.
func Subscribe(chatID string) *Subscriber {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	sub := &Subscriber{chatID: chatID, ch: make(chan models.Message, hub.cap)}
	m, ok := hub.subs[chatID]
	if !ok {
		m = make(map[*Subscriber]struct{})
		hub.subs[chatID] = m
	}
	m[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	hub.mu.Lock()
	if m, ok := hub.subs[sub.chatID]; ok {
		if _, present := m[sub]; present {
			delete(m, sub)
			close(sub.ch)
		}
		if len(m) == 0 {
			delete(hub.subs, sub.chatID)
		}
	}
	hub.mu.Unlock()
}

// DroppedEvents returns the total number of events dropped due to full
// subscriber channels.
func DroppedEvents() uint64 { return atomic.LoadUint64(&droppedEvents) }

// publish fans msg out to the chat's subscribers without blocking.
func publish(chatID string, msg models.Message) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for sub := range hub.subs[chatID] {
		select {
		case sub.ch <- msg:
		default:
			sub.lagged.Store(true)
			atomic.AddUint64(&droppedEvents, 1)
			logger.Debug("subscriber_lagged", "chat", chatID, "msg_id", msg.ID)
		}
	}
}
