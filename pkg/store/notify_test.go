package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"charchat/pkg/models"
)

func TestSubscribeReceivesInserts(t *testing.T) {
	openTestDB(t)

	sub := Subscribe("chat-1")
	defer Unsubscribe(sub)

	m, err := InsertMessage("chat-1", models.RoleUser, "ping")
	require.NoError(t, err)

	select {
	case got := <-sub.C():
		require.Equal(t, m.ID, got.ID)
		require.Equal(t, "ping", got.Content)
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}
}

func TestSubscribeScopedToChat(t *testing.T) {
	openTestDB(t)

	sub := Subscribe("chat-1")
	defer Unsubscribe(sub)

	_, err := InsertMessage("chat-2", models.RoleUser, "elsewhere")
	require.NoError(t, err)

	select {
	case got := <-sub.C():
		t.Fatalf("unexpected delivery: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishNeverBlocksAndFlagsLag(t *testing.T) {
	sub := Subscribe("chat-lag")
	defer Unsubscribe(sub)

	// fill the channel past capacity; publish must not block
	total := cap(sub.ch) + 3
	done := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			publish("chat-lag", models.Message{ID: "m", ChatID: "chat-lag"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on full subscriber")
	}

	require.True(t, sub.TakeLagged())
	// flag clears after being taken
	require.False(t, sub.TakeLagged())
	require.Len(t, sub.ch, cap(sub.ch))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	sub := Subscribe("chat-1")
	Unsubscribe(sub)
	_, open := <-sub.C()
	require.False(t, open)
	// double unsubscribe is harmless
	Unsubscribe(sub)
}

func TestDroppedEventsCounter(t *testing.T) {
	sub := Subscribe("chat-drop")
	defer Unsubscribe(sub)

	before := DroppedEvents()
	for i := 0; i < cap(sub.ch)+1; i++ {
		publish("chat-drop", models.Message{ID: "m"})
	}
	require.Greater(t, DroppedEvents(), before)
}
