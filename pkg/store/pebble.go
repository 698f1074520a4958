package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"charchat/pkg/logger"
	"charchat/pkg/models"
	"charchat/pkg/utils"

	"github.com/cockroachdb/pebble"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq reduces key collisions when multiple messages share the same
// nanosecond timestamp.
var seq uint64

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func errNotOpen() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

func msgKey(chatID string, ts int64, s uint64) []byte {
	return []byte(fmt.Sprintf("chat:%s:msg:%020d-%06d", chatID, ts, s))
}

func metaKey(chatID string) []byte {
	return []byte("chat:" + chatID + ":meta")
}

// InsertMessage appends a message to a chat under a sortable timestamp
// key and publishes it to subscribers. When the role is user the chat
// watermark is bumped; a watermark failure is logged but does not fail
// the insert (ordering goes stale, data does not).
func InsertMessage(chatID, role, content string) (models.Message, error) {
	if db == nil {
		return models.Message{}, errNotOpen()
	}
	if !models.ValidRole(role) {
		return models.Message{}, fmt.Errorf("invalid role: %q", role)
	}

	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	msg := models.Message{
		ID:        utils.NewMessageID(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedTS: ts,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("marshal message: %w", err)
	}

	key := msgKey(chatID, ts, s)
	if err := db.Set(key, data, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "chat", chatID, "key", string(key), "error", err)
		return models.Message{}, err
	}
	logger.Info("message_saved", "chat", chatID, "msg_id", msg.ID, "role", role)

	if role == models.RoleUser {
		if err := TouchChat(chatID, ts); err != nil {
			logger.Warn("watermark_bump_failed", "chat", chatID, "error", err)
		}
	}

	publish(chatID, msg)
	return msg, nil
}

// ListMessages returns all messages for a chat in insertion order. An
// optional limit caps the result.
func ListMessages(chatID string, limit ...int) ([]models.Message, error) {
	if db == nil {
		return nil, errNotOpen()
	}
	prefix := []byte("chat:" + chatID + ":msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	max := -1
	if len(limit) > 0 {
		max = limit[0]
	}
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("invalid message JSON at %s: %w", iter.Key(), err)
		}
		out = append(out, m)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, iter.Error()
}

// CountMessages returns the number of messages stored for a chat.
func CountMessages(chatID string) (int, error) {
	if db == nil {
		return 0, errNotOpen()
	}
	prefix := []byte("chat:" + chatID + ":msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		n++
	}
	return n, iter.Error()
}

// SaveChat stores chat metadata under the reserved meta key.
func SaveChat(chat models.Chat) error {
	if db == nil {
		return errNotOpen()
	}
	data, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("marshal chat: %w", err)
	}
	if err := db.Set(metaKey(chat.ID), data, pebble.Sync); err != nil {
		logger.Error("save_chat_failed", "chat", chat.ID, "error", err)
		return err
	}
	logger.Info("chat_saved", "chat", chat.ID)
	return nil
}

// GetChat returns the stored chat metadata for an ID.
func GetChat(chatID string) (models.Chat, error) {
	if db == nil {
		return models.Chat{}, errNotOpen()
	}
	v, closer, err := db.Get(metaKey(chatID))
	if err != nil {
		return models.Chat{}, err
	}
	if closer != nil {
		defer closer.Close()
	}
	var c models.Chat
	if err := json.Unmarshal(v, &c); err != nil {
		return models.Chat{}, fmt.Errorf("invalid chat JSON: %w", err)
	}
	return c, nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return err == pebble.ErrNotFound
}

// TouchChat bumps the chat watermark to ts. The watermark only moves
// forward; a stale ts is ignored rather than rewinding recency order.
func TouchChat(chatID string, ts int64) error {
	c, err := GetChat(chatID)
	if err != nil {
		return err
	}
	if ts <= c.UpdatedTS {
		return nil
	}
	c.UpdatedTS = ts
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return db.Set(metaKey(chatID), data, pebble.Sync)
}

// ListChats returns chats for a user ordered by watermark, most recent
// first. When userID is empty all chats are returned.
func ListChats(userID string) ([]models.Chat, error) {
	if db == nil {
		return nil, errNotOpen()
	}
	prefix := []byte("chat:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []models.Chat
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !bytes.HasSuffix(iter.Key(), []byte(":meta")) {
			continue
		}
		var c models.Chat
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			continue
		}
		if userID != "" && c.UserID != userID {
			continue
		}
		out = append(out, c)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedTS > out[j].UpdatedTS })
	return out, nil
}

// DeleteChat removes a chat's messages and then its metadata.
func DeleteChat(chatID string) error {
	if db == nil {
		return errNotOpen()
	}
	prefix := []byte("chat:" + chatID + ":msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		k := append([]byte(nil), iter.Key()...)
		if err := db.Delete(k, pebble.Sync); err != nil {
			iter.Close()
			return err
		}
	}
	if err := iter.Close(); err != nil {
		return err
	}
	if err := db.Delete(metaKey(chatID), pebble.Sync); err != nil {
		logger.Error("delete_chat_failed", "chat", chatID, "error", err)
		return err
	}
	logger.Info("chat_deleted", "chat", chatID)
	return nil
}
