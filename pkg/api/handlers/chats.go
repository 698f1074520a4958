package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"charchat/pkg/characters"
	"charchat/pkg/logger"
	"charchat/pkg/models"
	"charchat/pkg/store"
	"charchat/pkg/telemetry"
	"charchat/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/valyala/bytebufferpool"
)

// RegisterChats registers chat CRUD and the subscription feed.
func RegisterChats(r *mux.Router) {
	r.HandleFunc("/chats", createChat).Methods(http.MethodPost)
	r.HandleFunc("/chats", listChats).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}", getChat).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}", deleteChat).Methods(http.MethodDelete)
	r.HandleFunc("/chats/{id}/subscribe", subscribeChat).Methods(http.MethodGet)
}

func createChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		CharacterID string `json:"character_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == "" {
		utils.JSONError(w, http.StatusBadRequest, "user_id required")
		return
	}
	ch, ok := characters.ByID(req.CharacterID)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "unknown character")
		return
	}

	now := time.Now().UTC().UnixNano()
	chat := models.Chat{
		ID:          utils.NewChatID(),
		UserID:      req.UserID,
		CharacterID: ch.ID,
		Title:       "Chat with " + ch.Name,
		CreatedTS:   now,
		UpdatedTS:   now,
	}
	if err := store.SaveChat(chat); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("chat_created", "chat", chat.ID, "character", ch.ID)
	_ = utils.JSONWrite(w, http.StatusOK, chat)
}

// listChats returns a user's chats ordered by recency. Chats that never
// received a message are omitted from the listing.
func listChats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	chats, err := store.ListChats(userID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]models.Chat, 0, len(chats))
	for _, c := range chats {
		n, err := store.CountMessages(c.ID)
		if err != nil {
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if n == 0 {
			continue
		}
		out = append(out, c)
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chats []models.Chat `json:"chats"`
	}{Chats: out})
}

func getChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	chat, err := store.GetChat(id)
	if err != nil {
		if store.IsNotFound(err) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, chat)
}

func deleteChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := store.GetChat(id); err != nil {
		if store.IsNotFound(err) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := store.DeleteChat(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// subscribeChat streams inserted messages for one chat as SSE. Delivery
// is at-least-once; clients dedupe by message id. When the hub dropped
// events for this subscriber a "resync" event is emitted and the client
// must re-list the chat.
func subscribeChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := store.GetChat(id); err != nil {
		if store.IsNotFound(err) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.JSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := store.Subscribe(id)
	defer store.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if sub.TakeLagged() {
				telemetry.SubscribeDropped.Inc()
				if _, err := w.Write([]byte("event: resync\ndata: {}\n\n")); err != nil {
					return
				}
			}
			if err := writeSSEMessage(w, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEMessage(w http.ResponseWriter, msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString("data: ")
	_, _ = buf.Write(data)
	_, _ = buf.WriteString("\n\n")
	_, err = w.Write(buf.B)
	return err
}
