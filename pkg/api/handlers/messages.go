package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"charchat/pkg/logger"
	"charchat/pkg/models"
	"charchat/pkg/store"
	"charchat/pkg/utils"

	"github.com/gorilla/mux"
)

// RegisterMessages registers chat-scoped message endpoints.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/chats/{id}/messages", listMessages).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}/messages", createMessage).Methods(http.MethodPost)
}

func listMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := store.GetChat(id); err != nil {
		if store.IsNotFound(err) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var msgs []models.Message
	var err error
	if limStr := r.URL.Query().Get("limit"); limStr != "" {
		lim, perr := strconv.Atoi(limStr)
		if perr != nil || lim < 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		msgs, err = store.ListMessages(id, lim)
	} else {
		msgs, err = store.ListMessages(id)
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Chat     string           `json:"chat"`
		Messages []models.Message `json:"messages"`
	}{Chat: id, Messages: msgs})
}

func createMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := store.GetChat(id); err != nil {
		if store.IsNotFound(err) {
			utils.JSONError(w, http.StatusNotFound, "chat not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !models.ValidRole(req.Role) {
		utils.JSONError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		utils.JSONError(w, http.StatusBadRequest, "content required")
		return
	}
	msg, err := store.InsertMessage(id, req.Role, req.Content)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("message_created", "chat", id, "id", msg.ID, "role", msg.Role)
	_ = utils.JSONWrite(w, http.StatusOK, msg)
}
