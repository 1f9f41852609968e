package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/chat"
	"github.com/NajehRouin/Seekras-api/middleware"
	"github.com/NajehRouin/Seekras-api/realtime"
	"github.com/NajehRouin/Seekras-api/util"
)

// Package-level dependencies, wired once from main before the server
// starts serving.
var (
	hub     *realtime.Hub
	chatSvc *chat.Service
)

// Init wires the realtime hub and chat service into the handlers.
func Init(h *realtime.Hub, c *chat.Service) {
	hub = h
	chatSvc = c
}

// currentUserID pulls the authenticated user out of the request
// context. The auth middleware guarantees it is set on protected
// routes.
func currentUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok || userID == 0 {
		http.Error(w, "Unauthorized: User ID not found in request context.", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		util.Logger.Error("encoding response failed", zap.Error(err))
	}
}

// writeChatError maps the chat package's sentinel errors onto HTTP
// status codes.
func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		http.Error(w, "Conversation not found", http.StatusNotFound)
	case errors.Is(err, chat.ErrUnauthorized):
		http.Error(w, "You are not a participant of this conversation", http.StatusForbidden)
	case errors.Is(err, chat.ErrSelfConversation):
		http.Error(w, "You cannot start a conversation with yourself", http.StatusBadRequest)
	case errors.Is(err, chat.ErrInvalidOperation):
		http.Error(w, "Invalid request", http.StatusBadRequest)
	default:
		util.Logger.Error("chat operation failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
