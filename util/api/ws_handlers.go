package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/chat"
	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/realtime"
	"github.com/NajehRouin/Seekras-api/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev (restrict in production)
	},
}

// wsUserID resolves the connecting user. Browsers cannot set headers
// on websocket requests, so the token travels as a query parameter;
// the legacy userId parameter is still honored for old clients.
func wsUserID(r *http.Request) int64 {
	if token := r.URL.Query().Get("token"); token != "" {
		if userID, err := util.ParseToken(token); err == nil {
			return userID
		}
	}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		if userID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return userID
		}
	}
	return 0
}

// WebSocketHandler upgrades the connection, registers it with the hub
// and processes join requests until the client disconnects.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	userID := wsUserID(r)
	if userID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client := hub.Add(userID, conn)
	defer hub.Remove(client)

	util.Logger.Info("websocket connected", zap.Int64("userID", userID))
	defer util.Logger.Info("websocket disconnected", zap.Int64("userID", userID))

	for {
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		switch ev.Type {
		case "joinConversations", "joinGroupe", "joinchatProduct":
			joinConversationRoom(client, userID, ev.Data)
		}
	}
}

// joinConversationRoom subscribes the connection to a conversation's
// room after checking the user really participates in it.
func joinConversationRoom(client *realtime.Client, userID int64, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	var req struct {
		ConversationID int64 `json:"conversationId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil || req.ConversationID == 0 {
		return
	}

	var one int
	err = database.DB.QueryRow(
		`SELECT 1 FROM conversation_participants WHERE conversation_id = ? AND user_id = ?`,
		req.ConversationID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		util.Logger.Error("room membership check failed",
			zap.Int64("conversationID", req.ConversationID), zap.Error(err))
		return
	}
	hub.Join(client, chat.Room(req.ConversationID))
}
