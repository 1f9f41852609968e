package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/NajehRouin/Seekras-api/chat"
	"github.com/NajehRouin/Seekras-api/models"
)

// CreateConversationHandler opens (or reuses) the direct conversation
// with the receiver and sends the first message.
func CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	convID, _, err := chatSvc.GetOrCreate(chat.KindDirect, userID, req.ReceiverID, nil)
	if err != nil {
		writeChatError(w, err)
		return
	}
	msg, err := chatSvc.Append(convID, userID, req.Body, req.Image)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"conversationId": convID,
		"message":        msg,
	})
}

func conversationIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("conversationID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// SendMessageHandler appends a message to a conversation.
func SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	convID, ok := conversationIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	msg, err := chatSvc.Append(convID, userID, req.Body, req.Image)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// MarkConversationReadHandler zeroes the caller's unread counter.
func MarkConversationReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	convID, ok := conversationIDFromPath(w, r)
	if !ok {
		return
	}
	if err := chatSvc.MarkRead(convID, userID); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation marked as read"})
}

// ListConversationsHandler returns the caller's direct inbox.
func ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	list, err := chatSvc.ListForUser(userID, chat.KindDirect)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ConversationMessagesHandler returns a conversation's messages.
func ConversationMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	convID, ok := conversationIDFromPath(w, r)
	if !ok {
		return
	}
	msgs, err := chatSvc.Messages(convID, userID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
