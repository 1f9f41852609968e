package api

import (
	"encoding/json"
	"net/http"

	"github.com/NajehRouin/Seekras-api/chat"
	"github.com/NajehRouin/Seekras-api/models"
)

// CreateProductConversationHandler opens (or reuses) the conversation
// about a product between a buyer and its seller and sends the first
// message.
func CreateProductConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ProductID == nil {
		http.Error(w, "productId is required", http.StatusBadRequest)
		return
	}

	convID, _, err := chatSvc.GetOrCreate(chat.KindProduct, userID, req.ReceiverID, req.ProductID)
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

// ListProductConversationsHandler returns the caller's product chats.
func ListProductConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	list, err := chatSvc.ListForUser(userID, chat.KindProduct)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
