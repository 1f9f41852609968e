package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/NajehRouin/Seekras-api/chat"
	"github.com/NajehRouin/Seekras-api/models"
)

func groupIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("groupeID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// CreateGroupHandler creates a group chat with the caller and the
// listed members.
func CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	info, err := chatSvc.CreateGroup(userID, req.Name, req.Image, req.MemberIDs)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// AllGroupsHandler returns the caller's group chats.
func AllGroupsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	list, err := chatSvc.ListForUser(userID, chat.KindGroup)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GroupMessagesHandler returns a group's messages.
func GroupMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}
	msgs, err := chatSvc.Messages(groupID, userID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// SendGroupMessageHandler appends a message to a group.
func SendGroupMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	msg, err := chatSvc.Append(groupID, userID, req.Body, req.Image)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// MarkGroupReadHandler zeroes the caller's unread counter for a group.
func MarkGroupReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}
	if err := chatSvc.MarkRead(groupID, userID); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Group marked as read"})
}

// GroupInfoHandler returns a group's metadata and member list.
func GroupInfoHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}
	info, err := chatSvc.GroupInfo(groupID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// UpdateGroupHandler renames a group or changes its image.
func UpdateGroupHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := chatSvc.UpdateGroup(groupID, userID, req.Name, req.Image); err != nil {
		writeChatError(w, err)
		return
	}
	info, err := chatSvc.GroupInfo(groupID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// AddGroupMemberHandler invites a user into a group.
func AddGroupMemberHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := chatSvc.AddMember(groupID, userID, req.UserID); err != nil {
		writeChatError(w, err)
		return
	}
	insertNotification(req.UserID, userID, "group_invite")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Member added"})
}

// RemoveGroupMemberHandler removes a member from a group.
func RemoveGroupMemberHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}

	var req models.GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := chatSvc.RemoveMember(groupID, userID, req.UserID); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
}

// GroupCandidatesHandler lists active users who are not yet in the
// group, so the client can offer them as invitees.
func GroupCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}
	if _, err := chatSvc.GroupInfo(groupID); err != nil {
		writeChatError(w, err)
		return
	}
	users, err := queryUserList(
		`SELECT u.id, u.first_name, u.last_name,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM users u
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE u.active = TRUE AND NOT EXISTS(
			SELECT 1 FROM conversation_participants cp
			WHERE cp.conversation_id = ? AND cp.user_id = u.id)
		 ORDER BY u.id`, groupID)
	if err != nil {
		http.Error(w, "Failed to load users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
