package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
	"github.com/NajehRouin/Seekras-api/util"
)

func queryUserList(query string, args ...interface{}) ([]models.UserResponse, error) {
	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.UserResponse{}
	for rows.Next() {
		var u models.UserResponse
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.FullName, &u.ProfileImage); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const friendListQuery = `
	SELECT u.id, u.first_name, u.last_name,
	       COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
	FROM friends f
	JOIN users u ON u.id = f.friend_id
	LEFT JOIN user_profiles up ON up.user_id = u.id
	WHERE f.user_id = ? AND u.active = TRUE
	ORDER BY up.full_name`

// FriendsHandler lists the caller's friends.
func FriendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	users, err := queryUserList(friendListQuery, userID)
	if err != nil {
		http.Error(w, "Failed to load friends: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// OnlineFriendsHandler lists the caller's friends that currently hold
// a live websocket connection.
func OnlineFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	users, err := queryUserList(friendListQuery, userID)
	if err != nil {
		http.Error(w, "Failed to load friends: "+err.Error(), http.StatusInternalServerError)
		return
	}

	online := []models.OnlineFriend{}
	for _, u := range users {
		if hub.IsUserOnline(u.ID) {
			online = append(online, models.OnlineFriend{
				ID:           u.ID,
				FirstName:    u.FirstName,
				FullName:     u.FullName,
				ProfileImage: u.ProfileImage,
				Status:       true,
			})
		}
	}
	writeJSON(w, http.StatusOK, online)
}

const followingQuery = `
	SELECT u.id, u.first_name, u.last_name,
	       COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
	FROM follows f
	JOIN users u ON u.id = f.followed_id
	LEFT JOIN user_profiles up ON up.user_id = u.id
	WHERE f.follower_id = ? AND u.active = TRUE
	ORDER BY up.full_name`

const followersQuery = `
	SELECT u.id, u.first_name, u.last_name,
	       COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
	FROM follows f
	JOIN users u ON u.id = f.follower_id
	LEFT JOIN user_profiles up ON up.user_id = u.id
	WHERE f.followed_id = ? AND u.active = TRUE
	ORDER BY up.full_name`

// FollowingHandler lists the users the caller follows.
func FollowingHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	users, err := queryUserList(followingQuery, userID)
	if err != nil {
		http.Error(w, "Failed to load following: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// FollowersHandler lists the users following the caller.
func FollowersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	users, err := queryUserList(followersQuery, userID)
	if err != nil {
		http.Error(w, "Failed to load followers: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// FollowingByUserHandler lists who a given user follows.
func FollowingByUserHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	targetID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	users, err := queryUserList(followingQuery, targetID)
	if err != nil {
		http.Error(w, "Failed to load following: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// FollowersByUserHandler lists a given user's followers.
func FollowersByUserHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	targetID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	users, err := queryUserList(followersQuery, targetID)
	if err != nil {
		http.Error(w, "Failed to load followers: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// insertNotification records a notification and pushes it live when
// the recipient is connected.
func insertNotification(recipientID, senderID int64, notifType string) {
	res, err := database.DB.Exec(
		`INSERT INTO notifications (recipient_id, sender_id, type, created_at) VALUES (?, ?, ?, ?)`,
		recipientID, senderID, notifType, time.Now().UTC())
	if err != nil {
		util.Logger.Error("notification insert failed",
			zap.Int64("recipientID", recipientID), zap.Error(err))
		return
	}
	id, _ := res.LastInsertId()
	hub.ToUser(recipientID, "notification", models.Notification{
		ID:          id,
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        notifType,
		CreatedAt:   time.Now().UTC(),
	})
}

// befriend writes the mirrored friendship rows plus the requester's
// follow edge inside one transaction. Any pending requests between the
// two users, in either direction, are cleared at the same time.
func befriend(senderID, targetID int64) error {
	tx, err := database.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, pair := range [][2]int64{{senderID, targetID}, {targetID, senderID}} {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO friends (user_id, friend_id) VALUES (?, ?)`,
			pair[0], pair[1]); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO follows (follower_id, followed_id) VALUES (?, ?)`,
		senderID, targetID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM friend_requests
		 WHERE (sender_id = ? AND target_id = ?) OR (sender_id = ? AND target_id = ?)`,
		senderID, targetID, targetID, senderID); err != nil {
		return err
	}
	return tx.Commit()
}

// FriendRequestHandler sends a friend request. Public profiles accept
// immediately; private profiles get a pending request and a
// notification.
func FriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	senderID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	targetID, err := strconv.ParseInt(r.PathValue("targetID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if targetID == senderID {
		http.Error(w, "You cannot befriend yourself", http.StatusBadRequest)
		return
	}

	var alreadyFriends bool
	var isPublic bool
	err = database.DB.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?),
		        COALESCE((SELECT profil_public FROM user_profiles WHERE user_id = ?), FALSE)`,
		senderID, targetID, targetID).Scan(&alreadyFriends, &isPublic)
	if err != nil {
		http.Error(w, "Failed to load target: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if alreadyFriends {
		http.Error(w, "Already friends", http.StatusConflict)
		return
	}

	// Public profiles accept on the spot, without a notification.
	if isPublic {
		if err := befriend(senderID, targetID); err != nil {
			http.Error(w, "Failed to create friendship: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"accepted": true})
		return
	}

	_, err = database.DB.Exec(
		`INSERT INTO friend_requests (sender_id, target_id) VALUES (?, ?)`,
		senderID, targetID)
	if err != nil {
		http.Error(w, "Friend request already sent", http.StatusConflict)
		return
	}
	insertNotification(targetID, senderID, "friend_request")
	writeJSON(w, http.StatusOK, map[string]interface{}{"accepted": false, "pending": true})
}

// AcceptFriendHandler accepts a pending request from senderID.
func AcceptFriendHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	senderID, err := strconv.ParseInt(r.PathValue("senderID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(
		`DELETE FROM friend_requests WHERE sender_id = ? AND target_id = ?`,
		senderID, userID)
	if err != nil {
		http.Error(w, "Failed to resolve request: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "No pending request from that user", http.StatusNotFound)
		return
	}

	if err := befriend(senderID, userID); err != nil {
		http.Error(w, "Failed to create friendship: "+err.Error(), http.StatusInternalServerError)
		return
	}
	insertNotification(senderID, userID, "friend_accept")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Friend request accepted"})
}

// CancelFriendHandler withdraws a request the caller sent, or removes
// an existing friendship when no request is pending.
func CancelFriendHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	friendID, err := strconv.ParseInt(r.PathValue("friendID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(
		`DELETE FROM friend_requests WHERE sender_id = ? AND target_id = ?`,
		userID, friendID)
	if err != nil {
		http.Error(w, "Failed to cancel request: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Friend request cancelled"})
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		http.Error(w, "Failed to start transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	unfriended := int64(0)
	for _, pair := range [][2]int64{{userID, friendID}, {friendID, userID}} {
		res, err := tx.Exec(
			`DELETE FROM friends WHERE user_id = ? AND friend_id = ?`, pair[0], pair[1])
		if err != nil {
			http.Error(w, "Failed to remove friendship: "+err.Error(), http.StatusInternalServerError)
			return
		}
		n, _ := res.RowsAffected()
		unfriended += n
	}
	if unfriended == 0 {
		http.Error(w, "No request or friendship with that user", http.StatusNotFound)
		return
	}
	if _, err := tx.Exec(
		`DELETE FROM follows WHERE (follower_id = ? AND followed_id = ?) OR (follower_id = ? AND followed_id = ?)`,
		userID, friendID, friendID, userID); err != nil {
		http.Error(w, "Failed to remove follows: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Friend removed"})
}
