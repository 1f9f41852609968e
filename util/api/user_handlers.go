package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
)

// relationFlags resolves how the viewer relates to another user:
// following them, already friends, or with a pending request sent.
func relationFlags(viewerID, otherID int64) (following, friends, sent bool, err error) {
	err = database.DB.QueryRow(
		`SELECT
			EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND followed_id = ?),
			EXISTS(SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?),
			EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = ? AND target_id = ?)`,
		viewerID, otherID, viewerID, otherID, viewerID, otherID).
		Scan(&following, &friends, &sent)
	return
}

// AllUsersHandler lists every other active user with relationship flags.
func AllUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	rows, err := database.DB.Query(
		`SELECT u.id, u.first_name, u.last_name,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, ''),
		        EXISTS(SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.followed_id = u.id),
		        EXISTS(SELECT 1 FROM friends fr WHERE fr.user_id = ? AND fr.friend_id = u.id),
		        EXISTS(SELECT 1 FROM friend_requests rq WHERE rq.sender_id = ? AND rq.target_id = u.id)
		 FROM users u
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE u.id != ? AND u.active = TRUE
		 ORDER BY up.full_name`,
		userID, userID, userID, userID)
	if err != nil {
		http.Error(w, "Failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	users := []models.RelationUser{}
	for rows.Next() {
		var u models.RelationUser
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.FullName, &u.ProfileImage,
			&u.IsFollowing, &u.IsAccepte, &u.IsSent); err != nil {
			http.Error(w, "Failed to scan user: "+err.Error(), http.StatusInternalServerError)
			return
		}
		users = append(users, u)
	}
	writeJSON(w, http.StatusOK, users)
}

// FindAllUsersHandler searches users by name, excluding the caller.
// An empty query returns everyone, which the chat screens use to pick
// a recipient.
func FindAllUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")

	rows, err := database.DB.Query(
		`SELECT u.id, u.first_name, u.last_name,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM users u
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE u.id != ? AND u.active = TRUE
		   AND (? = '' OR up.full_name LIKE '%' || ? || '%'
		        OR u.first_name LIKE '%' || ? || '%'
		        OR u.last_name LIKE '%' || ? || '%')
		 ORDER BY up.full_name`,
		userID, q, q, q, q)
	if err != nil {
		http.Error(w, "Failed to search users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	users := []models.UserResponse{}
	for rows.Next() {
		var u models.UserResponse
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.FullName, &u.ProfileImage); err != nil {
			http.Error(w, "Failed to scan user: "+err.Error(), http.StatusInternalServerError)
			return
		}
		users = append(users, u)
	}
	writeJSON(w, http.StatusOK, users)
}

// FindUserByIDHandler returns one user's public display fields.
func FindUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	targetID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	user, err := loadUser(targetID, false)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// FindUserHandler builds a profile page: the user, the viewer's
// relationship flags, and the user's active posts.
func FindUserHandler(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	targetID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	user, err := loadUser(targetID, false)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	following, friends, sent, err := relationFlags(viewerID, targetID)
	if err != nil {
		http.Error(w, "Failed to load relationship: "+err.Error(), http.StatusInternalServerError)
		return
	}
	posts, err := queryPosts(`p.user_id = ? AND p.active = TRUE`, targetID)
	if err != nil {
		http.Error(w, "Failed to load posts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.FindUserResponse{
		User:        *user,
		IsFollowing: following,
		IsAccepte:   friends,
		IsSent:      sent,
		Posts:       posts,
	})
}

// SuggestedHandler lists users the caller is not yet connected to:
// no friendship, no follow edge, no pending request in either
// direction.
func SuggestedHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	rows, err := database.DB.Query(
		`SELECT u.id, u.first_name, u.last_name,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM users u
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE u.id != ? AND u.active = TRUE
		   AND NOT EXISTS(SELECT 1 FROM friends f WHERE f.user_id = ? AND f.friend_id = u.id)
		   AND NOT EXISTS(SELECT 1 FROM follows fo
		                  WHERE (fo.follower_id = ? AND fo.followed_id = u.id)
		                     OR (fo.follower_id = u.id AND fo.followed_id = ?))
		   AND NOT EXISTS(SELECT 1 FROM friend_requests rq
		                  WHERE (rq.sender_id = ? AND rq.target_id = u.id)
		                     OR (rq.sender_id = u.id AND rq.target_id = ?))
		 ORDER BY up.full_name`,
		userID, userID, userID, userID, userID, userID)
	if err != nil {
		http.Error(w, "Failed to load suggestions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	users := []models.UserResponse{}
	for rows.Next() {
		var u models.UserResponse
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.FullName, &u.ProfileImage); err != nil {
			http.Error(w, "Failed to scan user: "+err.Error(), http.StatusInternalServerError)
			return
		}
		users = append(users, u)
	}
	writeJSON(w, http.StatusOK, users)
}
