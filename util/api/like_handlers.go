package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
)

// LikePostHandler toggles the caller's reaction on a post. A second
// call removes the like and restores the counter.
func LikePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.LikePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Reaction == "" {
		req.Reaction = "like"
	}

	var postAuthorID int64
	err := database.DB.QueryRow(
		`SELECT user_id FROM posts WHERE id = ? AND active = TRUE`, req.PostID).Scan(&postAuthorID)
	if err == sql.ErrNoRows {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load post: "+err.Error(), http.StatusInternalServerError)
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		http.Error(w, "Failed to start transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, req.PostID, userID)
	if err != nil {
		http.Error(w, "Failed to toggle like: "+err.Error(), http.StatusInternalServerError)
		return
	}
	removed, _ := res.RowsAffected()

	liked := false
	if removed == 0 {
		if _, err := tx.Exec(
			`INSERT INTO post_likes (post_id, user_id, reaction) VALUES (?, ?, ?)`,
			req.PostID, userID, req.Reaction); err != nil {
			http.Error(w, "Failed to like post: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := tx.Exec(
			`UPDATE posts SET likes_count = likes_count + 1 WHERE id = ?`, req.PostID); err != nil {
			http.Error(w, "Failed to update counter: "+err.Error(), http.StatusInternalServerError)
			return
		}
		liked = true
	} else {
		if _, err := tx.Exec(
			`UPDATE posts SET likes_count = MAX(likes_count - 1, 0) WHERE id = ?`, req.PostID); err != nil {
			http.Error(w, "Failed to update counter: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if liked && postAuthorID != userID {
		insertNotification(postAuthorID, userID, "like")
	}

	var likesCount int
	if err := database.DB.QueryRow(
		`SELECT likes_count FROM posts WHERE id = ?`, req.PostID).Scan(&likesCount); err != nil {
		http.Error(w, "Failed to load counter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"liked":      liked,
		"likesCount": likesCount,
	})
}

// GetLikesHandler lists the users that liked a post.
func GetLikesHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	postID, err := strconv.ParseInt(r.PathValue("postID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	rows, err := database.DB.Query(
		`SELECT l.id, l.post_id, l.user_id, COALESCE(l.reaction, 'like'),
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, ''), l.created_at
		 FROM post_likes l
		 LEFT JOIN user_profiles up ON up.user_id = l.user_id
		 WHERE l.post_id = ?
		 ORDER BY l.created_at DESC`, postID)
	if err != nil {
		http.Error(w, "Failed to load likes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	likes := []models.LikeResponse{}
	for rows.Next() {
		var l models.LikeResponse
		if err := rows.Scan(&l.ID, &l.PostID, &l.UserID, &l.Reaction,
			&l.FullName, &l.ProfileImage, &l.CreatedAt); err != nil {
			http.Error(w, "Failed to scan like: "+err.Error(), http.StatusInternalServerError)
			return
		}
		likes = append(likes, l)
	}
	writeJSON(w, http.StatusOK, likes)
}
