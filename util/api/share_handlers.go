package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
)

// SharePostHandler records a share of a post by the caller. Shares are
// append-only; removing one goes through UnsharePostHandler.
func SharePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.SharePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
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

	if _, err := tx.Exec(
		`INSERT INTO post_shares (post_id, user_id) VALUES (?, ?)`, req.PostID, userID); err != nil {
		http.Error(w, "Failed to share post: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := tx.Exec(
		`UPDATE posts SET shares_count = shares_count + 1 WHERE id = ?`, req.PostID); err != nil {
		http.Error(w, "Failed to update counter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if postAuthorID != userID {
		insertNotification(postAuthorID, userID, "share")
	}

	var sharesCount int
	if err := database.DB.QueryRow(
		`SELECT shares_count FROM posts WHERE id = ?`, req.PostID).Scan(&sharesCount); err != nil {
		http.Error(w, "Failed to load counter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"shared":      true,
		"sharesCount": sharesCount,
	})
}

// UnsharePostHandler removes the caller's shares of a post. The post
// counter only drops by the number of rows that actually existed.
func UnsharePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	postID, err := strconv.ParseInt(r.PathValue("postID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		http.Error(w, "Failed to start transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`DELETE FROM post_shares WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		http.Error(w, "Failed to unshare post: "+err.Error(), http.StatusInternalServerError)
		return
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		if _, err := tx.Exec(
			`UPDATE posts SET shares_count = MAX(shares_count - ?, 0) WHERE id = ?`,
			removed, postID); err != nil {
			http.Error(w, "Failed to update counter: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var sharesCount int
	if err := database.DB.QueryRow(
		`SELECT shares_count FROM posts WHERE id = ?`, postID).Scan(&sharesCount); err != nil {
		http.Error(w, "Failed to load counter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed":     removed,
		"sharesCount": sharesCount,
	})
}

func querySharedPosts(where string, args ...interface{}) ([]models.SharedPostResponse, error) {
	rows, err := database.DB.Query(
		`SELECT s.id, s.user_id, s.created_at, s.post_id
		 FROM post_shares s
		 JOIN posts p ON p.id = s.post_id AND p.active = TRUE
		 WHERE `+where+` ORDER BY s.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type shareRow struct {
		share  models.SharedPostResponse
		postID int64
	}
	var raw []shareRow
	for rows.Next() {
		var sr shareRow
		if err := rows.Scan(&sr.share.ID, &sr.share.UserID, &sr.share.CreatedAt, &sr.postID); err != nil {
			return nil, err
		}
		raw = append(raw, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	shares := []models.SharedPostResponse{}
	for _, sr := range raw {
		post, err := loadPost(sr.postID)
		if err != nil {
			return nil, err
		}
		sr.share.Post = *post
		shares = append(shares, sr.share)
	}
	return shares, nil
}

// SharedByUserHandler lists the posts a user has shared.
func SharedByUserHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	targetID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	shares, err := querySharedPosts(`s.user_id = ?`, targetID)
	if err != nil {
		http.Error(w, "Failed to load shares: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

// SharesOfPostHandler lists who shared a post.
func SharesOfPostHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	postID, err := strconv.ParseInt(r.PathValue("postID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	users, err := queryUserList(
		`SELECT u.id, u.first_name, u.last_name,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM post_shares s
		 JOIN users u ON u.id = s.user_id
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE s.post_id = ?
		 ORDER BY s.created_at DESC`, postID)
	if err != nil {
		http.Error(w, "Failed to load shares: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
