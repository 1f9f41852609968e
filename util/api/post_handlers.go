package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
	"github.com/NajehRouin/Seekras-api/util"
)

const postSelect = `
	SELECT p.id, p.user_id, p.group_id, COALESCE(p.title, ''), p.content,
	       COALESCE(p.image, ''), p.visibility, p.likes_count, p.comments_count,
	       p.shares_count, p.created_at,
	       COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
	FROM posts p
	LEFT JOIN user_profiles up ON up.user_id = p.user_id`

// queryPosts runs the shared post projection with an extra WHERE
// clause, newest first.
func queryPosts(where string, args ...interface{}) ([]models.PostResponse, error) {
	rows, err := database.DB.Query(
		postSelect+" WHERE "+where+" ORDER BY p.created_at DESC, p.id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.PostResponse{}
	for rows.Next() {
		var p models.PostResponse
		if err := rows.Scan(&p.ID, &p.UserID, &p.GroupID, &p.Title, &p.Content,
			&p.Image, &p.Visibility, &p.LikesCount, &p.CommentsCount,
			&p.SharesCount, &p.CreatedAt, &p.AuthorName, &p.AuthorImage); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func loadPost(postID int64) (*models.PostResponse, error) {
	var p models.PostResponse
	err := database.DB.QueryRow(postSelect+" WHERE p.id = ? AND p.active = TRUE", postID).
		Scan(&p.ID, &p.UserID, &p.GroupID, &p.Title, &p.Content,
			&p.Image, &p.Visibility, &p.LikesCount, &p.CommentsCount,
			&p.SharesCount, &p.CreatedAt, &p.AuthorName, &p.AuthorImage)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePostHandler publishes a new post for the caller.
func CreatePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" && req.Image == "" {
		http.Error(w, "Post content cannot be empty", http.StatusBadRequest)
		return
	}
	switch req.Visibility {
	case "":
		req.Visibility = "public"
	case "public", "friends", "private":
	default:
		http.Error(w, "Invalid visibility", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	res, err := database.DB.Exec(
		`INSERT INTO posts (user_id, group_id, title, content, image, visibility, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, req.GroupID, req.Title, req.Content, req.Image, req.Visibility, now, now)
	if err != nil {
		http.Error(w, "Failed to create post: "+err.Error(), http.StatusInternalServerError)
		return
	}
	postID, err := res.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve post ID: "+err.Error(), http.StatusInternalServerError)
		return
	}

	post, err := loadPost(postID)
	if err != nil {
		http.Error(w, "Failed to load post: "+err.Error(), http.StatusInternalServerError)
		return
	}
	util.Logger.Info("post created", zap.Int64("postID", postID), zap.Int64("userID", userID))
	writeJSON(w, http.StatusCreated, post)
}

// GetPostsHandler returns the caller's feed: their own posts, public
// posts, and friends-only posts from their friends. Supports optional
// ?offset= and ?limit= query parameters for paging.
func GetPostsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	rows, err := database.DB.Query(postSelect+`
		WHERE p.active = TRUE AND (
			p.user_id = ?
			OR p.visibility = 'public'
			OR (p.visibility = 'friends' AND EXISTS(
				SELECT 1 FROM friends f WHERE f.user_id = ? AND f.friend_id = p.user_id))
		)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`,
		userID, userID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to load posts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	posts := []models.PostResponse{}
	for rows.Next() {
		var p models.PostResponse
		if err := rows.Scan(&p.ID, &p.UserID, &p.GroupID, &p.Title, &p.Content,
			&p.Image, &p.Visibility, &p.LikesCount, &p.CommentsCount,
			&p.SharesCount, &p.CreatedAt, &p.AuthorName, &p.AuthorImage); err != nil {
			http.Error(w, "Failed to load posts: "+err.Error(), http.StatusInternalServerError)
			return
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		http.Error(w, "Failed to load posts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// FilterPostHandler returns active posts whose author's first or last
// name contains the ?name= fragment; without a fragment it returns all
// active posts.
func FilterPostHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	var (
		posts []models.PostResponse
		err   error
	)
	if name == "" {
		posts, err = queryPosts(`p.active = TRUE`)
	} else {
		pattern := "%" + name + "%"
		posts, err = queryPosts(
			`p.active = TRUE AND p.user_id IN (
				SELECT u.id FROM users u
				WHERE u.active = TRUE AND (u.first_name LIKE ? OR u.last_name LIKE ?))`,
			pattern, pattern)
	}
	if err != nil {
		http.Error(w, "Failed to load posts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// PostByIDHandler returns one post by the ID carried in the body.
func PostByIDHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	var req struct {
		PostID int64 `json:"postId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PostID == 0 {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	post, err := loadPost(req.PostID)
	if err == sql.ErrNoRows {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load post: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// PostCurrentUserHandler returns the caller's own posts.
func PostCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	posts, err := queryPosts(`p.user_id = ? AND p.active = TRUE`, userID)
	if err != nil {
		http.Error(w, "Failed to load posts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// DeletePostHandler deactivates a post. Only its author may do this;
// the row stays so comment and share history keeps resolving.
func DeletePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req struct {
		PostID int64 `json:"postId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var authorID int64
	err := database.DB.QueryRow(
		`SELECT user_id FROM posts WHERE id = ? AND active = TRUE`, req.PostID).Scan(&authorID)
	if err == sql.ErrNoRows {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load post: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if authorID != userID {
		http.Error(w, "You can only delete your own posts", http.StatusForbidden)
		return
	}

	if _, err := database.DB.Exec(
		`UPDATE posts SET active = FALSE, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), req.PostID); err != nil {
		http.Error(w, "Failed to delete post: "+err.Error(), http.StatusInternalServerError)
		return
	}
	util.Logger.Info("post deactivated", zap.Int64("postID", req.PostID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted"})
}
