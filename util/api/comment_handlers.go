package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
	"github.com/NajehRouin/Seekras-api/util"
)

// CommentPostHandler adds a comment or a reply. Replies can only
// target top-level comments, so threads never nest deeper than two
// levels.
func CommentPostHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Comment content cannot be empty", http.StatusBadRequest)
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

	if req.ParentCommentID != nil {
		var parentPostID int64
		var parentOfParent *int64
		err := database.DB.QueryRow(
			`SELECT post_id, parent_comment_id FROM post_comments WHERE id = ? AND active = TRUE`,
			*req.ParentCommentID).Scan(&parentPostID, &parentOfParent)
		if err == sql.ErrNoRows {
			http.Error(w, "Parent comment not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to load parent comment: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if parentPostID != req.PostID {
			http.Error(w, "Parent comment belongs to another post", http.StatusBadRequest)
			return
		}
		if parentOfParent != nil {
			http.Error(w, "Replies to replies are not allowed", http.StatusBadRequest)
			return
		}
	}

	tx, err := database.DB.Begin()
	if err != nil {
		http.Error(w, "Failed to start transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.Exec(
		`INSERT INTO post_comments (post_id, user_id, parent_comment_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		req.PostID, userID, req.ParentCommentID, req.Content, now)
	if err != nil {
		http.Error(w, "Failed to create comment: "+err.Error(), http.StatusInternalServerError)
		return
	}
	commentID, err := res.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve comment ID: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := tx.Exec(
		`UPDATE posts SET comments_count = comments_count + 1 WHERE id = ?`, req.PostID); err != nil {
		http.Error(w, "Failed to update counter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if postAuthorID != userID {
		insertNotification(postAuthorID, userID, "comment")
	}

	comment, err := loadComment(commentID)
	if err != nil {
		http.Error(w, "Failed to load comment: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func loadComment(commentID int64) (*models.CommentResponse, error) {
	var c models.CommentResponse
	err := database.DB.QueryRow(
		`SELECT c.id, c.post_id, c.user_id, c.parent_comment_id, c.content, c.created_at,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM post_comments c
		 LEFT JOIN user_profiles up ON up.user_id = c.user_id
		 WHERE c.id = ? AND c.active = TRUE`, commentID).
		Scan(&c.ID, &c.PostID, &c.UserID, &c.ParentCommentID, &c.Content, &c.CreatedAt,
			&c.AuthorName, &c.AuthorImage)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCommentHandler removes a comment and, for top-level comments,
// all of its replies. The post counter drops by the number of rows
// removed.
func DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	commentID, err := strconv.ParseInt(r.PathValue("commentID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	var postID, authorID int64
	err = database.DB.QueryRow(
		`SELECT post_id, user_id FROM post_comments WHERE id = ? AND active = TRUE`, commentID).
		Scan(&postID, &authorID)
	if err == sql.ErrNoRows {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load comment: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if authorID != userID {
		http.Error(w, "You can only delete your own comments", http.StatusForbidden)
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		http.Error(w, "Failed to start transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE post_comments SET active = FALSE
		 WHERE active = TRUE AND (id = ? OR parent_comment_id = ?)`,
		commentID, commentID)
	if err != nil {
		http.Error(w, "Failed to delete comment: "+err.Error(), http.StatusInternalServerError)
		return
	}
	removed, _ := res.RowsAffected()
	if _, err := tx.Exec(
		`UPDATE posts SET comments_count = MAX(comments_count - ?, 0) WHERE id = ?`,
		removed, postID); err != nil {
		http.Error(w, "Failed to update counter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	util.Logger.Info("comment removed",
		zap.Int64("commentID", commentID), zap.Int64("replies", removed-1))
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

// GetCommentsHandler returns a post's top-level comments with their
// replies nested, oldest first.
func GetCommentsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	postID, err := strconv.ParseInt(r.PathValue("postID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	rows, err := database.DB.Query(
		`SELECT c.id, c.post_id, c.user_id, c.parent_comment_id, c.content, c.created_at,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM post_comments c
		 LEFT JOIN user_profiles up ON up.user_id = c.user_id
		 WHERE c.post_id = ? AND c.active = TRUE
		 ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		http.Error(w, "Failed to load comments: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	topLevel := []models.CommentResponse{}
	index := map[int64]int{}
	var replies []models.CommentResponse
	for rows.Next() {
		var c models.CommentResponse
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.ParentCommentID, &c.Content,
			&c.CreatedAt, &c.AuthorName, &c.AuthorImage); err != nil {
			http.Error(w, "Failed to scan comment: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if c.ParentCommentID == nil {
			index[c.ID] = len(topLevel)
			topLevel = append(topLevel, c)
		} else {
			replies = append(replies, c)
		}
	}
	if err := rows.Err(); err != nil {
		http.Error(w, "Failed to read comments: "+err.Error(), http.StatusInternalServerError)
		return
	}
	for _, reply := range replies {
		if i, ok := index[*reply.ParentCommentID]; ok {
			topLevel[i].Replies = append(topLevel[i].Replies, reply)
		}
	}
	writeJSON(w, http.StatusOK, topLevel)
}
