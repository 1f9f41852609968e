package models

import "time"

// CreatePostRequest defines the structure for creating a new post.
type CreatePostRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Image      string `json:"image"`
	Visibility string `json:"visibility"`
	GroupID    *int64 `json:"groupId"`
}

// PostResponse defines the structure for a post returned by the API.
type PostResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	GroupID       *int64    `json:"groupId,omitempty"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Image         string    `json:"image"`
	Visibility    string    `json:"visibility"`
	LikesCount    int       `json:"likesCount"`
	CommentsCount int       `json:"commentsCount"`
	SharesCount   int       `json:"sharesCount"`
	CreatedAt     time.Time `json:"createdAt"`
	AuthorName    string    `json:"authorName"`
	AuthorImage   string    `json:"authorImage"`
}

// LikePostRequest toggles the caller's reaction on a post.
type LikePostRequest struct {
	PostID   int64  `json:"postId"`
	Reaction string `json:"reaction"`
}

// LikeResponse describes a single like row with its author resolved.
type LikeResponse struct {
	ID           int64     `json:"id"`
	PostID       int64     `json:"postId"`
	UserID       int64     `json:"userId"`
	Reaction     string    `json:"reaction"`
	FullName     string    `json:"fullName"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateCommentRequest defines the structure for creating a new comment.
// ParentCommentID is nil for top-level comments.
type CreateCommentRequest struct {
	PostID          int64  `json:"postId"`
	ParentCommentID *int64 `json:"parentCommentId"`
	Content         string `json:"content"`
}

// CommentResponse defines the structure for a comment returned by the API.
// Replies is only populated on top-level comments.
type CommentResponse struct {
	ID              int64             `json:"id"`
	PostID          int64             `json:"postId"`
	UserID          int64             `json:"userId"`
	ParentCommentID *int64            `json:"parentCommentId,omitempty"`
	Content         string            `json:"content"`
	CreatedAt       time.Time         `json:"createdAt"`
	AuthorName      string            `json:"authorName"`
	AuthorImage     string            `json:"authorImage"`
	Replies         []CommentResponse `json:"replies,omitempty"`
}

// SharePostRequest appends a share record for the caller.
type SharePostRequest struct {
	PostID int64 `json:"postId"`
}

// SharedPostResponse is a share row with the shared post resolved.
type SharedPostResponse struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"userId"`
	CreatedAt time.Time    `json:"createdAt"`
	Post      PostResponse `json:"post"`
}
