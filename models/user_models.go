package models

import "time"

// UserResponse is the public shape of a user with the profile fields that
// every listing resolves (full name + profile image).
type UserResponse struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email,omitempty"`
	FullName     string `json:"fullName"`
	ProfileImage string `json:"profileImage"`
}

// Profile represents a row of the user_profiles table.
type Profile struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId"`
	FullName     string `json:"fullName"`
	ProfileImage string `json:"profileImage"`
	CoverImage   string `json:"coverImage"`
	Bio          string `json:"bio"`
	City         string `json:"city"`
	PhoneNumber  string `json:"phoneNumber"`
	Gender       string `json:"gender"`
	ProfilPublic bool   `json:"profilPublic"`
}

// RelationUser decorates a user with the relationship flags the frontend
// shows next to follow/friend buttons.
type RelationUser struct {
	UserResponse
	IsFollowing bool `json:"isFollowing"`
	IsAccepte   bool `json:"isAccepte"`
	IsSent      bool `json:"isSent"`
}

// FindUserResponse is the profile-page payload: the user, the viewer's
// relationship to them, and their active posts.
type FindUserResponse struct {
	User        UserResponse   `json:"user"`
	IsFollowing bool           `json:"isFollowing"`
	IsAccepte   bool           `json:"isAccepte"`
	IsSent      bool           `json:"isSent"`
	Posts       []PostResponse `json:"posts"`
}

// OnlineFriend is a friend currently registered in the presence table.
type OnlineFriend struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"firstName"`
	FullName     string `json:"fullName"`
	ProfileImage string `json:"profileImage"`
	Status       bool   `json:"status"`
}

// Notification represents a row of the notifications table.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipientId"`
	SenderID    int64     `json:"senderId"`
	Type        string    `json:"type"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}
