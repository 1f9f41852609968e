package models

import "time"

// CreateConversationRequest opens (or reuses) a direct or product
// conversation with another user and sends the first message.
type CreateConversationRequest struct {
	ReceiverID int64  `json:"receiverId"`
	ProductID  *int64 `json:"productId"`
	Body       string `json:"body"`
	Image      string `json:"image"`
}

// SendMessageRequest appends a message to an existing conversation.
type SendMessageRequest struct {
	Body  string `json:"body"`
	Image string `json:"image"`
}

// MessageResponse is a single chat message with its sender resolved.
type MessageResponse struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	SenderID       int64     `json:"senderId"`
	ReceiverID     *int64    `json:"receiverId,omitempty"`
	Body           string    `json:"body"`
	Image          string    `json:"image,omitempty"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
	SenderName     string    `json:"senderName"`
	SenderImage    string    `json:"senderImage"`
}

// ConversationResponse is a conversation summary for the caller's inbox.
// Name and Image are the other participant for direct conversations, the
// group's own name for group conversations, and the product title for
// product conversations.
type ConversationResponse struct {
	ID          int64            `json:"id"`
	Kind        string           `json:"kind"`
	Name        string           `json:"name"`
	Image       string           `json:"image"`
	CreatorID   int64            `json:"creatorId"`
	ProductID   *int64           `json:"productId,omitempty"`
	UnreadCount int              `json:"unreadCount"`
	LastMessage *MessageResponse `json:"lastMessage,omitempty"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// CreateGroupRequest creates a group conversation. MemberIDs must not
// include the creator, who is always added.
type CreateGroupRequest struct {
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	MemberIDs []int64 `json:"memberIds"`
}

// UpdateGroupRequest renames a group or replaces its image.
type UpdateGroupRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// GroupMemberRequest adds or removes a single member.
type GroupMemberRequest struct {
	UserID int64 `json:"userId"`
}

// GroupInfoResponse describes a group and its membership.
type GroupInfoResponse struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Image     string         `json:"image"`
	CreatorID int64          `json:"creatorId"`
	CreatedAt time.Time      `json:"createdAt"`
	Members   []UserResponse `json:"members"`
}
