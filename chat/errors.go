package chat

import "errors"

var (
	// ErrNotFound means the conversation, message or user does not exist.
	ErrNotFound = errors.New("chat: not found")
	// ErrUnauthorized means the caller is not a participant of the
	// conversation, or lacks the role the operation requires.
	ErrUnauthorized = errors.New("chat: not a participant")
	// ErrSelfConversation means a user tried to open a conversation
	// with themselves.
	ErrSelfConversation = errors.New("chat: cannot message yourself")
	// ErrInvalidOperation covers malformed requests such as adding a
	// member twice or an empty message.
	ErrInvalidOperation = errors.New("chat: invalid operation")
)
