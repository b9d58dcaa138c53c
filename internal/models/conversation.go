package models

import (
	"time"

	"github.com/google/uuid"
)

type ConversationType string

const (
	PrivateChat ConversationType = "private_chat"
	GroupChat   ConversationType = "group_chat"
)

func (t ConversationType) Valid() bool {
	return t == PrivateChat || t == GroupChat
}

// AcceptsMemberCount reports whether n distinct members fit the type:
// exactly two for a private chat, three or more for a group chat.
func (t ConversationType) AcceptsMemberCount(n int) bool {
	switch t {
	case PrivateChat:
		return n == 2
	case GroupChat:
		return n >= 3
	default:
		return false
	}
}

type Conversation struct {
	ID        uuid.UUID        `json:"id"`
	Type      ConversationType `json:"type"`
	MemberIDs []uuid.UUID      `json:"members"`
	CreatedAt time.Time        `json:"createdAt"`
}

const MaxMessageLength = 4000

type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversation"`
	SenderID       *uuid.UUID  `json:"sender"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"timestamp"`
	ReplyToID      *uuid.UUID  `json:"replyTo,omitempty"`
	ResponseCount  int         `json:"responseCount"`
	AlreadyRead    []uuid.UUID `json:"alreadyRead"`
	Receivers      []uuid.UUID `json:"receivers"`
}

type PostMessageParams struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	ReplyToID      *uuid.UUID
}

type ListMessagesParams struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	After          *time.Time
	Limit          int
}

type MessagePage struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
}
