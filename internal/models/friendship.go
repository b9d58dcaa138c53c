package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// DecisionAccept is the only response value that accepts a friend request.
// Anything else rejects it.
const DecisionAccept = "Accept"

// Friendship is one directed edge; accepted requests always produce both
// directions together.
type Friendship struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userid"`
	FriendID  uuid.UUID `json:"friendId"`
	Labels    []string  `json:"labels"`
	CreatedAt time.Time `json:"createdAt"`
}

type FriendWithUser struct {
	Friendship
	FriendUsername string `json:"username"`
}

type FriendRequest struct {
	ID          uuid.UUID           `json:"id"`
	SenderID    uuid.UUID           `json:"senderId"`
	ReceiverID  uuid.UUID           `json:"receiverId"`
	Status      FriendRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	RespondedAt *time.Time          `json:"respondedAt,omitempty"`
}

type FriendRequestWithSender struct {
	FriendRequest
	SenderUsername string `json:"senderName"`
}
