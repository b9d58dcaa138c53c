package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/models"
)

// UserServiceInterface defines the contract for account operations.
type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params models.UpdateProfileParams) (*models.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// AuthServiceInterface defines the contract for credentials and tokens.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	IssueToken(userID uuid.UUID) (string, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	RevokeToken(ctx context.Context, token string) error
}

// FriendServiceInterface defines the contract for the friendship graph.
type FriendServiceInterface interface {
	SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	RespondRequest(ctx context.Context, receiverID, senderID uuid.UUID, decision string) (*models.FriendRequest, error)
	DeleteFriend(ctx context.Context, userID, friendID uuid.UUID) error
	LabelFriend(ctx context.Context, userID, friendID uuid.UUID, label string) error
	ListFriends(ctx context.Context, userID uuid.UUID, label string) ([]models.FriendWithUser, error)
	ListRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithSender, error)
}

// GroupServiceInterface defines the contract for group membership and roles.
type GroupServiceInterface interface {
	Create(ctx context.Context, ownerID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Group, error)
	TransferMonitor(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error)
	AssignManager(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error)
	RemoveMember(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error)
	Withdraw(ctx context.Context, userID, groupID uuid.UUID) (*models.WithdrawResult, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.GroupSummary, error)
	Get(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupDetail, error)
}

type AnnouncementServiceInterface interface {
	Post(ctx context.Context, authorID, groupID uuid.UUID, content string) (*models.Announcement, error)
	List(ctx context.Context, userID, groupID uuid.UUID) ([]models.Announcement, error)
}

type InvitationServiceInterface interface {
	Invite(ctx context.Context, senderID, groupID, receiverID uuid.UUID) (*models.Invitation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error)
	Respond(ctx context.Context, userID, invitationID uuid.UUID, accept bool) (*models.Invitation, error)
}

type ConversationServiceInterface interface {
	Create(ctx context.Context, creatorID uuid.UUID, typ models.ConversationType, memberIDs []uuid.UUID) (*models.Conversation, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	Leave(ctx context.Context, userID, conversationID uuid.UUID) (bool, error)
}

type MessageServiceInterface interface {
	Post(ctx context.Context, params models.PostMessageParams) (*models.Message, error)
	List(ctx context.Context, params models.ListMessagesParams) (*models.MessagePage, error)
	MarkRead(ctx context.Context, userID, messageID uuid.UUID) error
	Delete(ctx context.Context, userID, messageID uuid.UUID) error
}

type BoardServiceInterface interface {
	Save(ctx context.Context, params models.SaveBoardParams) (*models.Board, bool, error)
	Get(ctx context.Context, boardID uuid.UUID) (*models.Board, error)
	Delete(ctx context.Context, userID, boardID uuid.UUID) error
	List(ctx context.Context) ([]models.Board, error)
	ListByUsername(ctx context.Context, username string) ([]models.Board, error)
}

var (
	_ UserServiceInterface         = (*UserService)(nil)
	_ AuthServiceInterface         = (*AuthService)(nil)
	_ FriendServiceInterface       = (*FriendService)(nil)
	_ GroupServiceInterface        = (*GroupService)(nil)
	_ AnnouncementServiceInterface = (*AnnouncementService)(nil)
	_ InvitationServiceInterface   = (*InvitationService)(nil)
	_ ConversationServiceInterface = (*ConversationService)(nil)
	_ MessageServiceInterface      = (*MessageService)(nil)
	_ BoardServiceInterface        = (*BoardService)(nil)
)
