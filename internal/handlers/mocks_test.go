package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HammerMeetNail/circleboard/internal/models"
)

type mockUserService struct {
	CreateFunc        func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
	UpdateProfileFunc func(ctx context.Context, userID uuid.UUID, params models.UpdateProfileParams) (*models.User, error)
	DeleteFunc        func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, params models.UpdateProfileParams) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, params)
	}
	return nil, nil
}

func (m *mockUserService) Delete(ctx context.Context, userID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return nil
}

type mockAuthService struct {
	HashPasswordFunc   func(password string) (string, error)
	VerifyPasswordFunc func(hash, password string) bool
	IssueTokenFunc     func(userID uuid.UUID) (string, error)
	AuthenticateFunc   func(ctx context.Context, token string) (*models.User, error)
	RevokeTokenFunc    func(ctx context.Context, token string) error
}

func (m *mockAuthService) HashPassword(password string) (string, error) {
	if m.HashPasswordFunc != nil {
		return m.HashPasswordFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockAuthService) VerifyPassword(hash, password string) bool {
	if m.VerifyPasswordFunc != nil {
		return m.VerifyPasswordFunc(hash, password)
	}
	return hash == "hashed_"+password
}

func (m *mockAuthService) IssueToken(userID uuid.UUID) (string, error) {
	if m.IssueTokenFunc != nil {
		return m.IssueTokenFunc(userID)
	}
	return "token-" + userID.String(), nil
}

func (m *mockAuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, token)
	}
	return nil, nil
}

func (m *mockAuthService) RevokeToken(ctx context.Context, token string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, token)
	}
	return nil
}

type mockFriendService struct {
	SendRequestFunc    func(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	RespondRequestFunc func(ctx context.Context, receiverID, senderID uuid.UUID, decision string) (*models.FriendRequest, error)
	DeleteFriendFunc   func(ctx context.Context, userID, friendID uuid.UUID) error
	LabelFriendFunc    func(ctx context.Context, userID, friendID uuid.UUID, label string) error
	ListFriendsFunc    func(ctx context.Context, userID uuid.UUID, label string) ([]models.FriendWithUser, error)
	ListRequestsFunc   func(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithSender, error)
}

func (m *mockFriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, senderID, receiverID)
	}
	return nil, nil
}

func (m *mockFriendService) RespondRequest(ctx context.Context, receiverID, senderID uuid.UUID, decision string) (*models.FriendRequest, error) {
	if m.RespondRequestFunc != nil {
		return m.RespondRequestFunc(ctx, receiverID, senderID, decision)
	}
	return nil, nil
}

func (m *mockFriendService) DeleteFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	if m.DeleteFriendFunc != nil {
		return m.DeleteFriendFunc(ctx, userID, friendID)
	}
	return nil
}

func (m *mockFriendService) LabelFriend(ctx context.Context, userID, friendID uuid.UUID, label string) error {
	if m.LabelFriendFunc != nil {
		return m.LabelFriendFunc(ctx, userID, friendID, label)
	}
	return nil
}

func (m *mockFriendService) ListFriends(ctx context.Context, userID uuid.UUID, label string) ([]models.FriendWithUser, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, userID, label)
	}
	return nil, nil
}

func (m *mockFriendService) ListRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithSender, error) {
	if m.ListRequestsFunc != nil {
		return m.ListRequestsFunc(ctx, userID)
	}
	return nil, nil
}

type mockGroupService struct {
	CreateFunc          func(ctx context.Context, ownerID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Group, error)
	TransferMonitorFunc func(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error)
	AssignManagerFunc   func(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error)
	RemoveMemberFunc    func(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error)
	WithdrawFunc        func(ctx context.Context, userID, groupID uuid.UUID) (*models.WithdrawResult, error)
	ListFunc            func(ctx context.Context, userID uuid.UUID) ([]models.GroupSummary, error)
	GetFunc             func(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupDetail, error)
}

func (m *mockGroupService) Create(ctx context.Context, ownerID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Group, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ownerID, name, memberIDs)
	}
	return nil, nil
}

func (m *mockGroupService) TransferMonitor(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
	if m.TransferMonitorFunc != nil {
		return m.TransferMonitorFunc(ctx, actorID, groupID, targetID)
	}
	return nil, nil
}

func (m *mockGroupService) AssignManager(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
	if m.AssignManagerFunc != nil {
		return m.AssignManagerFunc(ctx, actorID, groupID, targetID)
	}
	return nil, nil
}

func (m *mockGroupService) RemoveMember(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
	if m.RemoveMemberFunc != nil {
		return m.RemoveMemberFunc(ctx, actorID, groupID, targetID)
	}
	return nil, nil
}

func (m *mockGroupService) Withdraw(ctx context.Context, userID, groupID uuid.UUID) (*models.WithdrawResult, error) {
	if m.WithdrawFunc != nil {
		return m.WithdrawFunc(ctx, userID, groupID)
	}
	return nil, nil
}

func (m *mockGroupService) List(ctx context.Context, userID uuid.UUID) ([]models.GroupSummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockGroupService) Get(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupDetail, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, groupID)
	}
	return nil, nil
}

type mockAnnouncementService struct {
	PostFunc func(ctx context.Context, authorID, groupID uuid.UUID, content string) (*models.Announcement, error)
	ListFunc func(ctx context.Context, userID, groupID uuid.UUID) ([]models.Announcement, error)
}

func (m *mockAnnouncementService) Post(ctx context.Context, authorID, groupID uuid.UUID, content string) (*models.Announcement, error) {
	if m.PostFunc != nil {
		return m.PostFunc(ctx, authorID, groupID, content)
	}
	return nil, nil
}

func (m *mockAnnouncementService) List(ctx context.Context, userID, groupID uuid.UUID) ([]models.Announcement, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, groupID)
	}
	return nil, nil
}

type mockInvitationService struct {
	InviteFunc      func(ctx context.Context, senderID, groupID, receiverID uuid.UUID) (*models.Invitation, error)
	ListForUserFunc func(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error)
	RespondFunc     func(ctx context.Context, userID, invitationID uuid.UUID, accept bool) (*models.Invitation, error)
}

func (m *mockInvitationService) Invite(ctx context.Context, senderID, groupID, receiverID uuid.UUID) (*models.Invitation, error) {
	if m.InviteFunc != nil {
		return m.InviteFunc(ctx, senderID, groupID, receiverID)
	}
	return nil, nil
}

func (m *mockInvitationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockInvitationService) Respond(ctx context.Context, userID, invitationID uuid.UUID, accept bool) (*models.Invitation, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, userID, invitationID, accept)
	}
	return nil, nil
}

type mockConversationService struct {
	CreateFunc func(ctx context.Context, creatorID uuid.UUID, typ models.ConversationType, memberIDs []uuid.UUID) (*models.Conversation, error)
	ListFunc   func(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	LeaveFunc  func(ctx context.Context, userID, conversationID uuid.UUID) (bool, error)
}

func (m *mockConversationService) Create(ctx context.Context, creatorID uuid.UUID, typ models.ConversationType, memberIDs []uuid.UUID) (*models.Conversation, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, creatorID, typ, memberIDs)
	}
	return nil, nil
}

func (m *mockConversationService) List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockConversationService) Leave(ctx context.Context, userID, conversationID uuid.UUID) (bool, error) {
	if m.LeaveFunc != nil {
		return m.LeaveFunc(ctx, userID, conversationID)
	}
	return false, nil
}

type mockMessageService struct {
	PostFunc     func(ctx context.Context, params models.PostMessageParams) (*models.Message, error)
	ListFunc     func(ctx context.Context, params models.ListMessagesParams) (*models.MessagePage, error)
	MarkReadFunc func(ctx context.Context, userID, messageID uuid.UUID) error
	DeleteFunc   func(ctx context.Context, userID, messageID uuid.UUID) error
}

func (m *mockMessageService) Post(ctx context.Context, params models.PostMessageParams) (*models.Message, error) {
	if m.PostFunc != nil {
		return m.PostFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockMessageService) List(ctx context.Context, params models.ListMessagesParams) (*models.MessagePage, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, params)
	}
	return &models.MessagePage{}, nil
}

func (m *mockMessageService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, userID, messageID)
	}
	return nil
}

func (m *mockMessageService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, messageID)
	}
	return nil
}

type mockBoardService struct {
	SaveFunc           func(ctx context.Context, params models.SaveBoardParams) (*models.Board, bool, error)
	GetFunc            func(ctx context.Context, boardID uuid.UUID) (*models.Board, error)
	DeleteFunc         func(ctx context.Context, userID, boardID uuid.UUID) error
	ListFunc           func(ctx context.Context) ([]models.Board, error)
	ListByUsernameFunc func(ctx context.Context, username string) ([]models.Board, error)
}

func (m *mockBoardService) Save(ctx context.Context, params models.SaveBoardParams) (*models.Board, bool, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, params)
	}
	return &models.Board{}, true, nil
}

func (m *mockBoardService) Get(ctx context.Context, boardID uuid.UUID) (*models.Board, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, boardID)
	}
	return nil, nil
}

func (m *mockBoardService) Delete(ctx context.Context, userID, boardID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, boardID)
	}
	return nil
}

func (m *mockBoardService) List(ctx context.Context) ([]models.Board, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockBoardService) ListByUsername(ctx context.Context, username string) ([]models.Board, error) {
	if m.ListByUsernameFunc != nil {
		return m.ListByUsernameFunc(ctx, username)
	}
	return nil, nil
}

type mockHub struct {
	attached chan uuid.UUID
}

func (m *mockHub) Attach(userID uuid.UUID, conn *websocket.Conn) {
	_ = conn.Close()
	m.attached <- userID
}
