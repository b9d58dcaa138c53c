package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/models"
	"github.com/HammerMeetNail/circleboard/internal/services"
)

func TestMessageHandler_CreateConversation(t *testing.T) {
	alice := testUser("alice")
	bobID := uuid.New()
	var gotType models.ConversationType
	conversations := &mockConversationService{
		CreateFunc: func(ctx context.Context, creatorID uuid.UUID, typ models.ConversationType, memberIDs []uuid.UUID) (*models.Conversation, error) {
			gotType = typ
			if !typ.Valid() {
				return nil, services.ErrInvalidConversationType
			}
			if !typ.AcceptsMemberCount(len(memberIDs) + 1) {
				return nil, services.ErrInvalidMemberCount
			}
			return &models.Conversation{ID: uuid.New(), Type: typ, MemberIDs: append([]uuid.UUID{creatorID}, memberIDs...)}, nil
		},
	}
	h := NewMessageHandler(conversations, &mockMessageService{})

	rr := httptest.NewRecorder()
	h.CreateConversation(rr, newRequest(t, http.MethodPost, "/conversations",
		CreateConversationRequest{Type: "private_chat", MemberIDs: []string{bobID.String()}}, alice))
	body := assertSucceed(t, rr)
	if gotType != models.PrivateChat {
		t.Fatalf("expected private_chat, got %q", gotType)
	}
	conv, _ := body["conversation"].(map[string]any)
	if members, _ := conv["members"].([]any); len(members) != 2 {
		t.Fatalf("expected two members, got %v", conv["members"])
	}

	tests := []struct {
		name     string
		req      CreateConversationRequest
		wantInfo string
	}{
		{"bad type", CreateConversationRequest{Type: "channel", MemberIDs: []string{bobID.String()}}, services.ErrInvalidConversationType.Error()},
		{"group too small", CreateConversationRequest{Type: "group_chat", MemberIDs: []string{bobID.String()}}, services.ErrInvalidMemberCount.Error()},
		{"bad member id", CreateConversationRequest{Type: "private_chat", MemberIDs: []string{"bob"}}, "Invalid value of [memberIds]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.CreateConversation(rr, newRequest(t, http.MethodPost, "/conversations", tt.req, alice))
			assertEnvelope(t, rr, http.StatusBadRequest, CodeInvalid, tt.wantInfo)
		})
	}
}

func TestMessageHandler_ListAndLeaveConversation(t *testing.T) {
	convID := uuid.New()
	h := NewMessageHandler(&mockConversationService{
		LeaveFunc: func(ctx context.Context, userID, cid uuid.UUID) (bool, error) {
			if cid != convID {
				return false, services.ErrNotConversationMember
			}
			return true, nil
		},
	}, &mockMessageService{})
	alice := testUser("alice")

	rr := httptest.NewRecorder()
	h.ListConversations(rr, newRequest(t, http.MethodGet, "/conversations", nil, alice))
	body := assertSucceed(t, rr)
	if list, ok := body["conversations"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty conversations array, got %v", body["conversations"])
	}

	rr = httptest.NewRecorder()
	h.LeaveConversation(rr, newRequest(t, http.MethodDelete, "/conversations", ConversationIDRequest{ConversationID: convID.String()}, alice))
	body = assertSucceed(t, rr)
	if body["conversationDeleted"] != true {
		t.Fatalf("expected conversationDeleted true, got %v", body["conversationDeleted"])
	}

	rr = httptest.NewRecorder()
	h.LeaveConversation(rr, newRequest(t, http.MethodDelete, "/conversations", ConversationIDRequest{ConversationID: uuid.NewString()}, alice))
	assertEnvelope(t, rr, http.StatusForbidden, CodeDenied, services.ErrNotConversationMember.Error())
}

func TestMessageHandler_Post(t *testing.T) {
	alice := testUser("alice")
	convID, replyID := uuid.New(), uuid.New()
	var got models.PostMessageParams
	messages := &mockMessageService{
		PostFunc: func(ctx context.Context, params models.PostMessageParams) (*models.Message, error) {
			got = params
			if params.ReplyToID != nil && *params.ReplyToID != replyID {
				return nil, services.ErrReplyTargetNotFound
			}
			sender := params.SenderID
			return &models.Message{ID: uuid.New(), ConversationID: params.ConversationID, SenderID: &sender, Content: params.Content, ReplyToID: params.ReplyToID}, nil
		},
	}
	h := NewMessageHandler(&mockConversationService{}, messages)

	reply := replyID.String()
	rr := httptest.NewRecorder()
	h.Post(rr, newRequest(t, http.MethodPost, "/messages", PostMessageRequest{ConversationID: convID.String(), Content: "hi", ReplyTo: &reply}, alice))
	body := assertSucceed(t, rr)
	if got.SenderID != alice.ID || got.ConversationID != convID {
		t.Fatalf("unexpected params %+v", got)
	}
	if msg, _ := body["message"].(map[string]any); msg["replyTo"] != replyID.String() {
		t.Fatalf("unexpected message %v", body["message"])
	}

	empty := ""
	rr = httptest.NewRecorder()
	h.Post(rr, newRequest(t, http.MethodPost, "/messages", PostMessageRequest{ConversationID: convID.String(), Content: "hi", ReplyTo: &empty}, alice))
	assertSucceed(t, rr)
	if got.ReplyToID != nil {
		t.Fatal("expected empty replyTo to mean no reply")
	}

	other := uuid.NewString()
	rr = httptest.NewRecorder()
	h.Post(rr, newRequest(t, http.MethodPost, "/messages", PostMessageRequest{ConversationID: convID.String(), Content: "hi", ReplyTo: &other}, alice))
	assertEnvelope(t, rr, http.StatusNotFound, CodeNotFound, services.ErrReplyTargetNotFound.Error())

	bad := "x"
	rr = httptest.NewRecorder()
	h.Post(rr, newRequest(t, http.MethodPost, "/messages", PostMessageRequest{ConversationID: convID.String(), Content: "hi", ReplyTo: &bad}, alice))
	assertEnvelope(t, rr, http.StatusBadRequest, CodeInvalid, "Invalid value of [replyTo]")
}

func TestMessageHandler_List(t *testing.T) {
	alice := testUser("alice")
	convID := uuid.New()
	after := time.Date(2026, 3, 1, 10, 0, 0, 500, time.UTC)
	var got models.ListMessagesParams
	h := NewMessageHandler(&mockConversationService{}, &mockMessageService{
		ListFunc: func(ctx context.Context, params models.ListMessagesParams) (*models.MessagePage, error) {
			got = params
			return &models.MessagePage{HasMore: true}, nil
		},
	})

	q := url.Values{}
	q.Set("conversationId", convID.String())
	q.Set("after", after.Format(time.RFC3339Nano))
	q.Set("limit", "5")

	rr := httptest.NewRecorder()
	h.List(rr, newRequest(t, http.MethodGet, "/messages?"+q.Encode(), nil, alice))
	body := assertSucceed(t, rr)
	if got.UserID != alice.ID || got.ConversationID != convID || got.Limit != 5 {
		t.Fatalf("unexpected params %+v", got)
	}
	if got.After == nil || !got.After.Equal(after) {
		t.Fatalf("expected after %v, got %v", after, got.After)
	}
	if body["hasMore"] != true {
		t.Fatalf("expected hasMore, got %v", body["hasMore"])
	}
	if list, ok := body["messages"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty messages array, got %v", body["messages"])
	}

	for name, query := range map[string]string{
		"Invalid value of [conversationId]": "conversationId=x",
		"Invalid value of [after]":          "conversationId=" + convID.String() + "&after=yesterday",
		"Invalid value of [limit]":          "conversationId=" + convID.String() + "&limit=0",
	} {
		rr := httptest.NewRecorder()
		h.List(rr, newRequest(t, http.MethodGet, "/messages?"+query, nil, alice))
		assertEnvelope(t, rr, http.StatusBadRequest, CodeInvalid, name)
	}
}

func TestMessageHandler_MarkReadAndDelete(t *testing.T) {
	alice := testUser("alice")
	mine, theirs := uuid.New(), uuid.New()
	h := NewMessageHandler(&mockConversationService{}, &mockMessageService{
		MarkReadFunc: func(ctx context.Context, userID, messageID uuid.UUID) error {
			if messageID != mine {
				return services.ErrMessageNotFound
			}
			return nil
		},
		DeleteFunc: func(ctx context.Context, userID, messageID uuid.UUID) error {
			if messageID == theirs {
				return services.ErrNotMessageSender
			}
			return nil
		},
	})

	rr := httptest.NewRecorder()
	h.MarkRead(rr, newRequest(t, http.MethodPost, "/messages/read", MessageIDRequest{MessageID: mine.String()}, alice))
	assertSucceed(t, rr)

	rr = httptest.NewRecorder()
	h.MarkRead(rr, newRequest(t, http.MethodPost, "/messages/read", MessageIDRequest{MessageID: theirs.String()}, alice))
	assertEnvelope(t, rr, http.StatusNotFound, CodeNotFound, services.ErrMessageNotFound.Error())

	rr = httptest.NewRecorder()
	h.Delete(rr, newRequest(t, http.MethodDelete, "/messages", MessageIDRequest{MessageID: mine.String()}, alice))
	assertSucceed(t, rr)

	rr = httptest.NewRecorder()
	h.Delete(rr, newRequest(t, http.MethodDelete, "/messages", MessageIDRequest{MessageID: theirs.String()}, alice))
	assertEnvelope(t, rr, http.StatusForbidden, CodeDenied, services.ErrNotMessageSender.Error())

	rr = httptest.NewRecorder()
	h.Delete(rr, newRequest(t, http.MethodDelete, "/messages", MessageIDRequest{MessageID: "nope"}, alice))
	assertEnvelope(t, rr, http.StatusBadRequest, CodeInvalid, "Invalid value of [messageId]")
}
