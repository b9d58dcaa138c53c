package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/models"
	"github.com/HammerMeetNail/circleboard/internal/services"
)

type MessageHandler struct {
	conversationService services.ConversationServiceInterface
	messageService      services.MessageServiceInterface
}

func NewMessageHandler(conversationService services.ConversationServiceInterface, messageService services.MessageServiceInterface) *MessageHandler {
	return &MessageHandler{
		conversationService: conversationService,
		messageService:      messageService,
	}
}

type CreateConversationRequest struct {
	Type      string   `json:"type"`
	MemberIDs []string `json:"memberIds"`
}

type ConversationIDRequest struct {
	ConversationID string `json:"conversationId"`
}

type PostMessageRequest struct {
	ConversationID string  `json:"conversationId"`
	Content        string  `json:"content"`
	ReplyTo        *string `json:"replyTo"`
}

type MessageIDRequest struct {
	MessageID string `json:"messageId"`
}

type ConversationResponse struct {
	Envelope
	Conversation *models.Conversation `json:"conversation"`
}

type ConversationListResponse struct {
	Envelope
	Conversations []models.Conversation `json:"conversations"`
}

type LeaveConversationResponse struct {
	Envelope
	ConversationDeleted bool `json:"conversationDeleted"`
}

type MessageResponse struct {
	Envelope
	Message *models.Message `json:"message"`
}

type MessagePageResponse struct {
	Envelope
	*models.MessagePage
}

func (h *MessageHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req CreateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	memberIDs, ok := parseIDs(req.MemberIDs)
	if !ok {
		writeBadRequest(w, "Invalid value of [memberIds]")
		return
	}

	conversation, err := h.conversationService.Create(r.Context(), user.ID, models.ConversationType(req.Type), memberIDs)
	if err != nil {
		writeServiceError(w, err, "creating conversation")
		return
	}
	writeJSON(w, http.StatusOK, ConversationResponse{Envelope: succeed(), Conversation: conversation})
}

func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	conversations, err := h.conversationService.List(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "listing conversations")
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	writeJSON(w, http.StatusOK, ConversationListResponse{Envelope: succeed(), Conversations: conversations})
}

func (h *MessageHandler) LeaveConversation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req ConversationIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [conversationId]")
		return
	}

	deleted, err := h.conversationService.Leave(r.Context(), user.ID, conversationID)
	if err != nil {
		writeServiceError(w, err, "leaving conversation")
		return
	}
	writeJSON(w, http.StatusOK, LeaveConversationResponse{Envelope: succeed(), ConversationDeleted: deleted})
}

func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req PostMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [conversationId]")
		return
	}
	params := models.PostMessageParams{
		ConversationID: conversationID,
		SenderID:       user.ID,
		Content:        req.Content,
	}
	if req.ReplyTo != nil && *req.ReplyTo != "" {
		replyTo, err := uuid.Parse(*req.ReplyTo)
		if err != nil {
			writeBadRequest(w, "Invalid value of [replyTo]")
			return
		}
		params.ReplyToID = &replyTo
	}

	msg, err := h.messageService.Post(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, "posting message")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Envelope: succeed(), Message: msg})
}

// List pages through a conversation oldest first. after is an RFC 3339
// timestamp taken from the last message of the previous page.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	query := r.URL.Query()
	conversationID, err := uuid.Parse(query.Get("conversationId"))
	if err != nil {
		writeBadRequest(w, "Invalid value of [conversationId]")
		return
	}
	params := models.ListMessagesParams{ConversationID: conversationID, UserID: user.ID}

	if raw := query.Get("after"); raw != "" {
		after, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeBadRequest(w, "Invalid value of [after]")
			return
		}
		params.After = &after
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeBadRequest(w, "Invalid value of [limit]")
			return
		}
		params.Limit = limit
	}

	page, err := h.messageService.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, "listing messages")
		return
	}
	if page.Messages == nil {
		page.Messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, MessagePageResponse{Envelope: succeed(), MessagePage: page})
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	messageID, ok := h.decodeMessageID(w, r)
	if !ok {
		return
	}

	if err := h.messageService.MarkRead(r.Context(), user.ID, messageID); err != nil {
		writeServiceError(w, err, "marking message read")
		return
	}
	writeOK(w)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	messageID, ok := h.decodeMessageID(w, r)
	if !ok {
		return
	}

	if err := h.messageService.Delete(r.Context(), user.ID, messageID); err != nil {
		writeServiceError(w, err, "deleting message")
		return
	}
	writeOK(w)
}

func (h *MessageHandler) decodeMessageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req MessageIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return uuid.Nil, false
	}
	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [messageId]")
		return uuid.Nil, false
	}
	return messageID, true
}
