package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/models"
	"github.com/HammerMeetNail/circleboard/internal/services"
)

type FriendHandler struct {
	friendService services.FriendServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type SendRequestRequest struct {
	ReceiverID string `json:"receiverId"`
}

type RespondRequestRequest struct {
	SenderID string `json:"senderId"`
	Decision string `json:"decision"`
}

type FriendTargetRequest struct {
	FriendID string `json:"friendId"`
}

type LabelRequest struct {
	FriendID string `json:"friendId"`
	Label    string `json:"label"`
}

type ListFriendsRequest struct {
	Label string `json:"label"`
}

type FriendListResponse struct {
	Envelope
	Friends []models.FriendWithUser `json:"friends"`
}

type FriendRequestResponse struct {
	Envelope
	Request *models.FriendRequest `json:"request,omitempty"`
}

type FriendRequestListResponse struct {
	Envelope
	Requests []models.FriendRequestWithSender `json:"requests"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req SendRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [receiverId]")
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), user.ID, receiverID)
	if err != nil {
		writeServiceError(w, err, "sending friend request")
		return
	}
	writeJSON(w, http.StatusOK, FriendRequestResponse{Envelope: succeed(), Request: request})
}

func (h *FriendHandler) RespondRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req RespondRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	senderID, err := uuid.Parse(req.SenderID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [senderId]")
		return
	}
	if req.Decision == "" {
		writeBadRequest(w, "Missing [decision]")
		return
	}

	request, err := h.friendService.RespondRequest(r.Context(), user.ID, senderID, req.Decision)
	if err != nil {
		writeServiceError(w, err, "responding to friend request")
		return
	}
	writeJSON(w, http.StatusOK, FriendRequestResponse{Envelope: succeed(), Request: request})
}

func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	requests, err := h.friendService.ListRequests(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "listing friend requests")
		return
	}
	if requests == nil {
		requests = []models.FriendRequestWithSender{}
	}
	writeJSON(w, http.StatusOK, FriendRequestListResponse{Envelope: succeed(), Requests: requests})
}

func (h *FriendHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req FriendTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [friendId]")
		return
	}

	if err := h.friendService.DeleteFriend(r.Context(), user.ID, friendID); err != nil {
		writeServiceError(w, err, "deleting friend")
		return
	}
	writeOK(w)
}

func (h *FriendHandler) Label(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req LabelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [friendId]")
		return
	}

	if err := h.friendService.LabelFriend(r.Context(), user.ID, friendID, strings.TrimSpace(req.Label)); err != nil {
		writeServiceError(w, err, "labelling friend")
		return
	}
	writeOK(w)
}

// List returns the caller's friends, narrowed to one label when given. An
// empty body lists everyone.
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req ListFriendsRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "Invalid request body")
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), user.ID, strings.TrimSpace(req.Label))
	if err != nil {
		writeServiceError(w, err, "listing friends")
		return
	}
	if friends == nil {
		friends = []models.FriendWithUser{}
	}
	writeJSON(w, http.StatusOK, FriendListResponse{Envelope: succeed(), Friends: friends})
}
