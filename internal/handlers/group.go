package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/models"
	"github.com/HammerMeetNail/circleboard/internal/services"
)

type GroupHandler struct {
	groupService        services.GroupServiceInterface
	announcementService services.AnnouncementServiceInterface
	invitationService   services.InvitationServiceInterface
}

func NewGroupHandler(
	groupService services.GroupServiceInterface,
	announcementService services.AnnouncementServiceInterface,
	invitationService services.InvitationServiceInterface,
) *GroupHandler {
	return &GroupHandler{
		groupService:        groupService,
		announcementService: announcementService,
		invitationService:   invitationService,
	}
}

type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

// GroupTargetRequest names a group and one of its members, used by the
// monitor's role and roster operations.
type GroupTargetRequest struct {
	GroupID  string `json:"groupId"`
	TargetID string `json:"targetId"`
}

type GroupIDRequest struct {
	GroupID string `json:"groupId"`
}

type AnnouncementRequest struct {
	GroupID string `json:"groupId"`
	Content string `json:"content"`
}

type InviteRequest struct {
	GroupID    string `json:"groupId"`
	ReceiverID string `json:"receiverId"`
}

type RespondInvitationRequest struct {
	InvitationID string `json:"invitationId"`
	Accept       bool   `json:"accept"`
}

type GroupResponse struct {
	Envelope
	Group *models.Group `json:"group"`
}

type GroupDetailResponse struct {
	Envelope
	Group *models.GroupDetail `json:"group"`
}

type GroupListResponse struct {
	Envelope
	Groups []models.GroupSummary `json:"groups"`
}

type WithdrawResponse struct {
	Envelope
	*models.WithdrawResult
}

type AnnouncementResponse struct {
	Envelope
	Announcement *models.Announcement `json:"announcement"`
}

type AnnouncementListResponse struct {
	Envelope
	Announcements []models.Announcement `json:"announcements"`
}

type InvitationResponse struct {
	Envelope
	Invitation *models.Invitation `json:"invitation"`
}

type InvitationListResponse struct {
	Envelope
	Invitations []models.Invitation `json:"invitations"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	memberIDs, ok := parseIDs(req.MemberIDs)
	if !ok {
		writeBadRequest(w, "Invalid value of [memberIds]")
		return
	}

	group, err := h.groupService.Create(r.Context(), user.ID, strings.TrimSpace(req.Name), memberIDs)
	if err != nil {
		writeServiceError(w, err, "creating group")
		return
	}
	writeJSON(w, http.StatusOK, GroupResponse{Envelope: succeed(), Group: group})
}

type roleOperation func(r *http.Request, actorID, groupID, targetID uuid.UUID) (*models.Group, error)

func (h *GroupHandler) TransferMonitor(w http.ResponseWriter, r *http.Request) {
	h.changeRoster(w, r, "transferring monitor", func(r *http.Request, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
		return h.groupService.TransferMonitor(r.Context(), actorID, groupID, targetID)
	})
}

func (h *GroupHandler) AssignManager(w http.ResponseWriter, r *http.Request) {
	h.changeRoster(w, r, "assigning manager", func(r *http.Request, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
		return h.groupService.AssignManager(r.Context(), actorID, groupID, targetID)
	})
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	h.changeRoster(w, r, "removing member", func(r *http.Request, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
		return h.groupService.RemoveMember(r.Context(), actorID, groupID, targetID)
	})
}

func (h *GroupHandler) changeRoster(w http.ResponseWriter, r *http.Request, action string, op roleOperation) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req GroupTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [groupId]")
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [targetId]")
		return
	}

	group, err := op(r, user.ID, groupID, targetID)
	if err != nil {
		writeServiceError(w, err, action)
		return
	}
	writeJSON(w, http.StatusOK, GroupResponse{Envelope: succeed(), Group: group})
}

func (h *GroupHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req GroupIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [groupId]")
		return
	}

	result, err := h.groupService.Withdraw(r.Context(), user.ID, groupID)
	if err != nil {
		writeServiceError(w, err, "withdrawing from group")
		return
	}
	writeJSON(w, http.StatusOK, WithdrawResponse{Envelope: succeed(), WithdrawResult: result})
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	groups, err := h.groupService.List(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "listing groups")
		return
	}
	if groups == nil {
		groups = []models.GroupSummary{}
	}
	writeJSON(w, http.StatusOK, GroupListResponse{Envelope: succeed(), Groups: groups})
}

func (h *GroupHandler) Detail(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	groupID, err := uuid.Parse(r.URL.Query().Get("groupId"))
	if err != nil {
		writeBadRequest(w, "Invalid value of [groupId]")
		return
	}

	detail, err := h.groupService.Get(r.Context(), user.ID, groupID)
	if err != nil {
		writeServiceError(w, err, "getting group")
		return
	}
	writeJSON(w, http.StatusOK, GroupDetailResponse{Envelope: succeed(), Group: detail})
}

func (h *GroupHandler) EditAnnouncement(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req AnnouncementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [groupId]")
		return
	}

	announcement, err := h.announcementService.Post(r.Context(), user.ID, groupID, strings.TrimSpace(req.Content))
	if err != nil {
		writeServiceError(w, err, "posting announcement")
		return
	}
	writeJSON(w, http.StatusOK, AnnouncementResponse{Envelope: succeed(), Announcement: announcement})
}

func (h *GroupHandler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req GroupIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [groupId]")
		return
	}

	announcements, err := h.announcementService.List(r.Context(), user.ID, groupID)
	if err != nil {
		writeServiceError(w, err, "listing announcements")
		return
	}
	if announcements == nil {
		announcements = []models.Announcement{}
	}
	writeJSON(w, http.StatusOK, AnnouncementListResponse{Envelope: succeed(), Announcements: announcements})
}

func (h *GroupHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [groupId]")
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [receiverId]")
		return
	}

	invitation, err := h.invitationService.Invite(r.Context(), user.ID, groupID, receiverID)
	if err != nil {
		writeServiceError(w, err, "inviting to group")
		return
	}
	writeJSON(w, http.StatusOK, InvitationResponse{Envelope: succeed(), Invitation: invitation})
}

func (h *GroupHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	invitations, err := h.invitationService.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "listing invitations")
		return
	}
	if invitations == nil {
		invitations = []models.Invitation{}
	}
	writeJSON(w, http.StatusOK, InvitationListResponse{Envelope: succeed(), Invitations: invitations})
}

func (h *GroupHandler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req RespondInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	invitationID, err := uuid.Parse(req.InvitationID)
	if err != nil {
		writeBadRequest(w, "Invalid value of [invitationId]")
		return
	}

	invitation, err := h.invitationService.Respond(r.Context(), user.ID, invitationID, req.Accept)
	if err != nil {
		writeServiceError(w, err, "responding to invitation")
		return
	}
	writeJSON(w, http.StatusOK, InvitationResponse{Envelope: succeed(), Invitation: invitation})
}
