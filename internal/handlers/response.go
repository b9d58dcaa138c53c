package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/HammerMeetNail/circleboard/internal/services"
)

// Envelope codes.
const (
	CodeSucceed    = 0
	CodeNotFound   = 1
	CodeInvalid    = 2
	CodeDenied     = 3
	CodeInternal   = -1
	CodeBadMethod  = -3
	infoSucceed    = "Succeed"
	infoBadMethod  = "Bad method"
	InfoInvalidJWT = "Invalid or expired JWT"
)

// Envelope is embedded in every response body so payload fields sit beside
// code and info.
type Envelope struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}

func succeed() Envelope {
	return Envelope{Code: CodeSucceed, Info: infoSucceed}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, succeed())
}

func writeError(w http.ResponseWriter, status, code int, info string) {
	writeJSON(w, status, Envelope{Code: code, Info: info})
}

// WriteFailure lets middleware answer with the same envelope as handlers.
func WriteFailure(w http.ResponseWriter, status, code int, info string) {
	writeError(w, status, code, info)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, CodeInvalid, InfoInvalidJWT)
}

func writeBadRequest(w http.ResponseWriter, info string) {
	writeError(w, http.StatusBadRequest, CodeInvalid, info)
}

// BadMethod answers requests whose path exists under another method.
func BadMethod(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeBadMethod, infoBadMethod)
}

// NotImplemented answers routes that are reserved but not served.
func NotImplemented(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, CodeNotFound, "Not implemented")
}

type errorMapping struct {
	err    error
	status int
	code   int
	info   string
}

var serviceErrors = []errorMapping{
	{services.ErrUserNotFound, http.StatusNotFound, CodeNotFound, "User not found"},
	{services.ErrUsernameAlreadyExists, http.StatusConflict, CodeInvalid, "Username already exists"},
	{services.ErrNothingToUpdate, http.StatusBadRequest, CodeInvalid, ""},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalid, "Wrong username or password"},
	{services.ErrInvalidToken, http.StatusUnauthorized, CodeInvalid, InfoInvalidJWT},
	{services.ErrTokenRevoked, http.StatusUnauthorized, CodeInvalid, InfoInvalidJWT},

	{services.ErrCannotFriendSelf, http.StatusBadRequest, CodeInvalid, ""},
	{services.ErrAlreadyFriends, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrFriendRequestExists, http.StatusConflict, CodeInvalid, ""},
	{services.ErrFriendRequestNotFound, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrNotFriend, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrLabelExists, http.StatusConflict, CodeInvalid, ""},
	{services.ErrInvalidLabel, http.StatusBadRequest, CodeInvalid, ""},

	{services.ErrGroupNotFound, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrNotGroupMember, http.StatusForbidden, CodeDenied, ""},
	{services.ErrTargetNotMember, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrNotGroupMonitor, http.StatusForbidden, CodeDenied, ""},
	{services.ErrPermissionDenied, http.StatusForbidden, CodeDenied, "Permission denied"},
	{services.ErrAlreadyMonitor, http.StatusConflict, CodeInvalid, ""},
	{services.ErrAlreadyManager, http.StatusConflict, CodeInvalid, ""},
	{services.ErrCannotRemoveSelf, http.StatusBadRequest, CodeInvalid, ""},
	{services.ErrInvalidGroupName, http.StatusBadRequest, CodeInvalid, ""},
	{services.ErrAlreadyGroupMember, http.StatusConflict, CodeInvalid, ""},
	{services.ErrInvalidAnnouncement, http.StatusBadRequest, CodeInvalid, ""},
	{services.ErrInvitationNotFound, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrInvitationExists, http.StatusConflict, CodeInvalid, ""},
	{services.ErrNotInvitationRecipient, http.StatusForbidden, CodeDenied, ""},

	{services.ErrConversationNotFound, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrNotConversationMember, http.StatusForbidden, CodeDenied, ""},
	{services.ErrInvalidConversationType, http.StatusBadRequest, CodeInvalid, ""},
	{services.ErrInvalidMemberCount, http.StatusBadRequest, CodeInvalid, ""},
	{services.ErrInvalidMessage, http.StatusBadRequest, CodeInvalid, ""},
	{services.ErrMessageNotFound, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrReplyTargetNotFound, http.StatusNotFound, CodeNotFound, ""},
	{services.ErrNotMessageSender, http.StatusForbidden, CodeDenied, ""},

	{services.ErrBoardNotFound, http.StatusNotFound, CodeNotFound, "Board not found"},
	{services.ErrNotBoardOwner, http.StatusForbidden, CodeDenied, "Cannot delete board of other users"},
	{services.ErrInvalidBoardName, http.StatusBadRequest, CodeInvalid, "Bad length of [boardName]"},
	{services.ErrInvalidBoardState, http.StatusBadRequest, CodeInvalid, "Invalid value of [board]"},
}

// WriteServiceError lets middleware report service errors like handlers do.
func WriteServiceError(w http.ResponseWriter, err error, action string) {
	writeServiceError(w, err, action)
}

// writeServiceError translates a service error into its envelope. Unknown
// errors are logged with action and reported as internal.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			info := m.info
			if info == "" {
				info = m.err.Error()
			}
			writeError(w, m.status, m.code, info)
			return
		}
	}
	log.Printf("Error %s: %v", action, err)
	writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
