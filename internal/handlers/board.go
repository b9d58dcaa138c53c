package handlers

import (
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/models"
	"github.com/HammerMeetNail/circleboard/internal/services"
)

type BoardHandler struct {
	boardService services.BoardServiceInterface
}

func NewBoardHandler(boardService services.BoardServiceInterface) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

type SaveBoardRequest struct {
	Username  string `json:"userName"`
	BoardName string `json:"boardName"`
	Board     string `json:"board"`
}

// check returns the envelope info for the first malformed field, or "".
// Ownership is judged only after the body is well formed.
func (req SaveBoardRequest) check() string {
	switch {
	case req.BoardName == "" || utf8.RuneCountInString(req.BoardName) > models.MaxBoardNameLength:
		return "Bad length of [boardName]"
	case req.Username == "" || utf8.RuneCountInString(req.Username) > models.MaxBoardNameLength:
		return "Bad length of [userName]"
	case len(req.Board) != models.BoardStateLength:
		return "Bad length of [board]"
	case !models.ValidBoardState(req.Board):
		return "Invalid value of [board]"
	}
	return ""
}

type SaveBoardResponse struct {
	Envelope
	ID       uuid.UUID `json:"id"`
	IsCreate bool      `json:"isCreate"`
}

type BoardResponse struct {
	Envelope
	Board     string `json:"board"`
	BoardName string `json:"boardName"`
	Username  string `json:"userName"`
}

type BoardListResponse struct {
	Envelope
	Username string         `json:"userName,omitempty"`
	Boards   []models.Board `json:"boards"`
}

// Save stores a board under the caller's account. The userName in the body
// must name the authenticated user.
func (h *BoardHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req SaveBoardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if info := req.check(); info != "" {
		writeBadRequest(w, info)
		return
	}
	if req.Username != user.Username {
		writeServiceError(w, services.ErrPermissionDenied, "saving board")
		return
	}

	board, created, err := h.boardService.Save(r.Context(), models.SaveBoardParams{
		UserID: user.ID,
		Name:   req.BoardName,
		State:  req.Board,
	})
	if err != nil {
		writeServiceError(w, err, "saving board")
		return
	}
	writeJSON(w, http.StatusOK, SaveBoardResponse{Envelope: succeed(), ID: board.ID, IsCreate: created})
}

func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	boardID, ok := boardIDFromPath(w, r)
	if !ok {
		return
	}

	board, err := h.boardService.Get(r.Context(), boardID)
	if err != nil {
		writeServiceError(w, err, "getting board")
		return
	}
	writeJSON(w, http.StatusOK, BoardResponse{
		Envelope:  succeed(),
		Board:     board.State,
		BoardName: board.Name,
		Username:  board.Username,
	})
}

func (h *BoardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}
	boardID, ok := boardIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.boardService.Delete(r.Context(), user.ID, boardID); err != nil {
		writeServiceError(w, err, "deleting board")
		return
	}
	writeOK(w)
}

func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	boards, err := h.boardService.List(r.Context())
	if err != nil {
		writeServiceError(w, err, "listing boards")
		return
	}
	if boards == nil {
		boards = []models.Board{}
	}
	writeJSON(w, http.StatusOK, BoardListResponse{Envelope: succeed(), Boards: boards})
}

func (h *BoardHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if !validUsername(username) {
		writeBadRequest(w, "Invalid format of [userName]")
		return
	}

	boards, err := h.boardService.ListByUsername(r.Context(), username)
	if err != nil {
		writeServiceError(w, err, "listing user boards")
		return
	}
	if boards == nil {
		boards = []models.Board{}
	}
	writeJSON(w, http.StatusOK, BoardListResponse{Envelope: succeed(), Username: username, Boards: boards})
}

func boardIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	boardID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeBadRequest(w, "Invalid value of [id]")
		return uuid.Nil, false
	}
	return boardID, true
}
