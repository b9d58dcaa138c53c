package handlers

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HammerMeetNail/circleboard/internal/services"
)

// SocketHub takes ownership of an upgraded notification connection.
type SocketHub interface {
	Attach(userID uuid.UUID, conn *websocket.Conn)
}

type WSHandler struct {
	authService services.AuthServiceInterface
	hub         SocketHub
	upgrader    websocket.Upgrader
}

func NewWSHandler(authService services.AuthServiceInterface, hub SocketHub, allowAnyOrigin bool) *WSHandler {
	h := &WSHandler{
		authService: authService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if allowAnyOrigin {
		h.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return h
}

// Connect authenticates the token query parameter before upgrading, since
// browsers cannot set headers on a websocket handshake.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeUnauthorized(w)
		return
	}

	user, err := h.authService.Authenticate(r.Context(), token)
	if err != nil {
		writeServiceError(w, err, "authenticating websocket")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		log.Printf("Error upgrading websocket for %s: %v", user.ID, err)
		return
	}
	h.hub.Attach(user.ID, conn)
}
