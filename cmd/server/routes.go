package main

import (
	"net/http"

	"github.com/HammerMeetNail/circleboard/internal/handlers"
	"github.com/HammerMeetNail/circleboard/internal/middleware"
)

type routeHandlers struct {
	health  *handlers.HealthHandler
	auth    *handlers.AuthHandler
	friend  *handlers.FriendHandler
	group   *handlers.GroupHandler
	message *handlers.MessageHandler
	board   *handlers.BoardHandler
	ws      *handlers.WSHandler

	requireAuth middleware.Middleware
	authLimit   middleware.Middleware
}

type route struct {
	method  string
	path    string
	handler http.Handler
}

func newRouter(h routeHandlers) *http.ServeMux {
	private := func(fn http.HandlerFunc) http.Handler { return h.requireAuth(fn) }
	limited := func(fn http.HandlerFunc) http.Handler { return h.authLimit(fn) }

	routes := []route{
		{http.MethodGet, "/health", http.HandlerFunc(h.health.Health)},
		{http.MethodGet, "/ready", http.HandlerFunc(h.health.Ready)},
		{http.MethodGet, "/live", http.HandlerFunc(h.health.Live)},

		{http.MethodPost, "/register", limited(h.auth.Register)},
		{http.MethodPost, "/login", limited(h.auth.Login)},
		{http.MethodPost, "/logout", private(h.auth.Logout)},
		{http.MethodDelete, "/delete_user", private(h.auth.DeleteUser)},
		{http.MethodPost, "/modify", private(h.auth.Modify)},
		{http.MethodGet, "/search_target_user", private(h.auth.SearchUser)},

		{http.MethodDelete, "/friends/delete", private(h.friend.Delete)},
		{http.MethodPost, "/friends/label", private(h.friend.Label)},
		{http.MethodPost, "/friends/list", private(h.friend.List)},
		{http.MethodPost, "/friend/send_friend_request", private(h.friend.SendRequest)},
		{http.MethodPost, "/friend/respond_friend_request", private(h.friend.RespondRequest)},
		{http.MethodPost, "/friend/friend_request_list", private(h.friend.ListRequests)},

		{http.MethodPost, "/group/create", private(h.group.Create)},
		{http.MethodPost, "/group/transfer_monitor", private(h.group.TransferMonitor)},
		{http.MethodDelete, "/group/withdraw_group", private(h.group.Withdraw)},
		{http.MethodPost, "/group/assign_manager", private(h.group.AssignManager)},
		{http.MethodGet, "/group/list", private(h.group.List)},
		{http.MethodGet, "/group/detail", private(h.group.Detail)},
		{http.MethodPost, "/group/remove_member", private(h.group.RemoveMember)},
		{http.MethodPost, "/group/edit_announcement", private(h.group.EditAnnouncement)},
		{http.MethodPost, "/group/list_announcement", private(h.group.ListAnnouncements)},
		{http.MethodPost, "/group/invite", private(h.group.Invite)},
		{http.MethodGet, "/group/invitations", private(h.group.ListInvitations)},
		{http.MethodPost, "/group/respond_invitation", private(h.group.RespondInvitation)},

		{http.MethodPost, "/conversations", private(h.message.CreateConversation)},
		{http.MethodGet, "/conversations", private(h.message.ListConversations)},
		{http.MethodDelete, "/conversations", private(h.message.LeaveConversation)},
		{http.MethodPost, "/messages", private(h.message.Post)},
		{http.MethodGet, "/messages", private(h.message.List)},
		{http.MethodDelete, "/messages", private(h.message.Delete)},
		{http.MethodPost, "/messages/read", private(h.message.MarkRead)},

		{http.MethodGet, "/boards", http.HandlerFunc(h.board.List)},
		{http.MethodPost, "/boards", private(h.board.Save)},
		{http.MethodGet, "/boards/{id}", http.HandlerFunc(h.board.Get)},
		{http.MethodDelete, "/boards/{id}", private(h.board.Delete)},
		{http.MethodGet, "/user/{username}/boards", http.HandlerFunc(h.board.ListByUser)},

		{http.MethodGet, "/ws", http.HandlerFunc(h.ws.Connect)},
	}

	mux := http.NewServeMux()
	seen := make(map[string]bool)
	for _, rt := range routes {
		mux.Handle(rt.method+" "+rt.path, rt.handler)
		// A known path under the wrong method answers with the bad-method
		// envelope instead of the mux's plain-text 405.
		if !seen[rt.path] {
			seen[rt.path] = true
			mux.HandleFunc(rt.path, handlers.BadMethod)
		}
	}
	mux.HandleFunc("/", handlers.NotImplemented)
	return mux
}
