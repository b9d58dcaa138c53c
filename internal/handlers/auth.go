package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/circleboard/internal/models"
	"github.com/HammerMeetNail/circleboard/internal/services"
)

type AuthHandler struct {
	userService services.UserServiceInterface
	authService services.AuthServiceInterface
}

func NewAuthHandler(userService services.UserServiceInterface, authService services.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
	}
}

type RegisterRequest struct {
	Username    string `json:"userName"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type LoginRequest struct {
	Username string `json:"userName"`
	Password string `json:"password"`
}

// ModifyRequest carries the profile fields to change; omitted fields stay.
type ModifyRequest struct {
	Username    *string `json:"userName"`
	Password    *string `json:"password"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
}

type AuthResponse struct {
	Envelope
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	if info := (profileFields{Username: &req.Username}).check(); info != "" {
		writeBadRequest(w, info)
		return
	}

	// A taken name is reported before any other field is looked at.
	existing, err := h.userService.GetByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		writeServiceError(w, err, "checking username")
		return
	}
	if err == nil && existing != nil {
		writeServiceError(w, services.ErrUsernameAlreadyExists, "registering")
		return
	}

	fields := profileFields{Password: &req.Password, Email: &req.Email, PhoneNumber: &req.PhoneNumber}
	if info := fields.check(); info != "" {
		writeBadRequest(w, info)
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
		return
	}

	user, err := h.userService.Create(r.Context(), models.CreateUserParams{
		Username:     req.Username,
		PasswordHash: passwordHash,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		writeServiceError(w, err, "creating user")
		return
	}

	token, err := h.authService.IssueToken(user.ID)
	if err != nil {
		writeServiceError(w, err, "issuing token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Envelope: succeed(), Token: token, User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "Missing [userName] or [password]")
		return
	}

	user, err := h.userService.GetByUsername(r.Context(), req.Username)
	if errors.Is(err, services.ErrUserNotFound) {
		writeServiceError(w, services.ErrInvalidCredentials, "logging in")
		return
	}
	if err != nil {
		writeServiceError(w, err, "getting user")
		return
	}

	if !h.authService.VerifyPassword(user.PasswordHash, req.Password) {
		writeServiceError(w, services.ErrInvalidCredentials, "logging in")
		return
	}

	token, err := h.authService.IssueToken(user.ID)
	if err != nil {
		writeServiceError(w, err, "issuing token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Envelope: succeed(), Token: token, User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := GetTokenFromContext(r.Context())
	if GetUserFromContext(r.Context()) == nil || token == "" {
		writeUnauthorized(w)
		return
	}

	if err := h.authService.RevokeToken(r.Context(), token); err != nil {
		writeServiceError(w, err, "revoking token")
		return
	}
	writeOK(w)
}

func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	if err := h.userService.Delete(r.Context(), user.ID); err != nil {
		writeServiceError(w, err, "deleting user")
		return
	}

	if token := GetTokenFromContext(r.Context()); token != "" {
		if err := h.authService.RevokeToken(r.Context(), token); err != nil {
			log.Printf("Error revoking token of deleted user %s: %v", user.ID, err)
		}
	}
	writeOK(w)
}

func (h *AuthHandler) Modify(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}

	var req ModifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	fields := profileFields{Username: req.Username, Password: req.Password, Email: req.Email, PhoneNumber: req.PhoneNumber}
	if info := fields.check(); info != "" {
		writeBadRequest(w, info)
		return
	}

	params := models.UpdateProfileParams{Username: req.Username}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		params.Email = &email
	}
	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		params.PhoneNumber = &phone
	}
	if req.Password != nil {
		hash, err := h.authService.HashPassword(*req.Password)
		if err != nil {
			log.Printf("Error hashing password: %v", err)
			writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
			return
		}
		params.PasswordHash = &hash
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, params)
	if err != nil {
		writeServiceError(w, err, "updating profile")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Envelope: succeed(), User: updated})
}

func (h *AuthHandler) SearchUser(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r.Context()) == nil {
		writeUnauthorized(w)
		return
	}

	username := r.URL.Query().Get("username")
	if !validUsername(username) {
		writeBadRequest(w, "Invalid format of [username]")
		return
	}

	target, err := h.userService.GetByUsername(r.Context(), username)
	if err != nil {
		writeServiceError(w, err, "searching user")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Envelope: succeed(), User: target})
}
