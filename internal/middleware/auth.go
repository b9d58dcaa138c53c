package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/circleboard/internal/handlers"
	"github.com/HammerMeetNail/circleboard/internal/models"
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth rejects requests without a valid token and otherwise puts the
// user and raw token into the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromHeader(r.Header.Get("Authorization"))
		if token == "" {
			handlers.WriteFailure(w, http.StatusUnauthorized, handlers.CodeInvalid, handlers.InfoInvalidJWT)
			return
		}

		user, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			handlers.WriteServiceError(w, err, "authenticating request")
			return
		}

		ctx := handlers.SetUserInContext(r.Context(), user)
		ctx = handlers.SetTokenInContext(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenFromHeader accepts either "Bearer <token>" or the bare token.
func TokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
