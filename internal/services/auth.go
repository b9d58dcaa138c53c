package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/HammerMeetNail/circleboard/internal/logging"
	"github.com/HammerMeetNail/circleboard/internal/models"
)

const (
	bcryptCost       = 12
	revokedKeyPrefix = "revoked:"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token revoked")
)

// TokenClaims is the JWT payload. The user id travels as "userid".
type TokenClaims struct {
	UserID string `json:"userid"`
	jwt.RegisteredClaims
}

type AuthService struct {
	db     DBConn
	redis  RedisClient
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(db DBConn, redis RedisClient, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		db:     db,
		redis:  redis,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IssueToken signs an HS256 token for userID valid for the configured TTL.
func (s *AuthService) IssueToken(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := TokenClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// ParseToken verifies signature and expiry and checks the revocation list.
// A revocation lookup failure is logged and the token accepted.
func (s *AuthService) ParseToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidToken
	}

	if claims.ID != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, revokedKeyPrefix+claims.ID)
		if err != nil {
			logging.Warn("Token revocation check failed", map[string]interface{}{"error": err.Error()})
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Authenticate resolves a token to its user. Tokens for deleted accounts
// are rejected.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	userID, _ := uuid.Parse(claims.UserID)

	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("loading token user: %w", err)
	}
	return user, nil
}

// RevokeToken denylists the token until it would have expired anyway.
func (s *AuthService) RevokeToken(ctx context.Context, tokenString string) error {
	claims, err := s.ParseToken(ctx, tokenString)
	if err != nil {
		return err
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	remaining := claims.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, revokedKeyPrefix+claims.ID, claims.UserID, remaining); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}
