package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"userid"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

type CreateUserParams struct {
	Username     string
	PasswordHash string
	Email        string
	PhoneNumber  string
}

// UpdateProfileParams carries the profile fields to change; nil leaves a
// field untouched.
type UpdateProfileParams struct {
	Username     *string
	PasswordHash *string
	Email        *string
	PhoneNumber  *string
}

func (p UpdateProfileParams) Empty() bool {
	return p.Username == nil && p.PasswordHash == nil && p.Email == nil && p.PhoneNumber == nil
}

type UserSummary struct {
	ID       uuid.UUID `json:"userid"`
	Username string    `json:"username"`
}
