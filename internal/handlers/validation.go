package handlers

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,16}$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9]{8,16}$`)
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]+@[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)+$`)
	phonePattern    = regexp.MustCompile(`^[0-9]{11}$`)
)

func validUsername(s string) bool { return usernamePattern.MatchString(s) }
func validPassword(s string) bool { return passwordPattern.MatchString(s) }

// validEmail and validPhone accept the empty string; both fields are optional.
func validEmail(s string) bool { return s == "" || emailPattern.MatchString(s) }
func validPhone(s string) bool { return s == "" || phonePattern.MatchString(s) }

type profileFields struct {
	Username    *string
	Password    *string
	Email       *string
	PhoneNumber *string
}

// check returns the envelope info for the first malformed field, or "".
func (p profileFields) check() string {
	switch {
	case p.Username != nil && !validUsername(*p.Username):
		return "Invalid format of [userName]"
	case p.Password != nil && !validPassword(*p.Password):
		return "Invalid format of [password]"
	case p.Email != nil && !validEmail(strings.TrimSpace(*p.Email)):
		return "Invalid format of [email]"
	case p.PhoneNumber != nil && !validPhone(strings.TrimSpace(*p.PhoneNumber)):
		return "Invalid format of [phoneNumber]"
	}
	return ""
}

// parseIDs converts a list of uuid strings, reporting the first bad entry.
func parseIDs(raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
