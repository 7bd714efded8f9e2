package user

import (
	"errors"
	"strings"
	"time"
)

// Validation and store errors.
var (
	ErrNotFound         = errors.New("user not found")
	ErrDuplicate        = errors.New("email or username already taken")
	ErrReferenced       = errors.New("user is still reserved in a slot")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters long")
	ErrPasswordTooShort = errors.New("password must be at least 5 characters long")
)

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Firstname    string    `json:"firstname,omitempty"`
	Lastname     string    `json:"lastname,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserInput holds the fields required to create a new user.
type CreateUserInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

// UpdateUserInput holds the fields that can be updated on a user.
// All fields are optional; only non-nil fields are applied.
type UpdateUserInput struct {
	Email     *string `json:"email"`
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role"`
}

// Validate checks registration rules: well-formed email, username of at
// least 3 characters, password of at least 5.
func (in CreateUserInput) Validate() error {
	if !validEmail(in.Email) {
		return ErrEmailInvalid
	}
	if len(strings.TrimSpace(in.Username)) < 3 {
		return ErrUsernameTooShort
	}
	if len(in.Password) < 5 {
		return ErrPasswordTooShort
	}
	return nil
}

func validEmail(s string) bool {
	at := strings.Index(s, "@")
	if at < 1 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	if strings.Contains(domain, "@") || !strings.Contains(domain, ".") {
		return false
	}
	return !strings.ContainsAny(s, " \t\n")
}
