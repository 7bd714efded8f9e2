package user

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func hashForTest(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(b), err
}

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateUserInput
		wantErr error
	}{
		{
			name:    "valid input",
			input:   CreateUserInput{Email: "alice@example.com", Username: "alice", Password: "secret"},
			wantErr: nil,
		},
		{
			name:    "email without at sign",
			input:   CreateUserInput{Email: "alice.example.com", Username: "alice", Password: "secret"},
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "email without domain",
			input:   CreateUserInput{Email: "alice@", Username: "alice", Password: "secret"},
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "email without tld",
			input:   CreateUserInput{Email: "alice@localhost", Username: "alice", Password: "secret"},
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "username too short",
			input:   CreateUserInput{Email: "alice@example.com", Username: "al", Password: "secret"},
			wantErr: ErrUsernameTooShort,
		},
		{
			name:    "whitespace-only username",
			input:   CreateUserInput{Email: "alice@example.com", Username: "    ", Password: "secret"},
			wantErr: ErrUsernameTooShort,
		},
		{
			name:    "password too short",
			input:   CreateUserInput{Email: "alice@example.com", Username: "alice", Password: "pw"},
			wantErr: ErrPasswordTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.input.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	u := &User{}
	hashed, err := hashForTest("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	u.PasswordHash = hashed

	if !CheckPassword(u, "correct horse") {
		t.Error("expected matching password to verify")
	}
	if CheckPassword(u, "wrong") {
		t.Error("expected non-matching password to fail")
	}
}
