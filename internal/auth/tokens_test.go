package auth

import (
	"testing"
	"time"
)

func testIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(IssuerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		ResetSecret:   "reset-secret",
		AccessTTL:     4 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		ResetTTL:      4 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewIssuer() error: %v", err)
	}
	return issuer
}

func TestNewIssuer_MissingSecret(t *testing.T) {
	_, err := NewIssuer(IssuerConfig{
		AccessSecret:  "a",
		RefreshSecret: "",
		ResetSecret:   "c",
	})
	if err == nil {
		t.Fatal("expected error for missing refresh secret")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.IssueAccessToken(Identity{UserID: 42, Username: "alice"})
	if err != nil {
		t.Fatalf("IssueAccessToken() error: %v", err)
	}

	claims, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username alice, got %q", claims.Username)
	}
}

func TestRefreshTokenCarriesIdentity(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.IssueRefreshToken(Identity{UserID: 7, Username: "bob"})
	if err != nil {
		t.Fatalf("IssueRefreshToken() error: %v", err)
	}

	claims, err := issuer.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("VerifyRefreshToken() error: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "bob" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestSecretsAreIndependent(t *testing.T) {
	issuer := testIssuer(t)

	access, err := issuer.IssueAccessToken(Identity{UserID: 1, Username: "alice"})
	if err != nil {
		t.Fatalf("IssueAccessToken() error: %v", err)
	}
	refresh, err := issuer.IssueRefreshToken(Identity{UserID: 1, Username: "alice"})
	if err != nil {
		t.Fatalf("IssueRefreshToken() error: %v", err)
	}

	if _, err := issuer.VerifyRefreshToken(access); err != ErrInvalidToken {
		t.Errorf("access token verified against refresh secret: %v", err)
	}
	if _, err := issuer.VerifyAccessToken(refresh); err != ErrInvalidToken {
		t.Errorf("refresh token verified against access secret: %v", err)
	}
}

func TestExpiredTokenCollapsesToInvalid(t *testing.T) {
	issuer := testIssuer(t)

	issued := time.Now()
	issuer.now = func() time.Time { return issued }

	token, err := issuer.IssueAccessToken(Identity{UserID: 1, Username: "alice"})
	if err != nil {
		t.Fatalf("IssueAccessToken() error: %v", err)
	}

	issuer.now = func() time.Time { return issued.Add(5 * time.Hour) }

	if _, err := issuer.VerifyAccessToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestMalformedTokenCollapsesToInvalid(t *testing.T) {
	issuer := testIssuer(t)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := issuer.VerifyAccessToken(token); err != ErrInvalidToken {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestPasswordResetTokenRoundTrip(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.IssuePasswordResetToken(99)
	if err != nil {
		t.Fatalf("IssuePasswordResetToken() error: %v", err)
	}

	userID, err := issuer.VerifyPasswordResetToken(token)
	if err != nil {
		t.Fatalf("VerifyPasswordResetToken() error: %v", err)
	}
	if userID != 99 {
		t.Errorf("expected user id 99, got %d", userID)
	}

	// A reset token must not pass as an access token.
	if _, err := issuer.VerifyAccessToken(token); err != ErrInvalidToken {
		t.Errorf("reset token verified against access secret: %v", err)
	}
}
