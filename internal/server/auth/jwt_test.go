package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/server/models"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken("doctor-123", models.RoleDoctor, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	identity, err := ParseIdentity(tok, secret)
	if err != nil {
		t.Fatalf("ParseIdentity error: %v", err)
	}
	if identity.UserID != "doctor-123" {
		t.Fatalf("userID mismatch: got %q want %q", identity.UserID, "doctor-123")
	}
	if identity.Role != models.RoleDoctor {
		t.Fatalf("role mismatch: got %q want %q", identity.Role, models.RoleDoctor)
	}
}

func TestParseIdentity_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken("u1", models.RolePatient, secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseIdentity(tok, secret)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseIdentity_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", models.RolePatient, []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseIdentity(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken for invalid signature, got %v", err)
	}
}

func TestParseIdentity_UnknownRole(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken("u3", models.Role("auditor"), secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseIdentity(tok, secret)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken for unknown role, got %v", err)
	}
}

func TestParseIdentity_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := ParseIdentity("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken for malformed token, got %v", err)
	}
}
