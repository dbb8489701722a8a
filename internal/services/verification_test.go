package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ticketing-engine/internal/models"
)

func TestVerificationRoundTrip(t *testing.T) {
	s := NewVerificationService("test-secret", 24*time.Hour, "http://localhost:8080/verify")

	token, err := s.MintToken("TKT-20260828-000123")
	if err != nil {
		t.Fatalf("MintToken() error: %v", err)
	}

	ticketNumber, err := s.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() error: %v", err)
	}
	if ticketNumber != "TKT-20260828-000123" {
		t.Errorf("VerifyToken() = %q, want the minted ticket number", ticketNumber)
	}
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	s := NewVerificationService("test-secret", 24*time.Hour, "http://localhost:8080/verify")

	token, err := s.MintToken("TKT-20260828-000123")
	if err != nil {
		t.Fatalf("MintToken() error: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := s.VerifyToken(tampered); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("VerifyToken(tampered) error = %v, want ErrInvalidToken", err)
	}

	if _, err := s.VerifyToken("not-a-token"); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("VerifyToken(garbage) error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	minter := NewVerificationService("secret-a", 24*time.Hour, "http://localhost:8080/verify")
	verifier := NewVerificationService("secret-b", 24*time.Hour, "http://localhost:8080/verify")

	token, err := minter.MintToken("TKT-20260828-000123")
	if err != nil {
		t.Fatalf("MintToken() error: %v", err)
	}

	if _, err := verifier.VerifyToken(token); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("VerifyToken(foreign secret) error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	s := NewVerificationService("test-secret", -time.Minute, "http://localhost:8080/verify")

	token, err := s.MintToken("TKT-20260828-000123")
	if err != nil {
		t.Fatalf("MintToken() error: %v", err)
	}

	if _, err := s.VerifyToken(token); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("VerifyToken(expired) error = %v, want ErrInvalidToken", err)
	}
}

func TestRenewToken(t *testing.T) {
	s := NewVerificationService("test-secret", 24*time.Hour, "http://localhost:8080/verify")

	token, err := s.MintToken("TKT-20260828-000123")
	if err != nil {
		t.Fatalf("MintToken() error: %v", err)
	}

	renewed, err := s.RenewToken(token)
	if err != nil {
		t.Fatalf("RenewToken() error: %v", err)
	}

	ticketNumber, err := s.VerifyToken(renewed)
	if err != nil {
		t.Fatalf("VerifyToken(renewed) error: %v", err)
	}
	if ticketNumber != "TKT-20260828-000123" {
		t.Errorf("renewed token resolves to %q, want original ticket number", ticketNumber)
	}

	if _, err := s.RenewToken("garbage"); !errors.Is(err, models.ErrInvalidToken) {
		t.Errorf("RenewToken(garbage) error = %v, want ErrInvalidToken", err)
	}
}

func TestVerificationURL(t *testing.T) {
	s := NewVerificationService("test-secret", 24*time.Hour, "http://localhost:8080/verify")

	url := s.VerificationURL("TKT-20260828-000123")
	if !strings.HasPrefix(url, "http://localhost:8080/verify/TKT-20260828-000123?token=") {
		t.Errorf("VerificationURL() = %q, want ticket path with token query", url)
	}
}
