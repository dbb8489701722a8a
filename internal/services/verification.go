package services

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ticketing-engine/internal/models"
)

// VerificationService mints and verifies signed ticket verification
// tokens. Tokens are short-lived and renewable: verifying an expired
// ticket fails, but a fresh token can be minted for any ticket that is
// still active.
type VerificationService struct {
	secret   []byte
	tokenTTL time.Duration
	baseURL  string
}

// NewVerificationService creates a new verification service
func NewVerificationService(secret string, tokenTTL time.Duration, baseURL string) *VerificationService {
	return &VerificationService{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		baseURL:  baseURL,
	}
}

// MintToken creates a signed token for a ticket number.
func (s *VerificationService) MintToken(ticketNumber string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ticketNumber,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign verification token: %w", err)
	}

	return signed, nil
}

// VerifyToken validates a token and returns the ticket number it was
// minted for. Tampered, malformed, and expired tokens all map to
// ErrInvalidToken.
func (s *VerificationService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", models.ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", models.ErrInvalidToken
	}

	return claims.Subject, nil
}

// RenewToken exchanges a still-valid token for a fresh one with a full
// lifetime.
func (s *VerificationService) RenewToken(tokenString string) (string, error) {
	ticketNumber, err := s.VerifyToken(tokenString)
	if err != nil {
		return "", err
	}

	return s.MintToken(ticketNumber)
}

// VerificationURL builds the verification link embedded in a ticket.
// If token minting fails the link degrades to the bare ticket lookup.
func (s *VerificationService) VerificationURL(ticketNumber string) string {
	token, err := s.MintToken(ticketNumber)
	if err != nil {
		return fmt.Sprintf("%s/%s", s.baseURL, ticketNumber)
	}

	return fmt.Sprintf("%s/%s?token=%s", s.baseURL, ticketNumber, url.QueryEscape(token))
}
