package services

import (
	"ticketing-engine/internal/models"
)

// ticketLookupRepository defines the ticket operations the verification surface needs
type ticketLookupRepository interface {
	GetByNumber(ticketNumber string) (*models.Ticket, error)
	CheckIn(ticketNumber string) (*models.Ticket, error)
}

// TicketService is the door-side verification surface: verify a token,
// check a ticket in, renew a token.
type TicketService struct {
	tickets      ticketLookupRepository
	verification *VerificationService
}

// NewTicketService creates a new ticket service
func NewTicketService(tickets ticketLookupRepository, verification *VerificationService) *TicketService {
	return &TicketService{
		tickets:      tickets,
		verification: verification,
	}
}

// Verify resolves a verification token for the requested ticket. The
// token must be bound to that exact ticket number; a valid token for a
// different ticket reveals nothing about the requested one.
func (s *TicketService) Verify(ticketNumber, token string) (*models.Ticket, error) {
	subject, err := s.verification.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	if subject != ticketNumber {
		return nil, models.ErrTicketNotFound
	}

	return s.tickets.GetByNumber(subject)
}

// CheckIn verifies a token and redeems its ticket. A ticket that was
// already used or cancelled cannot be redeemed again.
func (s *TicketService) CheckIn(token string) (*models.Ticket, error) {
	ticketNumber, err := s.verification.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByNumber(ticketNumber)
	if err != nil {
		return nil, err
	}

	if !ticket.CanCheckIn() {
		return nil, models.ErrNotEligible
	}

	return s.tickets.CheckIn(ticketNumber)
}

// RenewToken exchanges a valid token for a fresh one, as long as the
// ticket is still active.
func (s *TicketService) RenewToken(token string) (string, error) {
	ticketNumber, err := s.verification.VerifyToken(token)
	if err != nil {
		return "", err
	}

	ticket, err := s.tickets.GetByNumber(ticketNumber)
	if err != nil {
		return "", err
	}

	if !ticket.IsActive() {
		return "", models.ErrInvalidToken
	}

	return s.verification.MintToken(ticket.TicketNumber)
}
