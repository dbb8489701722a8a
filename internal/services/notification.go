package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ticketing-engine/internal/models"
)

// NotificationDispatcher delivers customer-facing notifications.
// Delivery is best effort: issuance and reconciliation never fail
// because a notification could not be sent.
type NotificationDispatcher interface {
	SendBookingCreated(booking *models.Booking, checkoutURL string) error
	SendTicketsIssued(booking *models.Booking, tickets []*models.Ticket) error
	SendBookingExpired(booking *models.Booking) error
}

// ResendDispatcher sends notifications through the Resend email API.
type ResendDispatcher struct {
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
}

// NewResendDispatcher creates a new Resend-backed dispatcher
func NewResendDispatcher(apiKey, fromEmail, fromName string) *ResendDispatcher {
	return &ResendDispatcher{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type resendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendBookingCreated emails the customer their booking confirmation,
// with the checkout link when payment is still due.
func (d *ResendDispatcher) SendBookingCreated(booking *models.Booking, checkoutURL string) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<h2>Booking %s received</h2>", booking.BookingNumber))
	if checkoutURL != "" {
		sb.WriteString(fmt.Sprintf(`<p><a href="%s">Complete your payment</a> to receive your tickets.</p>`, checkoutURL))
	}

	subject := fmt.Sprintf("Booking %s received", booking.BookingNumber)
	return d.send(booking.CustomerEmail, subject, sb.String())
}

// SendTicketsIssued emails the customer their issued tickets.
func (d *ResendDispatcher) SendTicketsIssued(booking *models.Booking, tickets []*models.Ticket) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<h2>Your tickets for booking %s</h2>", booking.BookingNumber))
	sb.WriteString("<ul>")
	for _, ticket := range tickets {
		sb.WriteString(fmt.Sprintf(`<li>%s &mdash; <a href="%s">verify</a></li>`, ticket.TicketNumber, ticket.VerificationURL))
	}
	sb.WriteString("</ul>")

	subject := fmt.Sprintf("Your tickets are ready (%s)", booking.BookingNumber)
	return d.send(booking.CustomerEmail, subject, sb.String())
}

// SendBookingExpired tells the customer their checkout session lapsed.
func (d *ResendDispatcher) SendBookingExpired(booking *models.Booking) error {
	html := fmt.Sprintf(
		"<p>Your booking %s expired before payment completed. The held tickets have been released; you are welcome to book again.</p>",
		booking.BookingNumber)

	subject := fmt.Sprintf("Booking %s expired", booking.BookingNumber)
	return d.send(booking.CustomerEmail, subject, html)
}

func (d *ResendDispatcher) send(to, subject, html string) error {
	if d.apiKey == "" {
		return fmt.Errorf("resend API key not configured")
	}

	payload := resendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", d.fromName, d.fromEmail),
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email request failed with status %d", resp.StatusCode)
	}

	return nil
}

// LogDispatcher writes notifications to the log instead of sending
// them. Used in development and wherever no email provider is
// configured.
type LogDispatcher struct {
	log *logrus.Logger
}

// NewLogDispatcher creates a new logging dispatcher
func NewLogDispatcher(log *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// SendBookingCreated logs the new booking.
func (d *LogDispatcher) SendBookingCreated(booking *models.Booking, checkoutURL string) error {
	d.log.WithFields(logrus.Fields{
		"booking_number": booking.BookingNumber,
		"customer_email": booking.CustomerEmail,
		"checkout_url":   checkoutURL,
	}).Info("booking created notification")

	return nil
}

// SendTicketsIssued logs the issued ticket numbers.
func (d *LogDispatcher) SendTicketsIssued(booking *models.Booking, tickets []*models.Ticket) error {
	numbers := make([]string, len(tickets))
	for i, ticket := range tickets {
		numbers[i] = ticket.TicketNumber
	}

	d.log.WithFields(logrus.Fields{
		"booking_number": booking.BookingNumber,
		"customer_email": booking.CustomerEmail,
		"tickets":        strings.Join(numbers, ","),
	}).Info("tickets issued notification")

	return nil
}

// SendBookingExpired logs the expiry.
func (d *LogDispatcher) SendBookingExpired(booking *models.Booking) error {
	d.log.WithFields(logrus.Fields{
		"booking_number": booking.BookingNumber,
		"customer_email": booking.CustomerEmail,
	}).Info("booking expired notification")

	return nil
}
