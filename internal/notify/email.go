package notify

import (
	"context"
	"fmt"

	"clinicbook/internal/config"
	"clinicbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailChannel delivers staff notifications through SendGrid.
type EmailChannel struct {
	client     *sendgrid.Client
	fromEmail  string
	fromName   string
	staffEmail string
	logger     *zerolog.Logger
}

// NewEmailChannel returns nil when no API key is configured.
func NewEmailChannel(cfg config.MailConfig, logger *zerolog.Logger) *EmailChannel {
	if cfg.SendGridAPIKey == "" {
		return nil
	}
	return &EmailChannel{
		client:     sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		staffEmail: cfg.StaffEmail,
		logger:     logger,
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, booking *models.Booking) error {
	from := mail.NewEmail(c.fromName, c.fromEmail)
	to := mail.NewEmail("", c.staffEmail)
	body := bookingBody(booking)
	message := mail.NewSingleEmail(from, bookingSubject, to, body, body)

	response, err := c.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	c.logger.Info().
		Str("to", c.staffEmail).
		Int("status", response.StatusCode).
		Str("reference", booking.Reference).
		Msg("booking email sent")
	return nil
}
