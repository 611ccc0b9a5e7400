package notify

import (
	"context"

	"clinicbook/internal/metrics"
	"clinicbook/internal/models"

	"github.com/rs/zerolog"
)

// Channel is one staff notification transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, booking *models.Booking) error
}

// Service fans a booking notification out to all configured channels.
// Delivery is best-effort: failures are logged and counted, never returned to
// the booking pipeline.
type Service struct {
	channels []Channel
	logger   *zerolog.Logger
}

func NewService(logger *zerolog.Logger, channels ...Channel) *Service {
	active := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			active = append(active, ch)
		}
	}
	return &Service{channels: active, logger: logger}
}

// Channels returns the number of active channels.
func (s *Service) Channels() int {
	return len(s.channels)
}

func (s *Service) NotifyBookingCreated(ctx context.Context, booking *models.Booking) error {
	for _, ch := range s.channels {
		if err := ch.Send(ctx, booking); err != nil {
			metrics.IncNotifyFailure(ch.Name())
			s.logger.Error().Err(err).
				Str("channel", ch.Name()).
				Str("reference", booking.Reference).
				Msg("staff notification failed")
		}
	}
	return nil
}
