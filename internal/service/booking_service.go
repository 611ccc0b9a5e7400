package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinicbook/internal/database"
	"clinicbook/internal/domain"
	"clinicbook/internal/events"
	"clinicbook/internal/metrics"
	"clinicbook/internal/models"
	"clinicbook/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrSlotUnavailable = errors.New("slot is not available")
)

// BookingService runs the booking pipeline: validation, date policy,
// availability, the guarded insert, and post-commit fan-out.
type BookingService struct {
	repo     domain.Repository
	clinic   *schedule.Clinic
	notifier domain.Notifier
	eventBus domain.EventPublisher
	worker   domain.SyncWorker
	logger   *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	clinic *schedule.Clinic,
	notifier domain.Notifier,
	eventBus domain.EventPublisher,
	worker domain.SyncWorker,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		repo:     repo,
		clinic:   clinic,
		notifier: notifier,
		eventBus: eventBus,
		worker:   worker,
		logger:   logger,
	}
}

// AvailableSlots resolves the open slots for a raw date string. Invalid, past
// and closed-day dates resolve to an empty list.
func (s *BookingService) AvailableSlots(ctx context.Context, rawDate string) ([]string, error) {
	date, err := s.clinic.ParseDate(rawDate)
	if err != nil {
		return []string{}, nil
	}
	if err := s.clinic.CheckDate(date); err != nil {
		return []string{}, nil
	}

	booked, err := s.repo.GetBookedSlots(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked slots: %w", err)
	}
	return s.clinic.Catalog().Remaining(booked), nil
}

// CreateBooking validates the request and persists the booking. The insert is
// the single authority on slot conflicts; the pre-check only produces a
// friendlier early rejection.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	age, err := validate(req)
	if err != nil {
		metrics.IncBookingRejected("validation")
		return nil, err
	}

	date, err := s.clinic.ParseDate(req.Date)
	if err != nil {
		metrics.IncBookingRejected("invalid_date")
		return nil, err
	}
	if err := s.clinic.CheckDate(date); err != nil {
		metrics.IncBookingRejected("date_policy")
		return nil, err
	}
	if !s.clinic.Catalog().Contains(req.Slot) {
		metrics.IncBookingRejected("unknown_slot")
		return nil, fmt.Errorf("%w: %q is not a clinic slot", ErrSlotUnavailable, req.Slot)
	}

	booked, err := s.repo.GetBookedSlots(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked slots: %w", err)
	}
	for _, taken := range booked {
		if taken == req.Slot {
			metrics.IncBookingRejected("slot_taken")
			return nil, fmt.Errorf("%w: %s on %s", ErrSlotUnavailable, req.Slot, req.Date)
		}
	}

	booking := &models.Booking{
		Reference:   uuid.NewString(),
		PatientName: req.PatientName,
		Age:         age,
		Phone:       req.Phone,
		Pain:        req.Pain,
		Conditions:  req.Conditions,
		Date:        date,
		Slot:        req.Slot,
		Status:      models.StatusConfirmed,
	}

	if err := s.repo.CreateBookingWithLock(ctx, booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncBookingRejected("slot_taken")
			return nil, fmt.Errorf("%w: %s on %s", ErrSlotUnavailable, req.Slot, req.Date)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("reference", booking.Reference).
		Str("date", booking.DateKey()).
		Str("slot", booking.Slot).
		Msg("booking created")

	s.publishCreated(booking)
	s.enqueueSync(ctx, booking)
	s.notifyStaff(booking)

	return booking, nil
}

// GetBooking loads one booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// GetBookingByReference loads one booking by its public reference; used by
// the confirmation page.
func (s *BookingService) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return s.repo.GetBookingByReference(ctx, reference)
}

// TodayKey returns today's date in the clinic timezone as YYYY-MM-DD.
func (s *BookingService) TodayKey() string {
	return s.clinic.Today().Format(models.DateLayout)
}

// ListBookings returns all bookings for the admin view.
func (s *BookingService) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.repo.ListBookings(ctx)
}

// BookingsByDateRange returns bookings between two dates inclusive.
func (s *BookingService) BookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) publishCreated(booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		Reference:   booking.Reference,
		PatientName: booking.PatientName,
		Date:        booking.DateKey(),
		Slot:        booking.Slot,
		Status:      booking.Status,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to publish booking event")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking) {
	if s.worker == nil {
		return
	}
	if err := s.worker.EnqueueUpsert(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to enqueue sheet sync")
	}
}

func (s *BookingService) notifyStaff(booking *models.Booking) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.NotifyBookingCreated(ctx, booking); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("staff notification error")
		}
	}()
}
