package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"clinicbook/internal/database"
	"clinicbook/internal/models"
	"clinicbook/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedNotifier struct {
	mu       sync.Mutex
	bookings []*models.Booking
	done     chan struct{}
}

func newCapturedNotifier() *capturedNotifier {
	return &capturedNotifier{done: make(chan struct{}, 16)}
}

func (n *capturedNotifier) NotifyBookingCreated(ctx context.Context, booking *models.Booking) error {
	n.mu.Lock()
	n.bookings = append(n.bookings, booking)
	n.mu.Unlock()
	n.done <- struct{}{}
	return nil
}

func (n *capturedNotifier) wait(t *testing.T) *models.Booking {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bookings[len(n.bookings)-1]
}

type capturedEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *capturedEvents) PublishJSON(eventType string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventType)
	return nil
}

type capturedWorker struct {
	mu       sync.Mutex
	enqueued []*models.Booking
	err      error
}

func (w *capturedWorker) EnqueueUpsert(ctx context.Context, booking *models.Booking) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enqueued = append(w.enqueued, booking)
	return w.err
}

func setupService(t *testing.T) (*BookingService, *capturedNotifier, *capturedEvents, *capturedWorker) {
	t.Helper()
	logger := zerolog.New(os.Stdout)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := schedule.NewCatalog(15, 22, 30)
	clinic, err := schedule.NewClinic(catalog, "Africa/Cairo", "Friday")
	require.NoError(t, err)
	// Pin the clock to Sunday 2024-06-09 so the test dates stay in the future.
	clinic.Now = func() time.Time {
		return time.Date(2024, 6, 9, 12, 0, 0, 0, clinic.Location())
	}

	notifier := newCapturedNotifier()
	bus := &capturedEvents{}
	worker := &capturedWorker{}
	svc := NewBookingService(db, clinic, notifier, bus, worker, &logger)
	return svc, notifier, bus, worker
}

func validRequest() BookingRequest {
	return BookingRequest{
		PatientName: "Jane Doe",
		Age:         "34",
		Phone:       "+201001234567",
		Pain:        "toothache",
		Conditions:  "none",
		Date:        "2024-06-10",
		Slot:        "3:30 PM",
	}
}

func TestCreateBooking(t *testing.T) {
	svc, notifier, bus, worker := setupService(t)
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	assert.NotZero(t, booking.ID)
	assert.NotEmpty(t, booking.Reference)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.Equal(t, 34, booking.Age)
	assert.Equal(t, "2024-06-10", booking.DateKey())

	notified := notifier.wait(t)
	assert.Equal(t, booking.Reference, notified.Reference)

	bus.mu.Lock()
	assert.Equal(t, []string{"booking_created"}, bus.events)
	bus.mu.Unlock()

	worker.mu.Lock()
	require.Len(t, worker.enqueued, 1)
	worker.mu.Unlock()
}

func TestCreateBookingRejectsDuplicateSlot(t *testing.T) {
	svc, notifier, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)
	notifier.wait(t)

	req := validRequest()
	req.PatientName = "John Roe"
	_, err = svc.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestCreateBookingAllowsSameSlotOtherDate(t *testing.T) {
	svc, notifier, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)
	notifier.wait(t)

	req := validRequest()
	req.Date = "2024-06-11"
	booking, err := svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-11", booking.DateKey())
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*BookingRequest)
		field  string
	}{
		{"missing name", func(r *BookingRequest) { r.PatientName = "" }, "name"},
		{"missing phone", func(r *BookingRequest) { r.Phone = "  " }, "phone"},
		{"missing pain", func(r *BookingRequest) { r.Pain = "" }, "pain"},
		{"missing slot", func(r *BookingRequest) { r.Slot = "" }, "appointment"},
		{"non-numeric age", func(r *BookingRequest) { r.Age = "abc" }, "age"},
		{"negative age", func(r *BookingRequest) { r.Age = "-3" }, "age"},
		{"zero age", func(r *BookingRequest) { r.Age = "0" }, "age"},
		{"absurd age", func(r *BookingRequest) { r.Age = "130" }, "age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateBooking(ctx, req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)

			found := false
			for _, f := range verr.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected a %s field error, got %v", tt.field, verr.Fields)
		})
	}
}

func TestCreateBookingOptionalConditions(t *testing.T) {
	svc, notifier, _, _ := setupService(t)

	req := validRequest()
	req.Conditions = ""
	booking, err := svc.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, booking.Conditions)
	notifier.wait(t)
}

func TestCreateBookingDatePolicy(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		date string
		want error
	}{
		{"past date", "2024-06-08", schedule.ErrPastDate},
		{"closed friday", "2024-06-14", schedule.ErrClosedDay},
		{"garbage date", "not-a-date", schedule.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.Date = tt.date
			_, err := svc.CreateBooking(ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateBookingUnknownSlot(t *testing.T) {
	svc, _, _, _ := setupService(t)

	req := validRequest()
	req.Slot = "2:00 AM"
	_, err := svc.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestAvailableSlots(t *testing.T) {
	svc, notifier, _, _ := setupService(t)
	ctx := context.Background()

	slots, err := svc.AvailableSlots(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.Len(t, slots, 15)
	assert.Equal(t, "3:00 PM", slots[0])
	assert.Equal(t, "10:00 PM", slots[len(slots)-1])

	_, err = svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)
	notifier.wait(t)

	slots, err = svc.AvailableSlots(ctx, "2024-06-10")
	require.NoError(t, err)
	assert.Len(t, slots, 14)
	assert.NotContains(t, slots, "3:30 PM")
}

func TestAvailableSlotsFailClosed(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	for _, date := range []string{"2024-06-08", "2024-06-14", "06/10/2024", ""} {
		slots, err := svc.AvailableSlots(ctx, date)
		require.NoError(t, err)
		assert.Empty(t, slots, "date %q should resolve to no slots", date)
	}
}

func TestCreateBookingWorksWithoutOptionalCollaborators(t *testing.T) {
	svc, _, _, _ := setupService(t)
	svc.notifier = nil
	svc.eventBus = nil
	svc.worker = nil

	booking, err := svc.CreateBooking(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)
}

func TestGetBookingNotFound(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.GetBooking(context.Background(), 999)
	assert.True(t, errors.Is(err, database.ErrNotFound))
}
