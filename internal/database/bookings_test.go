package database

import (
	"context"
	"os"
	"testing"
	"time"

	"clinicbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBooking(date, slot string) *models.Booking {
	d, _ := time.Parse(models.DateLayout, date)
	return &models.Booking{
		Reference:   "ref-" + date + "-" + slot,
		PatientName: "Jane Doe",
		Age:         34,
		Phone:       "+201001234567",
		Pain:        "toothache",
		Conditions:  "diabetes, hypertension",
		Date:        d,
		Slot:        slot,
		Status:      models.StatusConfirmed,
	}
}

func TestCreateBookingWithLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	booking := testBooking("2024-06-10", "3:00 PM")
	err := db.CreateBookingWithLock(ctx, booking)
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)
	assert.False(t, booking.CreatedAt.IsZero())

	t.Run("DuplicateSlotRejected", func(t *testing.T) {
		dup := testBooking("2024-06-10", "3:00 PM")
		dup.Reference = "ref-other"
		err := db.CreateBookingWithLock(ctx, dup)
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("SameSlotOtherDateAllowed", func(t *testing.T) {
		other := testBooking("2024-06-11", "3:00 PM")
		assert.NoError(t, db.CreateBookingWithLock(ctx, other))
	})
}

func TestGetBookedSlots(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingWithLock(ctx, testBooking("2024-06-10", "3:00 PM")))
	require.NoError(t, db.CreateBookingWithLock(ctx, testBooking("2024-06-10", "4:30 PM")))
	require.NoError(t, db.CreateBookingWithLock(ctx, testBooking("2024-06-11", "3:30 PM")))

	date, _ := time.Parse(models.DateLayout, "2024-06-10")
	slots, err := db.GetBookedSlots(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"3:00 PM", "4:30 PM"}, slots)

	empty, err := db.GetBookedSlots(ctx, date.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := testBooking("2024-06-10", "3:00 PM")
	require.NoError(t, db.CreateBookingWithLock(ctx, created))

	got, err := db.GetBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Reference, got.Reference)
	assert.Equal(t, "Jane Doe", got.PatientName)
	assert.Equal(t, 34, got.Age)
	assert.Equal(t, "2024-06-10", got.DateKey())
	assert.Equal(t, "3:00 PM", got.Slot)

	_, err = db.GetBooking(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBookingByReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := testBooking("2024-06-10", "3:00 PM")
	require.NoError(t, db.CreateBookingWithLock(ctx, created))

	got, err := db.GetBookingByReference(ctx, created.Reference)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = db.GetBookingByReference(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingWithLock(ctx, testBooking("2024-06-12", "3:00 PM")))
	require.NoError(t, db.CreateBookingWithLock(ctx, testBooking("2024-06-10", "3:00 PM")))

	bookings, err := db.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "2024-06-10", bookings[0].DateKey())
	assert.Equal(t, "2024-06-12", bookings[1].DateKey())
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingWithLock(ctx, testBooking("2024-06-09", "3:00 PM")))
	require.NoError(t, db.CreateBookingWithLock(ctx, testBooking("2024-06-10", "3:00 PM")))
	require.NoError(t, db.CreateBookingWithLock(ctx, testBooking("2024-06-20", "3:00 PM")))

	start, _ := time.Parse(models.DateLayout, "2024-06-09")
	end, _ := time.Parse(models.DateLayout, "2024-06-10")
	bookings, err := db.GetBookingsByDateRange(ctx, start, end)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
}

func TestSyncTaskLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{
		TaskType:  "upsert",
		BookingID: 1,
		Payload:   `{"booking_id":1}`,
		Status:    "pending",
	}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.NotZero(t, task.ID)

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "upsert", pending[0].TaskType)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil))

	pending, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	t.Run("RetryIncrementsCount", func(t *testing.T) {
		retry := &models.SyncTask{TaskType: "upsert", BookingID: 2, Payload: `{}`, Status: "pending"}
		require.NoError(t, db.CreateSyncTask(ctx, retry))

		past := time.Now().Add(-time.Minute)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, retry.ID, "retry", "boom", &past))

		due, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, 1, due[0].RetryCount)
		require.NotNil(t, due[0].LastError)
		assert.Equal(t, "boom", *due[0].LastError)
	})
}
