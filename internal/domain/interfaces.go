package domain

import (
	"context"
	"time"

	"clinicbook/internal/models"
)

// Repository is the persistence surface for bookings and the export queue.
type Repository interface {
	GetBookedSlots(ctx context.Context, date time.Time) ([]string, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// Notifier informs clinic staff about a new booking. Implementations must be
// safe for concurrent use; failures are the implementation's to report, the
// booking pipeline never blocks on them.
type Notifier interface {
	NotifyBookingCreated(ctx context.Context, booking *models.Booking) error
}

// RateLimitStore counts events per key within a sliding window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventPublisher fans out domain events to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker accepts spreadsheet synchronization jobs.
type SyncWorker interface {
	EnqueueUpsert(ctx context.Context, booking *models.Booking) error
}
