package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinicbook/internal/models"
)

// GetBookedSlots returns the slot labels already booked for the given date,
// in insertion order. Bookings on other dates are not included.
func (db *DB) GetBookedSlots(ctx context.Context, date time.Time) ([]string, error) {
	query := `SELECT slot FROM bookings WHERE date = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, date.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get booked slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// CreateBookingWithLock re-checks the slot and inserts the booking inside a
// single transaction, so two concurrent submissions for the same (date, slot)
// cannot both succeed. The UNIQUE(date, slot) constraint backs this up.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var taken int
	queryCount := `SELECT COUNT(*) FROM bookings WHERE date = ? AND slot = ?`
	err = tx.QueryRowContext(ctx, queryCount, booking.DateKey(), booking.Slot).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if taken > 0 {
		return ErrSlotTaken
	}

	queryInsert := `INSERT INTO bookings (
				reference, patient_name, age, phone, pain, conditions,
				date, slot, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		booking.Reference,
		booking.PatientName,
		booking.Age,
		booking.Phone,
		booking.Pain,
		booking.Conditions,
		booking.DateKey(),
		booking.Slot,
		booking.Status,
		now,
		now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return tx.Commit()
}

// GetBooking returns a booking by ID.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT id, reference, patient_name, age, phone, pain, conditions,
	                 date, slot, status, created_at, updated_at
	          FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetBookingByReference returns a booking by its public reference.
func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT id, reference, patient_name, age, phone, pain, conditions,
	                 date, slot, status, created_at, updated_at
	          FROM bookings WHERE reference = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking by reference: %w", err)
	}
	return booking, nil
}

// ListBookings returns all bookings ordered by date then slot insertion.
func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT id, reference, patient_name, age, phone, pain, conditions,
	                 date, slot, status, created_at, updated_at
	          FROM bookings ORDER BY date ASC, id ASC`
	return db.queryBookings(ctx, query)
}

// GetBookingsByDateRange returns bookings with date in [start, end].
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT id, reference, patient_name, age, phone, pain, conditions,
	                 date, slot, status, created_at, updated_at
	          FROM bookings WHERE date >= ? AND date <= ? ORDER BY date ASC, id ASC`
	return db.queryBookings(ctx, query, start.Format(models.DateLayout), end.Format(models.DateLayout))
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var dateStr string
	err := row.Scan(
		&b.ID, &b.Reference, &b.PatientName, &b.Age, &b.Phone, &b.Pain,
		&b.Conditions, &dateStr, &b.Slot, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	return b, nil
}
