package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"clinicbook/internal/models"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrPastDate    = errors.New("date is in the past")
	ErrClosedDay   = errors.New("clinic is closed on this day")
)

// Clinic combines the slot catalog with the clinic's date policy: a fixed
// timezone and one weekly closed day.
type Clinic struct {
	catalog *Catalog
	loc     *time.Location
	closed  time.Weekday

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewClinic(catalog *Catalog, timezone, closedWeekday string) (*Clinic, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load clinic timezone %q: %w", timezone, err)
	}

	closed, err := parseWeekday(closedWeekday)
	if err != nil {
		return nil, err
	}

	return &Clinic{catalog: catalog, loc: loc, closed: closed, Now: time.Now}, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown closed weekday %q", name)
}

// Catalog returns the clinic's slot catalog.
func (c *Clinic) Catalog() *Catalog {
	return c.catalog
}

// Location returns the clinic's fixed timezone.
func (c *Clinic) Location() *time.Location {
	return c.loc
}

// Today returns midnight of the current day in the clinic timezone.
func (c *Clinic) Today() time.Time {
	now := c.Now().In(c.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
}

// ParseDate parses a YYYY-MM-DD string as a calendar date in the clinic
// timezone.
func (c *Clinic) ParseDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(raw), c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return date, nil
}

// CheckDate rejects dates strictly before today and dates on the weekly
// closed day.
func (c *Clinic) CheckDate(date time.Time) error {
	if date.Before(c.Today()) {
		return ErrPastDate
	}
	if date.Weekday() == c.closed {
		return ErrClosedDay
	}
	return nil
}

// AvailableSlots resolves availability for a raw date string given the slot
// labels already booked for that date. Any policy violation, including an
// unparsable date, yields an empty list rather than an error.
func (c *Clinic) AvailableSlots(raw string, booked []string) []string {
	date, err := c.ParseDate(raw)
	if err != nil {
		return []string{}
	}
	if err := c.CheckDate(date); err != nil {
		return []string{}
	}
	return c.catalog.Remaining(booked)
}
