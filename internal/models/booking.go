package models

import "time"

type Booking struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	PatientName string    `json:"patient_name"`
	Age         int       `json:"age"`
	Phone       string    `json:"phone"`
	Pain        string    `json:"pain"`
	Conditions  string    `json:"conditions"`
	Date        time.Time `json:"date"`
	Slot        string    `json:"slot"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DateKey returns the booking date in the canonical storage format.
func (b *Booking) DateKey() string {
	return b.Date.Format(DateLayout)
}
