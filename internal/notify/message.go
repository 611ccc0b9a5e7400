package notify

import (
	"fmt"
	"strings"

	"clinicbook/internal/models"
)

const bookingSubject = "New Patient Booking"

// bookingBody renders the plain-text staff message with all booking fields in
// a fixed order.
func bookingBody(b *models.Booking) string {
	var sb strings.Builder
	sb.WriteString("New Patient Booking:\n")
	fmt.Fprintf(&sb, "Name: %s\n", b.PatientName)
	fmt.Fprintf(&sb, "Age: %d\n", b.Age)
	fmt.Fprintf(&sb, "Phone: %s\n", b.Phone)
	fmt.Fprintf(&sb, "Pain: %s\n", b.Pain)
	fmt.Fprintf(&sb, "Conditions: %s\n", b.Conditions)
	fmt.Fprintf(&sb, "Date: %s\n", b.DateKey())
	fmt.Fprintf(&sb, "Appointment: %s\n", b.Slot)
	fmt.Fprintf(&sb, "Reference: %s\n", b.Reference)
	return sb.String()
}
