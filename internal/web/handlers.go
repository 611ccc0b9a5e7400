package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinicbook/internal/database"
	"clinicbook/internal/models"
	"clinicbook/internal/schedule"
	"clinicbook/internal/service"
)

type indexData struct {
	Date  string
	Slots []string
	Error string
	Form  service.BookingRequest
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.bookings.TodayKey()
	}

	slots, err := s.bookings.AvailableSlots(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("failed to resolve slots")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, http.StatusOK, "index.html", indexData{Date: date, Slots: slots})
}

// handleAvailableSlots serves the slot picker's JSON lookup.
func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	slots, err := s.bookings.AvailableSlots(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("failed to resolve slots")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": slots})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	allowed, err := s.limiter.Allow(r.Context(), "submit:"+clientIP(r),
		s.cfg.RateLimit.SubmissionsPerMinute, time.Duration(models.SubmitRateWindow)*time.Second)
	if err != nil {
		s.logger.Error().Err(err).Msg("rate limit check failed")
	}
	if !allowed {
		http.Error(w, "too many booking attempts, please wait a minute", http.StatusTooManyRequests)
		return
	}

	req := service.BookingRequest{
		PatientName: r.PostFormValue("name"),
		Age:         r.PostFormValue("age"),
		Phone:       r.PostFormValue("phone"),
		Pain:        r.PostFormValue("pain"),
		// The form may submit conditions as multiple values (checkboxes).
		Conditions: strings.Join(r.PostForm["conditions"], ", "),
		Date:       r.PostFormValue("date"),
		Slot:       r.PostFormValue("appointment"),
	}

	booking, err := s.bookings.CreateBooking(r.Context(), req)
	if err != nil {
		s.renderSubmitError(w, r, req, err)
		return
	}

	http.Redirect(w, r, "/confirmation?ref="+url.QueryEscape(booking.Reference), http.StatusSeeOther)
}

func (s *Server) renderSubmitError(w http.ResponseWriter, r *http.Request, req service.BookingRequest, err error) {
	status := http.StatusInternalServerError
	message := "something went wrong, please try again"

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		message = verr.Fields[0].Error()
	case errors.Is(err, schedule.ErrInvalidDate):
		status = http.StatusBadRequest
		message = "please pick a valid date"
	case errors.Is(err, schedule.ErrPastDate):
		status = http.StatusBadRequest
		message = "this date has already passed"
	case errors.Is(err, schedule.ErrClosedDay):
		status = http.StatusBadRequest
		message = "the clinic is closed on this day"
	case errors.Is(err, service.ErrSlotUnavailable):
		status = http.StatusConflict
		message = "this time slot was just taken, please pick another"
	default:
		s.logger.Error().Err(err).Msg("booking submission failed")
	}

	slots, slotsErr := s.bookings.AvailableSlots(r.Context(), req.Date)
	if slotsErr != nil {
		slots = []string{}
	}
	s.render(w, status, "index.html", indexData{
		Date:  req.Date,
		Slots: slots,
		Error: message,
		Form:  req,
	})
}

func (s *Server) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	booking, err := s.bookings.GetBookingByReference(r.Context(), ref)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error().Err(err).Str("reference", ref).Msg("failed to load booking")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, http.StatusOK, "confirmation.html", booking)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
