package web

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

type loginData struct {
	Error string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.Admin(r); ok {
		http.Redirect(w, r, "/bookings", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html", loginData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if !s.checkCredentials(username, password) {
		s.logger.Warn().Str("username", username).Str("remote", clientIP(r)).Msg("failed admin login")
		s.render(w, http.StatusUnauthorized, "login.html", loginData{Error: "invalid username or password"})
		return
	}

	if err := s.sessions.SetAdmin(w, username); err != nil {
		s.logger.Error().Err(err).Msg("failed to write session cookie")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/bookings", http.StatusSeeOther)
}

// checkCredentials compares against the configured admin account. The error
// shown to the client never says which part was wrong.
func (s *Server) checkCredentials(username, password string) bool {
	if s.cfg.Admin.Username == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Admin.Username)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(s.cfg.Admin.PasswordHash), []byte(password)) == nil
	return userOK && passOK
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessions.Admin(r); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListBookings(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list bookings")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "bookings.html", map[string]any{"Bookings": bookings})
}

func (s *Server) handleBookingsExport(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListBookings(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list bookings for export")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	filePath, err := writeBookingsExport(s.cfg.Exports.Path, bookings)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build export file")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=bookings.xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, filePath)
}
