package web

import (
	"net/http"
	"time"

	"clinicbook/internal/models"

	"github.com/gorilla/securecookie"
)

const sessionName = "clinicbook_session"

// SessionManager issues and verifies the signed admin session cookie.
type SessionManager struct {
	sc *securecookie.SecureCookie
}

func NewSessionManager(hashKey, blockKey []byte) *SessionManager {
	return &SessionManager{sc: securecookie.New(hashKey, blockKey)}
}

// SetAdmin writes an authenticated admin session cookie.
func (s *SessionManager) SetAdmin(w http.ResponseWriter, username string) error {
	value := map[string]string{
		"user":    username,
		"expires": time.Now().Add(models.SessionTTLHours * time.Hour).Format(time.RFC3339),
	}
	encoded, err := s.sc.Encode(sessionName, value)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int((models.SessionTTLHours * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Admin returns the logged-in admin username, if the cookie is valid and
// unexpired.
func (s *SessionManager) Admin(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionName)
	if err != nil {
		return "", false
	}
	value := map[string]string{}
	if err := s.sc.Decode(sessionName, c.Value, &value); err != nil {
		return "", false
	}
	expires, err := time.Parse(time.RFC3339, value["expires"])
	if err != nil || time.Now().After(expires) {
		return "", false
	}
	user := value["user"]
	if user == "" {
		return "", false
	}
	return user, true
}

// Clear expires the session cookie.
func (s *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
