package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/auth"
	"github.com/jason-s-yu/csgames/internal/models"
)

type ctxKey int

const userKey ctxKey = 0

// userFrom returns the session user stored by withSession.
func userFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userKey).(uuid.UUID)
	return id
}

// EnsureGuest returns the caller's user id. A caller without a valid token gets a new
// guest profile and a fresh auth cookie.
func (s *Server) EnsureGuest(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if token := tokenFromRequest(r); token != "" {
		if sess, err := auth.AuthenticateJWT(token); err == nil {
			return sess.UserID, nil
		}
	}

	guest := models.NewGuestProfile(uuid.New())
	if _, err := s.Store.EnsureProfile(r.Context(), guest); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create guest profile: %w", err)
	}
	newToken, err := auth.CreateJWT(auth.Session{UserID: guest.ID})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create guest JWT: %w", err)
	}
	cookie := &http.Cookie{
		Name:     auth.CookieName,
		Value:    newToken,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Production,
	}
	if auth.TokenExpiry > 0 {
		cookie.Expires = time.Now().Add(auth.TokenExpiry)
	}
	http.SetCookie(w, cookie)
	s.Logger.WithField("user", guest.ID).Debug("guest session issued")
	return guest.ID, nil
}

// withSession resolves the caller before the handler runs.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.EnsureGuest(w, r)
		if err != nil {
			writeError(w, s.Logger, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, id)))
	})
}

// SessionHandler is getCurrentSession: it returns the caller's profile.
func (s *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	id := userFrom(r.Context())
	p, err := s.Store.EnsureProfile(r.Context(), models.NewGuestProfile(id))
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": p})
}
