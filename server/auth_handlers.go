package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
	"github.com/d-j-kendall/roast-my-playlist/sessions"
)

const sessionCookieName = "sessionId"

// Login redirects the browser to Spotify's authorize page with a signed
// state parameter.
func (s *Server) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := newStateToken(s.config.GetStateSecret(), time.Now())
		if err != nil {
			log.Error().Err(err).Msg("state token generation failed")
			writeJSONError(w, http.StatusInternalServerError, "server error")
			return
		}
		http.Redirect(w, r, s.services.Tokens.AuthCodeURL(state), http.StatusFound)
	}
}

// AuthCallback handles the redirect back from Spotify: verifies state,
// exchanges the code, mints a fresh session id, persists the session, and
// sets the session cookie.
func (s *Server) AuthCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if err := verifyStateToken(s.config.GetStateSecret(), query.Get("state")); err != nil {
			log.Warn().Err(err).Msg("callback state verification failed")
			writeJSONError(w, http.StatusBadRequest, "invalid state parameter")
			return
		}

		code := query.Get("code")
		if code == "" {
			writeJSONError(w, http.StatusBadRequest, "missing authorization code")
			return
		}

		bundle, err := s.services.Tokens.Exchange(r.Context(), code)
		if err != nil {
			var rejection *apperrors.ProviderRejection
			if errors.As(err, &rejection) {
				log.Warn().Int("status", rejection.StatusCode).Msg("token exchange rejected")
				writeJSONError(w, http.StatusBadGateway, "token exchange failed")
				return
			}
			log.Error().Err(err).Msg("token exchange failed")
			writeJSONError(w, http.StatusServiceUnavailable, "provider unavailable")
			return
		}

		sessionID, err := sessions.NewSessionID()
		if err != nil {
			log.Error().Err(err).Msg("session id generation failed")
			writeJSONError(w, http.StatusInternalServerError, "server error")
			return
		}

		if _, err := s.services.Store.Persist(r.Context(), sessionID, bundle); err != nil {
			log.Error().Err(err).Msg("session persist failed")
			writeJSONError(w, http.StatusServiceUnavailable, "session storage unavailable")
			return
		}

		s.setSessionCookie(w, sessionID, int(bundle.ExpiresIn))
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// Logout kills the session (best-effort) and clears the cookie regardless.
func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			s.services.Store.Kill(r.Context(), cookie.Value)
		}
		s.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
}

// AuthStatus reports whether the caller holds a live session. Any invalid
// outcome clears the cookie.
func (s *Server) AuthStatus() http.HandlerFunc {
	type statusResponse struct {
		IsLoggedIn bool `json:"isLoggedIn"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeJSON(w, http.StatusOK, statusResponse{IsLoggedIn: false})
			return
		}

		_, err = s.services.Store.Validate(r.Context(), cookie.Value)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, statusResponse{IsLoggedIn: true})
		case errors.Is(err, apperrors.ErrSessionNotFound), errors.Is(err, apperrors.ErrSessionExpired):
			s.clearSessionCookie(w)
			writeJSON(w, http.StatusOK, statusResponse{IsLoggedIn: false})
		default:
			writeJSONError(w, http.StatusServiceUnavailable, "session storage unavailable")
		}
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.env != "DEV",
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.env != "DEV",
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
