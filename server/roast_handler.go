package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
)

// Roast is the protected endpoint: it resolves a usable access token through
// the lifecycle manager (refreshing behind the scenes when needed), pulls
// the caller's listening data, and generates a roast, or a compliment when
// ?roast=false is passed.
func (s *Server) Roast() http.HandlerFunc {
	type roastResponse struct {
		Roast string `json:"roast"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		accessToken, err := s.services.Lifecycle.ResolveAccessToken(r.Context(), cookie.Value)
		if err != nil {
			s.writeResolveError(w, err)
			return
		}

		taste, err := s.services.Music.TasteData(r.Context(), accessToken)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				// The provider no longer honors this access token even
				// though the session looked live. Tear it down.
				s.services.Store.Kill(r.Context(), cookie.Value)
				s.clearSessionCookie(w)
				writeJSONError(w, http.StatusUnauthorized, "Session expired or invalid")
				return
			}
			log.Error().Err(err).Msg("spotify data fetch failed")
			writeJSONError(w, http.StatusInternalServerError, "Failed to generate roast")
			return
		}

		shouldRoast := r.URL.Query().Get("roast") != "false"

		var text string
		if shouldRoast {
			text, err = s.services.Roaster.GenerateRoast(r.Context(), taste)
		} else {
			text, err = s.services.Roaster.GenerateCompliment(r.Context(), taste)
		}
		if err != nil {
			log.Error().Err(err).Bool("roast", shouldRoast).Msg("generation failed")
			writeJSONError(w, http.StatusInternalServerError, "Failed to generate roast")
			return
		}

		writeJSON(w, http.StatusOK, roastResponse{Roast: text})
	}
}

func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		s.clearSessionCookie(w)
		writeJSONError(w, http.StatusUnauthorized, "Session expired or invalid")
	case errors.Is(err, apperrors.ErrTransient):
		writeJSONError(w, http.StatusServiceUnavailable, "Temporarily unavailable, retry shortly")
	default:
		log.Error().Err(err).Msg("session resolution failed")
		writeJSONError(w, http.StatusInternalServerError, "server error")
	}
}
