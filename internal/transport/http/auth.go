package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/pkg/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
)

const (
	stateCookie    = "oauth_state"
	stateCookieTTL = 600
	providerGitHub = "github"
)

// authLogin redirects to GitHub with a single-use state kept in a cookie.
func (s *Server) authLogin(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "provider") != providerGitHub {
		http.NotFound(w, r)
		return
	}

	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieTTL,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) authCallback(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.authCallback"
	log := s.log.With(slog.String("op", op))

	query := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || query.Get("state") != cookie.Value {
		log.Warn("oauth state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	clearStateCookie(w)

	if providerErr := query.Get("error"); providerErr != "" {
		log.Info("authorization denied", slog.String("error", providerErr))
		http.Error(w, "OAuth error: "+providerErr+" "+query.Get("error_description"), http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "no authorization code provided", http.StatusBadRequest)
		return
	}

	identity, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		log.Error("oauth exchange failed", sl.Err(err))

		if errors.Is(err, apperrors.ErrUpstream) {
			http.Error(w, "error communicating with GitHub", http.StatusBadGateway)
			return
		}

		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	user, err := s.services.Users.Login(r.Context(), identity.ID, identity.Login, identity.AccessToken)
	if err != nil {
		log.Error("failed to save user", sl.Err(err))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	if err := s.sessions.Issue(w, user.GitHubID, user.Username); err != nil {
		log.Error("failed to issue session", sl.Err(err))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	http.Redirect(w, r, "/", http.StatusFound)
}
