// Package session keeps the signed-in identity in an HS256 JWT carried by an
// HttpOnly cookie. Nothing but the GitHub id and display name is stored in it.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "git-done"

type Session struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

type claims struct {
	Username string `json:"name"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// NewManager builds a Manager. secure sets the cookie Secure flag and should
// be true whenever the service is reached over https.
func NewManager(cfg config.Session, secure bool) (*Manager, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("session: secret must be at least 16 characters")
	}

	return &Manager{
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     secure,
		now:        time.Now,
	}, nil
}

// Issue signs a fresh session for the user and sets the cookie. Calling it
// again on every authenticated request gives the rolling expiry.
func (m *Manager) Issue(w http.ResponseWriter, userID, username string) error {
	now := m.now()
	expires := now.Add(m.ttl)

	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("session: signing token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Read returns the session carried by r, or apperrors.ErrUnauthenticated.
func (m *Manager) Read(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	token, err := jwt.ParseWithClaims(
		cookie.Value,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	return &Session{
		UserID:    c.Subject,
		Username:  c.Username,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Clear deletes the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
