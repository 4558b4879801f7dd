package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultCookieName = "portal_session"
	DefaultSessionTTL = 7 * 24 * time.Hour

	sessionIssuer  = "portal"
	sessionSubject = "owner"
)

// Claims are carried by the session cookie.
type Claims struct {
	jwt.RegisteredClaims
}

// SessionOptions configures Sessions.
type SessionOptions struct {
	Secret     []byte
	CookieName string
	TTL        time.Duration
	// Domain lets proxied subdomains share the cookie (e.g. "example.com").
	Domain string
	Secure bool
}

// Sessions issues and checks HS256 session cookies.
type Sessions struct {
	opts SessionOptions
	now  func() time.Time
}

func NewSessions(opts SessionOptions) (*Sessions, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	return &Sessions{opts: opts, now: time.Now}, nil
}

// Issue signs a fresh session and sets it on w.
func (s *Sessions) Issue(w http.ResponseWriter) error {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   sessionSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, s.cookie(token, now.Add(s.opts.TTL), int(s.opts.TTL.Seconds())))
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", time.Unix(0, 0), -1))
}

// Authenticated reports whether r carries a valid session cookie.
func (s *Sessions) Authenticated(r *http.Request) bool {
	c, err := r.Cookie(s.opts.CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	_, err = s.Validate(c.Value)
	return err == nil
}

// Validate parses and verifies a session token.
func (s *Sessions) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(*jwt.Token) (interface{}, error) { return s.opts.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithSubject(sessionSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid session")
	}
	return claims, nil
}

// CookieName returns the configured cookie name.
func (s *Sessions) CookieName() string {
	return s.opts.CookieName
}

func (s *Sessions) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.opts.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
