package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned by operations that need an authenticated user.
var ErrNoSession = errors.New("no authenticated session")

type Actor struct {
	UserID string
	Email  string
}

// Session reports the currently authenticated user, if any.
type Session interface {
	Current() (Actor, bool)
}

// Require returns the current actor or ErrNoSession.
func Require(s Session) (Actor, error) {
	if s == nil {
		return Actor{}, ErrNoSession
	}
	a, ok := s.Current()
	if !ok || strings.TrimSpace(a.UserID) == "" {
		return Actor{}, ErrNoSession
	}
	return a, nil
}

// Static is a fixed session, used for the local backend and tests.
type Static struct {
	mu    sync.RWMutex
	actor *Actor
}

func NewStatic(userID, email string) *Static {
	s := &Static{}
	if strings.TrimSpace(userID) != "" {
		s.actor = &Actor{UserID: strings.TrimSpace(userID), Email: email}
	}
	return s
}

func (s *Static) Current() (Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.actor == nil {
		return Actor{}, false
	}
	return *s.actor, true
}

func (s *Static) SignIn(a Actor) {
	s.mu.Lock()
	s.actor = &a
	s.mu.Unlock()
}

func (s *Static) SignOut() {
	s.mu.Lock()
	s.actor = nil
	s.mu.Unlock()
}

type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenSession derives the actor from a Supabase access token.
type TokenSession struct {
	token  string
	claims Claims
	now    func() time.Time
}

// FromAccessToken parses a Supabase access token. When secret is empty the
// signature is not verified; the server still checks it on every request.
func FromAccessToken(token string, secret []byte) (*TokenSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoSession
	}
	var claims Claims
	if len(secret) == 0 {
		p := jwt.NewParser()
		if _, _, err := p.ParseUnverified(token, &claims); err != nil {
			return nil, fmt.Errorf("parse access token: %w", err)
		}
	} else {
		p := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
		if _, err := p.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return secret, nil }); err != nil {
			return nil, fmt.Errorf("verify access token: %w", err)
		}
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("access token has no subject")
	}
	return &TokenSession{token: token, claims: claims, now: time.Now}, nil
}

func (s *TokenSession) Current() (Actor, bool) {
	if s == nil {
		return Actor{}, false
	}
	if exp := s.claims.ExpiresAt; exp != nil && !s.now().Before(exp.Time) {
		return Actor{}, false
	}
	return Actor{UserID: s.claims.Subject, Email: s.claims.Email}, true
}

func (s *TokenSession) Token() string { return s.token }

func (s *TokenSession) ExpiresAt() (time.Time, bool) {
	if s.claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return s.claims.ExpiresAt.Time, true
}
