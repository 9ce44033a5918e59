// Package apiclient is a Go client for the food-ordering API. It keeps the caller's session,
// refreshes access tokens through the identity provider and attaches them to every request.
package apiclient

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ExpirySkew is how long before ExpiresAt an access token is treated as expired.
const ExpirySkew = 30 * time.Second

var (
	// ErrNoSession is returned when there is no session to take a token from.
	ErrNoSession = errors.New("apiclient: not signed in")
	// ErrSessionExpired is returned when the access token expired and could not be refreshed.
	ErrSessionExpired = errors.New("apiclient: session expired")
)

// Session is an authenticated session issued by the identity provider.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenState is the outcome of ValidToken.
type TokenState int

const (
	// TokenValid means the returned token can be sent as is.
	TokenValid TokenState = iota
	// TokenNeedsRefresh means the access token is stale but a refresh token is available.
	TokenNeedsRefresh
	// TokenMissing means the caller must sign in again.
	TokenMissing
)

// ValidToken decides, without side effects, whether session can authenticate a request at now.
// A session without ExpiresAt is trusted until the server rejects it.
func ValidToken(session *Session, now time.Time) (string, TokenState) {
	if session == nil || session.AccessToken == "" {
		return "", TokenMissing
	}
	if session.ExpiresAt.IsZero() || now.Add(ExpirySkew).Before(session.ExpiresAt) {
		return session.AccessToken, TokenValid
	}
	if session.RefreshToken == "" {
		return "", TokenMissing
	}
	return "", TokenNeedsRefresh
}

// RefreshFunc exchanges a refresh token for a new session.
type RefreshFunc func(ctx context.Context, refreshToken string) (*Session, error)

// TokenSource hands out access tokens, refreshing the session when it goes stale.
// It is safe for concurrent use; concurrent callers share a single refresh.
type TokenSource struct {
	mu      sync.Mutex
	session *Session
	refresh RefreshFunc
	now     func() time.Time
}

// NewTokenSource constructs a TokenSource. session may be nil until SetSession is called.
func NewTokenSource(session *Session, refresh RefreshFunc) *TokenSource {
	return &TokenSource{session: copySession(session), refresh: refresh, now: time.Now}
}

// Token returns a usable access token.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	token, state := ValidToken(ts.session, ts.now())
	switch state {
	case TokenValid:
		return token, nil
	case TokenMissing:
		if ts.session != nil {
			ts.session = nil
			return "", ErrSessionExpired
		}
		return "", ErrNoSession
	}

	if ts.refresh == nil {
		ts.session = nil
		return "", ErrSessionExpired
	}

	next, err := ts.refresh(ctx, ts.session.RefreshToken)
	if err != nil || next == nil || next.AccessToken == "" {
		ts.session = nil
		if err == nil {
			err = errors.New("empty session")
		}
		return "", errors.Join(ErrSessionExpired, err)
	}
	if next.RefreshToken == "" {
		next.RefreshToken = ts.session.RefreshToken
	}

	ts.session = copySession(next)
	return ts.session.AccessToken, nil
}

// SetSession replaces the current session, e.g. after sign-in.
func (ts *TokenSource) SetSession(session *Session) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.session = copySession(session)
}

// Session returns a copy of the current session, or nil when signed out.
func (ts *TokenSource) Session() *Session {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return copySession(ts.session)
}

// Invalidate drops the session. The next Token call fails with ErrNoSession.
func (ts *TokenSource) Invalidate() {
	ts.SetSession(nil)
}

func copySession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
