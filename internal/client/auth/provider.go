package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/cardsync/internal/common"
)

// Provider supplies the signed-in user. CurrentUserID returns
// common.ErrNotAuthenticated for anonymous use.
type Provider interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// TokenSession is a Provider backed by a JWT. The token is re-validated on
// every call, so an expired session turns anonymous without a sign-out.
type TokenSession struct {
	mu     sync.RWMutex
	secret []byte
	token  string
}

func NewTokenSession(secret []byte) *TokenSession {
	return &TokenSession{secret: secret}
}

// SignIn validates token and keeps it.
func (s *TokenSession) SignIn(token string) (string, error) {
	userID, err := GetUserIDFromToken(token, s.secret)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return userID, nil
}

func (s *TokenSession) SignOut() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Token returns the raw token, or "" when signed out.
func (s *TokenSession) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *TokenSession) CurrentUserID(ctx context.Context) (string, error) {
	token := s.Token()
	if token == "" {
		return "", common.ErrNotAuthenticated
	}
	userID, err := GetUserIDFromToken(token, s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}
	return userID, nil
}

// Anonymous is a Provider that never authenticates.
type Anonymous struct{}

func (Anonymous) CurrentUserID(context.Context) (string, error) {
	return "", common.ErrNotAuthenticated
}
