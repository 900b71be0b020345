// Package services contains the application services of the cardsync
// client. This file defines the sign-in service: it keeps the user's token
// across restarts and hands anonymous cards over once the user signs in.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/cardsync/internal/client/auth"
	"github.com/dmitrijs2005/cardsync/internal/client/sessions"
	"github.com/dmitrijs2005/cardsync/internal/logging"
)

const tokenSessionKey = "auth_token"

// AuthService defines sign-in operations.
//
// Contract:
//   - SignIn: validate the token, persist it, attach anonymous cards.
//   - Restore: reload a persisted token at startup; an expired or missing
//     token leaves the user anonymous.
//   - SignOut: forget the token locally.
type AuthService interface {
	SignIn(ctx context.Context, token string) (string, error)
	Restore(ctx context.Context) (string, bool)
	SignOut(ctx context.Context) error
}

// Attacher re-attributes and uploads cards made before sign-in.
type Attacher interface {
	AttachLocalCards(ctx context.Context) (int, error)
}

type authService struct {
	session  *auth.TokenSession
	sessions *sessions.Store
	attacher Attacher
	logger   logging.Logger
}

func NewAuthService(session *auth.TokenSession, s *sessions.Store, attacher Attacher, logger logging.Logger) AuthService {
	return &authService{
		session:  session,
		sessions: s,
		attacher: attacher,
		logger:   logger.With("component", "auth_service"),
	}
}

// SignIn fails only when the token is invalid or cannot be persisted.
// Attaching local cards is best effort; failures are logged and retried by
// the autosave controller on the next edit.
func (a *authService) SignIn(ctx context.Context, token string) (string, error) {
	userID, err := a.session.SignIn(token)
	if err != nil {
		return "", fmt.Errorf("sign in: %w", err)
	}
	if err := a.sessions.SaveSession(ctx, tokenSessionKey, token); err != nil {
		a.session.SignOut()
		return "", fmt.Errorf("persist token: %w", err)
	}

	if a.attacher != nil {
		n, err := a.attacher.AttachLocalCards(ctx)
		if err != nil {
			a.logger.Warn(ctx, "some local cards were not attached", "user_id", userID, "error", err)
		}
		a.logger.Info(ctx, "signed in", "user_id", userID, "attached", n)
	}
	return userID, nil
}

func (a *authService) Restore(ctx context.Context) (string, bool) {
	raw, ok, err := a.sessions.GetSession(ctx, tokenSessionKey)
	if err != nil {
		a.logger.Warn(ctx, "failed to load token", "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		a.logger.Warn(ctx, "stored token is corrupt", "error", err)
		return "", false
	}
	userID, err := a.session.SignIn(token)
	if err != nil {
		a.logger.Info(ctx, "stored token rejected, staying anonymous", "error", err)
		return "", false
	}
	return userID, true
}

func (a *authService) SignOut(ctx context.Context) error {
	a.session.SignOut()
	return a.sessions.DeleteSession(ctx, tokenSessionKey)
}
