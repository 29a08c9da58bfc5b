package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docsummarizer/go-services/internal/apperr"
	"github.com/docsummarizer/go-services/internal/sessions"
	"github.com/docsummarizer/go-services/internal/tokens"
	"github.com/docsummarizer/go-services/pkg/logger"
)

var ErrNotSignedIn = errors.New("not signed in")

type Authenticator interface {
	Identity() Identity
	// SignOut ends the session. Credentials travel in ctx (see WithCredentials).
	SignOut(ctx context.Context) error
	// Changes delivers the new identity after every auth-state change.
	Changes() <-chan Identity
}

// SessionAuthenticator signs out by blacklisting the presented access token
// for its remaining lifetime and dropping the refresh session.
type SessionAuthenticator struct {
	mu        sync.RWMutex
	id        Identity
	sessions  *sessions.Service
	blacklist *sessions.TokenBlacklist
	changes   chan Identity
	now       func() time.Time
}

func NewSessionAuthenticator(id Identity, s *sessions.Service, bl *sessions.TokenBlacklist) *SessionAuthenticator {
	return &SessionAuthenticator{id: id, sessions: s, blacklist: bl, changes: make(chan Identity, 1), now: time.Now}
}

func (a *SessionAuthenticator) Identity() Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}

func (a *SessionAuthenticator) Changes() <-chan Identity { return a.changes }

func (a *SessionAuthenticator) SignOut(ctx context.Context) error {
	if !a.Identity().SignedIn() {
		return apperr.GenericErr("sign out", ErrNotSignedIn)
	}
	creds, _ := CredentialsFrom(ctx)
	if creds.AccessToken != "" {
		ttl, err := tokens.RemainingTTL(creds.AccessToken, a.now())
		if err != nil {
			logger.Debugf("sign out: access token exp unreadable: %v", err)
		} else if err := a.blacklist.Add(ctx, creds.AccessToken, ttl); err != nil {
			return apperr.GenericErr("sign out", err)
		}
	}
	if creds.RefreshToken != "" && a.sessions != nil {
		if err := a.sessions.DeleteRefresh(ctx, creds.RefreshToken); err != nil {
			return apperr.GenericErr("sign out", err)
		}
	}

	a.mu.Lock()
	prev := a.id.UserID
	a.id = Identity{}
	a.mu.Unlock()
	logger.Infof("signed out user=%s", prev)
	a.publish(Identity{})
	return nil
}

// publish keeps only the latest state when nobody is listening.
func (a *SessionAuthenticator) publish(id Identity) {
	select {
	case <-a.changes:
	default:
	}
	select {
	case a.changes <- id:
	default:
	}
}
