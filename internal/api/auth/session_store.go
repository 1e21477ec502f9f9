package auth

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/glasscast/glasscast/internal/api/settings"
	"github.com/glasscast/glasscast/internal/types"
)

// SessionAdopter is implemented by auth services that can take over a
// restored session without treating it as a fresh sign-in.
type SessionAdopter interface {
	AdoptSession(session *Session)
}

// SessionStore observes the auth state: it restores any persisted session
// once, then keeps consuming the auth event stream for the lifetime of the
// store. IsLoading is true only until the one-shot restore completes.
type SessionStore struct {
	logger   *slog.Logger
	svc      Service
	settings settings.Service

	mu      sync.RWMutex
	loading bool
	session *Session

	done chan struct{}
}

func NewSessionStore(svc Service, prefs settings.Service, logger *slog.Logger) *SessionStore {
	s := &SessionStore{
		logger:   logger,
		svc:      svc,
		settings: prefs,
		loading:  true,
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *SessionStore) run() {
	defer close(s.done)
	s.restoreInitialSession()
	for ev := range s.svc.Events() {
		s.apply(ev)
	}
}

func (s *SessionStore) restoreInitialSession() {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	accessToken, refreshToken := s.settings.StoredSession()
	if accessToken == "" {
		return
	}

	session, err := sessionFromToken(accessToken, refreshToken)
	if err != nil {
		s.logger.Warn("Discarding unreadable persisted session", slog.Any("error", err))
		return
	}
	if session.Expired() {
		s.logger.Debug("Persisted session expired", slog.String("userID", session.User.ID))
		return
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	if adopter, ok := s.svc.(SessionAdopter); ok {
		adopter.AdoptSession(session)
	}
	s.logger.Info("Restored persisted session", slog.String("userID", session.User.ID))
}

func (s *SessionStore) apply(ev Event) {
	switch ev.Kind {
	case EventSignedIn:
		s.mu.Lock()
		s.session = ev.Session
		s.mu.Unlock()
		if ev.Session != nil {
			if err := s.settings.StoreSession(ev.Session.AccessToken, ev.Session.RefreshToken); err != nil {
				s.logger.Warn("Failed to persist session", slog.Any("error", err))
			}
		}
	case EventSignedOut:
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
		if err := s.settings.ClearSession(); err != nil {
			s.logger.Warn("Failed to clear persisted session", slog.Any("error", err))
		}
	default:
		// Token refreshes and other event kinds do not change who is signed in.
	}
}

// IsLoading is true only while the initial session restore is in progress.
func (s *SessionStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *SessionStore) CurrentUser() (types.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return types.User{}, false
	}
	return s.session.User, true
}

// AccessToken implements the favorites credentials contract; empty when
// signed out, in which case callers fall back to the anon key.
func (s *SessionStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// UserID parses the provider's user id; ok is false when signed out or the id
// is not a UUID.
func (s *SessionStore) UserID() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s.session.User.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Close tears down the listener: it closes the service's event stream and
// waits for the loop to drain.
func (s *SessionStore) Close() {
	s.svc.Close()
	<-s.done
}
