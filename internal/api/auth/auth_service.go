package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/glasscast/glasscast/internal/types"
)

const (
	tokenPath  = "/auth/v1/token"
	signUpPath = "/auth/v1/signup"
	logoutPath = "/auth/v1/logout"

	eventBuffer = 8
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp returns the outcome classification; the session is non-nil only
	// for SignUpSignedIn.
	SignUp(ctx context.Context, email, password string) (SignUpOutcome, *Session, error)
	SignOut(ctx context.Context) error

	// Events is the auth-state change stream. It is closed by Close.
	Events() <-chan Event
	Close()
}

// ServiceImpl talks to the GoTrue HTTP API of the Supabase project.
type ServiceImpl struct {
	logger  *slog.Logger
	baseURL string
	anonKey string
	client  *http.Client

	mu      sync.Mutex
	current *Session

	events    chan Event
	closeOnce sync.Once
}

func NewService(baseURL, anonKey string, client *http.Client, logger *slog.Logger) *ServiceImpl {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ServiceImpl{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  client,
		events:  make(chan Event, eventBuffer),
	}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *userPayload `json:"user"`

	// Sign-up with confirmation enabled returns the bare user object instead
	// of a token grant.
	ID         string             `json:"id"`
	Email      string             `json:"email"`
	Identities *[]json.RawMessage `json:"identities"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *ServiceImpl) SignIn(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignIn")
	defer span.End()

	l := s.logger.With(slog.String("method", "SignIn"), slog.String("email", email))
	l.DebugContext(ctx, "Signing in")

	var resp tokenResponse
	err := s.postJSON(ctx, tokenPath+"?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, "", &resp)
	if err != nil {
		l.WarnContext(ctx, "Sign-in failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Sign-in failed")
		return nil, fmt.Errorf("signing in: %w", err)
	}

	session := s.sessionFromGrant(resp)
	s.setCurrent(session)
	s.emit(Event{Kind: EventSignedIn, Session: session})

	l.InfoContext(ctx, "Signed in", slog.String("userID", session.User.ID))
	span.SetStatus(codes.Ok, "Signed in")
	return session, nil
}

func (s *ServiceImpl) SignUp(ctx context.Context, email, password string) (SignUpOutcome, *Session, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignUp")
	defer span.End()

	l := s.logger.With(slog.String("method", "SignUp"), slog.String("email", email))
	l.DebugContext(ctx, "Signing up")

	var resp tokenResponse
	err := s.postJSON(ctx, signUpPath, map[string]string{
		"email":    email,
		"password": password,
	}, "", &resp)
	if err != nil {
		l.WarnContext(ctx, "Sign-up failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Sign-up failed")
		return SignUpConfirmationRequired, nil, fmt.Errorf("signing up: %w", err)
	}

	// Auto-confirm projects hand back a session immediately.
	if resp.AccessToken != "" {
		session := s.sessionFromGrant(resp)
		s.setCurrent(session)
		s.emit(Event{Kind: EventSignedIn, Session: session})
		span.SetStatus(codes.Ok, "Signed up and signed in")
		return SignUpSignedIn, session, nil
	}

	// The provider reports a pre-existing confirmed account by returning the
	// user with an empty identities list.
	if resp.Identities != nil && len(*resp.Identities) == 0 {
		span.SetStatus(codes.Ok, "Existing account")
		return SignUpExistingAccount, nil, nil
	}

	span.SetStatus(codes.Ok, "Confirmation required")
	return SignUpConfirmationRequired, nil, nil
}

func (s *ServiceImpl) SignOut(ctx context.Context) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignOut")
	defer span.End()

	l := s.logger.With(slog.String("method", "SignOut"))

	s.mu.Lock()
	token := ""
	if s.current != nil {
		token = s.current.AccessToken
	}
	s.mu.Unlock()

	if err := s.postJSON(ctx, logoutPath, nil, token, nil); err != nil {
		l.WarnContext(ctx, "Sign-out failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Sign-out failed")
		return fmt.Errorf("signing out: %w", err)
	}

	s.setCurrent(nil)
	s.emit(Event{Kind: EventSignedOut})
	l.InfoContext(ctx, "Signed out")
	span.SetStatus(codes.Ok, "Signed out")
	return nil
}

func (s *ServiceImpl) Events() <-chan Event {
	return s.events
}

// Close ends the event stream; consumers' listener loops terminate.
func (s *ServiceImpl) Close() {
	s.closeOnce.Do(func() { close(s.events) })
}

// AdoptSession seeds the service with a restored session so SignOut can
// revoke it. It does not emit an event; restoring is not a state change.
func (s *ServiceImpl) AdoptSession(session *Session) {
	s.setCurrent(session)
}

func (s *ServiceImpl) sessionFromGrant(resp tokenResponse) *Session {
	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if resp.User != nil {
		session.User = types.User{ID: resp.User.ID, Email: resp.User.Email, ExpiresAt: session.ExpiresAt}
	} else if parsed, err := sessionFromToken(resp.AccessToken, resp.RefreshToken); err == nil {
		session.User = parsed.User
	}
	return session
}

func (s *ServiceImpl) setCurrent(session *Session) {
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()
}

func (s *ServiceImpl) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("Auth event dropped, stream full", slog.Int("kind", int(ev.Kind)))
	}
}

type providerError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e providerError) text() string {
	for _, m := range []string{e.ErrorDescription, e.Msg, e.Message} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (s *ServiceImpl) postJSON(ctx context.Context, path string, payload any, bearer string, dst any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w: %w", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w: %w", types.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var pe providerError
		_ = json.Unmarshal(raw, &pe)
		return &types.RemoteError{Provider: "supabase-auth", Status: resp.StatusCode, Message: pe.text()}
	}

	if dst != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("failed to parse response: %w: %w", types.ErrDecode, err)
		}
	}
	return nil
}
