package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/glasscast/glasscast/internal/types"
)

// Session is the client-side view of an identity provider session.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         types.User
}

func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// SignUpOutcome classifies the provider's sign-up response.
type SignUpOutcome int

const (
	// SignUpSignedIn means the provider returned an active session right away.
	SignUpSignedIn SignUpOutcome = iota
	// SignUpConfirmationRequired means a new identity was created and awaits
	// email confirmation.
	SignUpConfirmationRequired
	// SignUpExistingAccount means the identity already has confirmed
	// registrations.
	SignUpExistingAccount
)

// EventKind enumerates auth-state change events. Only sign-in and sign-out
// drive state; everything else is ignored by the session store.
type EventKind int

const (
	EventSignedIn EventKind = iota
	EventSignedOut
	EventTokenRefreshed
)

type Event struct {
	Kind    EventKind
	Session *Session
}

// sessionFromToken rebuilds a session view from a persisted access token. The
// token is not verified here; the provider rejects it server-side if forged.
func sessionFromToken(accessToken, refreshToken string) (*Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("access token has no subject: %w", err)
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	email, _ := claims["email"].(string)

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User: types.User{
			ID:        sub,
			Email:     email,
			ExpiresAt: expiresAt,
		},
	}, nil
}

// UserMessage rewords provider failures into something worth showing. Known
// rejection phrases are matched by substring, everything else passes through.
func UserMessage(err error) string {
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "already registered") || strings.Contains(lowered, "already exists") {
		return "This email is already registered. Try logging in instead."
	}
	if strings.Contains(lowered, "invalid login credentials") {
		return "Invalid email or password."
	}
	return msg
}
