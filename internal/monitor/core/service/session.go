package service

import (
	"context"
	"encoding/json"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
)

// SessionStatus describes the operator session without exposing tokens.
type SessionStatus struct {
	Authenticated bool            `json:"authenticated"`
	User          json.RawMessage `json:"user,omitempty"`
	FeedConnected bool            `json:"feed_connected"`
}

// Login authenticates the operator. The feed connects once the session changes.
func (s *Service) Login(ctx context.Context, userID, password string) error {
	if s.session == nil {
		return core.ErrNotAuthenticated
	}
	return s.session.Login(ctx, userID, password)
}

// Logout ends the session, which disconnects the feed and clears the selection.
func (s *Service) Logout() error {
	if s.session == nil {
		return nil
	}
	return s.session.Logout()
}

// SessionStatus returns the current session state.
func (s *Service) SessionStatus() SessionStatus {
	st := SessionStatus{FeedConnected: s.FeedConnected()}
	if s.session == nil {
		return st
	}
	creds := s.session.Credentials()
	st.Authenticated = !creds.Empty()
	if st.Authenticated {
		st.User = creds.User
	}
	return st
}
