// Package session owns the operator's credentials and their lifetime.
package session

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core"
	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// Listener is notified with the new credentials whenever they change.
// Empty credentials mean the session ended.
type Listener func(model.Credentials)

// Config configures a Session.
type Config struct {
	// CredentialsFile persists the credentials between restarts.
	CredentialsFile string
	// AutoLogout ends the session this long after login. Zero disables it.
	AutoLogout time.Duration
	// Watch reloads the credentials when the file is rewritten externally.
	Watch bool
}

// Session holds the credentials of the single operator using the dashboard.
type Session struct {
	backend core.Backend
	clock   clock.WithDelayedExecution
	cfg     Config
	file    *credentialFile

	mu        sync.Mutex
	creds     model.Credentials
	timer     clock.Timer
	nextID    uint64
	listeners map[uint64]Listener

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// New creates a session. Call Init before use.
func New(backend core.Backend, clk clock.WithDelayedExecution, cfg Config) *Session {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Session{
		backend:   backend,
		clock:     clk,
		cfg:       cfg,
		file:      &credentialFile{path: cfg.CredentialsFile},
		listeners: make(map[uint64]Listener),
	}
}

// Init loads the stored credentials and, when configured, starts watching the
// credentials file. A missing or unreadable file starts an anonymous session.
func (s *Session) Init(ctx context.Context) error {
	creds, err := s.file.load()
	if err != nil {
		log.Warn("Ignoring unreadable credentials file", "path", s.cfg.CredentialsFile, "error", err)
	}
	s.replace(creds, false)

	if !s.cfg.Watch {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	if err := s.file.watch(watchCtx, done, s.reload); err != nil {
		cancel()
		return fmt.Errorf("failed to watch credentials file: %w", err)
	}

	s.mu.Lock()
	s.watchCancel, s.watchDone = cancel, done
	s.mu.Unlock()
	return nil
}

// Teardown stops the auto-logout timer and the file watcher. Credentials stay on disk.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.stopTimerLocked()
	cancel, done := s.watchCancel, s.watchDone
	s.watchCancel, s.watchDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Login exchanges the user's password for credentials, persists them and
// arms the auto-logout timer.
func (s *Session) Login(ctx context.Context, userID, password string) error {
	creds, err := s.backend.Login(ctx, userID, password)
	if err != nil {
		return err
	}
	if creds == nil || creds.Access == "" || creds.Refresh == "" {
		return core.ErrLoginRejected
	}

	if err := s.file.save(*creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	s.mu.Lock()
	s.stopTimerLocked()
	if s.cfg.AutoLogout > 0 {
		s.timer = s.clock.AfterFunc(s.cfg.AutoLogout, s.expire)
	}
	s.mu.Unlock()

	log.Info("Operator logged in", "user", userID, "autoLogout", s.cfg.AutoLogout)
	s.replace(*creds, true)
	return nil
}

// Logout drops the credentials from memory and disk.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	err := s.file.remove()
	s.replace(model.Credentials{}, true)
	if err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// Authenticated reports whether an access credential is held.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.creds.Empty()
}

// Credentials returns a copy of the current credentials.
func (s *Session) Credentials() model.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCredentials(s.creds)
}

// AccessToken returns the bearer credential, or "" when logged out.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.Access
}

// OnChange registers a listener and returns a function that removes it.
func (s *Session) OnChange(l func(model.Credentials)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) expire() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()

	log.Info("Session expired, logging out", "after", s.cfg.AutoLogout)
	if err := s.Logout(); err != nil {
		log.Error(err, "Auto logout failed")
	}
}

// reload is called by the file watcher.
func (s *Session) reload() {
	creds, err := s.file.load()
	if err != nil {
		log.Warn("Ignoring unreadable credentials file", "path", s.cfg.CredentialsFile, "error", err)
		return
	}
	s.replace(creds, true)
}

// replace swaps the credentials and notifies listeners when they changed.
func (s *Session) replace(creds model.Credentials, notify bool) {
	s.mu.Lock()
	if sameCredentials(s.creds, creds) {
		s.mu.Unlock()
		return
	}
	s.creds = copyCredentials(creds)

	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	if !notify {
		return
	}
	for _, l := range listeners {
		l(copyCredentials(creds))
	}
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func sameCredentials(a, b model.Credentials) bool {
	return a.Access == b.Access && a.Refresh == b.Refresh && bytes.Equal(a.User, b.User)
}

func copyCredentials(c model.Credentials) model.Credentials {
	c.User = bytes.Clone(c.User)
	return c
}
