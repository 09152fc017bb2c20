// Package session tracks who is signed in on behalf of the front end and
// keeps auth calls from overlapping.
package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// ErrBusy is returned when an auth call is started while another is still
// running.
var ErrBusy = common.ErrorBusy

// Authenticator is the part of services.AuthService the state needs.
type Authenticator interface {
	RestoreSession(ctx context.Context) *services.User
	Login(ctx context.Context, email, password string) services.AuthResult
	Signup(ctx context.Context, name, email, password string) services.AuthResult
	Logout(ctx context.Context) error
	IsDemo(email string) bool
}

type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializing
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	Status Status
	User   *services.User
	IsDemo bool
	Busy   bool
}

// LoggedIn reports whether a user is signed in.
func (s Snapshot) LoggedIn() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// State is the single holder of the current session. Busy is orthogonal to
// Status and set for the duration of every call into the Authenticator.
type State struct {
	auth Authenticator

	mu     sync.Mutex
	status Status
	user   *services.User
	demo   bool
	busy   bool
}

func New(auth Authenticator) *State {
	return &State{auth: auth}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u *services.User
	if s.user != nil {
		cp := *s.user
		u = &cp
	}
	return Snapshot{Status: s.status, User: u, IsDemo: s.demo, Busy: s.busy}
}

// Restore loads the persisted session. It is meant to run once at startup.
func (s *State) Restore(ctx context.Context) error {
	if !s.acquire(StatusInitializing) {
		return ErrBusy
	}
	defer s.release()

	s.adopt(s.auth.RestoreSession(ctx), true)
	return nil
}

// Login calls the Authenticator and, on success, adopts the session it
// persisted.
func (s *State) Login(ctx context.Context, email, password string) (services.AuthResult, error) {
	if !s.acquire(-1) {
		return services.AuthResult{}, ErrBusy
	}
	defer s.release()

	res := s.auth.Login(ctx, email, password)
	if res.Success {
		s.adopt(s.auth.RestoreSession(ctx), true)
	}
	return res, nil
}

// Signup is Login for a new account. A new account is never a demo account.
func (s *State) Signup(ctx context.Context, name, email, password string) (services.AuthResult, error) {
	if !s.acquire(-1) {
		return services.AuthResult{}, ErrBusy
	}
	defer s.release()

	res := s.auth.Signup(ctx, name, email, password)
	if res.Success {
		s.adopt(s.auth.RestoreSession(ctx), false)
	}
	return res, nil
}

// Logout ends the session. On failure the state is left as it was.
func (s *State) Logout(ctx context.Context) error {
	if !s.acquire(-1) {
		return ErrBusy
	}
	defer s.release()

	if err := s.auth.Logout(ctx); err != nil {
		return err
	}
	s.adopt(nil, false)
	return nil
}

// acquire sets the busy flag, and status when it is not negative. It
// reports false if the flag was already set.
func (s *State) acquire(status Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return false
	}
	s.busy = true
	if status >= 0 {
		s.status = status
	}
	return true
}

func (s *State) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *State) adopt(u *services.User, checkDemo bool) {
	demo := false
	if u != nil && checkDemo {
		demo = s.auth.IsDemo(u.Email)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = u
	s.demo = demo
	if u != nil {
		s.status = StatusAuthenticated
	} else {
		s.status = StatusUnauthenticated
	}
}
